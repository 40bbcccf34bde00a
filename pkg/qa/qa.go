package qa

import (
	"context"
	"log/slog"
	"strings"

	"github.com/oakmoss/graphrag/pkg/llmclient"
	"github.com/oakmoss/graphrag/pkg/retriever"
)

const answerMarker = "Answer:"

// Result is a QuerySolution extended with the answer produced by the QA
// step.
type Result struct {
	Question  string    `json:"question"`
	Docs      []string  `json:"docs"`
	DocScores []float64 `json:"doc_scores"`
	Answer    string    `json:"answer"`
}

// Answerer generates answers over retrieved passages (spec §4.8).
type Answerer struct {
	client    llmclient.Client
	templates map[string]Template
	dataset   string
	topK      int
	log       *slog.Logger
}

// New constructs an Answerer. templates may be nil, in which case
// DefaultTemplates() is used. dataset selects "rag_qa_<dataset>" from
// the registry, falling back to rag_qa_musique.
func New(client llmclient.Client, templates map[string]Template, dataset string, topK int) *Answerer {
	if templates == nil {
		templates = DefaultTemplates()
	}
	return &Answerer{
		client:    client,
		templates: templates,
		dataset:   dataset,
		topK:      topK,
		log:       slog.Default().With("component", "qa"),
	}
}

// Answer runs the QA step over one batch of retrieval results. A
// per-query LLM failure is logged and yields an empty answer for that
// query rather than aborting the batch (spec §7, Fallback).
func (a *Answerer) Answer(ctx context.Context, solutions []retriever.QuerySolution) []Result {
	tmpl := SelectTemplate(a.templates, a.dataset)
	results := make([]Result, len(solutions))

	for i, sol := range solutions {
		results[i] = Result{Question: sol.Question, Docs: sol.Docs, DocScores: sol.DocScores}

		docs := sol.Docs
		if a.topK > 0 && len(docs) > a.topK {
			docs = docs[:a.topK]
		}

		messages := []llmclient.Message{
			llmclient.NewSystemMessage(tmpl.System),
			llmclient.NewUserMessage(BuildPrompt(docs, sol.Question)),
		}

		resp, err := a.client.Infer(ctx, messages)
		if err != nil {
			a.log.Error("qa: llm call failed, leaving answer empty", "question", sol.Question, "error", err)
			continue
		}

		results[i].Answer = ParseAnswer(resp.Content)
	}

	return results
}

// ParseAnswer extracts the text following the first literal "Answer:"
// marker. If the marker is absent, the whole trimmed response is
// returned (spec §4.8).
func ParseAnswer(response string) string {
	if idx := strings.Index(response, answerMarker); idx >= 0 {
		return strings.TrimSpace(response[idx+len(answerMarker):])
	}
	return strings.TrimSpace(response)
}
