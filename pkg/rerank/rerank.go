package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/oakmoss/graphrag/pkg/llmclient"
	"github.com/oakmoss/graphrag/pkg/openie"
)

// Reranker implements the fact reranker (spec §4.5).
type Reranker struct {
	client llmclient.Client
	demos  []Demo
	log    *slog.Logger
}

// New constructs a Reranker. demos may be nil, in which case
// DefaultDemos() is used.
func New(client llmclient.Client, demos []Demo) *Reranker {
	if demos == nil {
		demos = DefaultDemos()
	}
	return &Reranker{
		client: client,
		demos:  demos,
		log:    slog.Default().With("component", "rerank"),
	}
}

// Rerank asks the LLM which of candidates are relevant to query, and
// maps its answer back onto positions in candidateIndices. Always
// succeeds: any failure (LLM error, unparseable response, no matches)
// falls back to the original dense-similarity order truncated to k. The
// returned metadata carries {model_response, confidence: nil} on
// success, or {error} on fallback due to a hard failure.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []openie.Triple, candidateIndices []int, k int) ([]int, []openie.Triple, map[string]any) {
	if len(candidates) == 0 {
		return nil, nil, map[string]any{}
	}

	prompt := r.buildPrompt(query, candidates)
	resp, err := r.client.Infer(ctx, prompt)
	if err != nil {
		r.log.Warn("fact rerank LLM call failed, falling back to dense order", "error", err)
		fallbackIndices, fallbackCandidates := truncate(candidateIndices, candidates, k)
		return fallbackIndices, fallbackCandidates, map[string]any{"error": err.Error()}
	}

	parsed, err := extractFactArray(resp.Content)
	if err != nil {
		r.log.Warn("fact rerank response unparseable, falling back to dense order", "error", err)
		fallbackIndices, fallbackCandidates := truncate(candidateIndices, candidates, k)
		return fallbackIndices, fallbackCandidates, map[string]any{"error": err.Error()}
	}

	candidateStrings := make([][]string, len(candidates))
	for i, c := range candidates {
		candidateStrings[i] = []string{c.Subject, c.Relation, c.Object}
	}

	matchedPositions := matchParsedTriples(parsed, candidateStrings)
	if len(matchedPositions) == 0 {
		r.log.Warn("fact rerank matched nothing, falling back to dense order")
		fallbackIndices, fallbackCandidates := truncate(candidateIndices, candidates, k)
		return fallbackIndices, fallbackCandidates, map[string]any{"model_response": resp.Content, "confidence": nil}
	}

	matchedIndices := make([]int, len(matchedPositions))
	matchedCandidates := make([]openie.Triple, len(matchedPositions))
	for i, pos := range matchedPositions {
		matchedIndices[i] = candidateIndices[pos]
		matchedCandidates[i] = candidates[pos]
	}

	if k > 0 && len(matchedIndices) > k {
		matchedIndices = matchedIndices[:k]
		matchedCandidates = matchedCandidates[:k]
	}

	return matchedIndices, matchedCandidates, map[string]any{"model_response": resp.Content, "confidence": nil}
}

func truncate(indices []int, candidates []openie.Triple, k int) ([]int, []openie.Triple) {
	n := len(indices)
	if k > 0 && k < n {
		n = k
	}
	return append([]int(nil), indices[:n]...), append([]openie.Triple(nil), candidates[:n]...)
}

func (r *Reranker) buildPrompt(query string, candidates []openie.Triple) []llmclient.Message {
	sysPrompt := `You are a fact-selection assistant. Given a question and a list of candidate facts (subject, relation, object triples), return only the facts that help answer the question, in the order most relevant first.`

	var demoBlock strings.Builder
	for _, d := range r.demos {
		demoJSON, _ := json.Marshal(map[string]any{"fact": d.Facts})
		fmt.Fprintf(&demoBlock, "Question: %s\nAnswer: %s\n\n", d.Question, demoJSON)
	}

	factLists := make([][]string, len(candidates))
	for i, c := range candidates {
		factLists[i] = []string{c.Subject, c.Relation, c.Object}
	}
	candidateJSON, _ := json.Marshal(map[string]any{"fact": factLists})

	userPrompt := fmt.Sprintf(`%s<CANDIDATE FACTS>
%s
</CANDIDATE FACTS>

Question: %s

Respond with a single JSON object of the form {"fact": [[subject, relation, object], ...]} containing only the relevant facts, most relevant first. Respond with the JSON object only, no commentary.`,
		demoBlock.String(), candidateJSON, query)

	return []llmclient.Message{
		llmclient.NewSystemMessage(sysPrompt),
		llmclient.NewUserMessage(userPrompt),
	}
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// extractFactArray tolerantly locates the first JSON object whose body
// contains "fact" mapped to an array (spec §4.5 step 4).
func extractFactArray(response string) ([][]string, error) {
	candidates := []string{response}
	if repaired, err := jsonrepair.JSONRepair(response); err == nil {
		candidates = append(candidates, repaired)
	}
	if m := jsonObjectPattern.FindString(response); m != "" {
		candidates = append(candidates, m)
		if repaired, err := jsonrepair.JSONRepair(m); err == nil {
			candidates = append(candidates, repaired)
		}
	}

	for _, c := range candidates {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(c), &obj); err != nil {
			continue
		}
		raw, ok := obj["fact"]
		if !ok {
			continue
		}
		var list [][]string
		if err := json.Unmarshal(raw, &list); err != nil {
			continue
		}
		return list, nil
	}

	return nil, fmt.Errorf(`no JSON object with key "fact" found in response`)
}
