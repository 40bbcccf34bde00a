package qa

import (
	"context"
	"errors"
	"testing"

	"github.com/oakmoss/graphrag/pkg/llmclient"
	"github.com/oakmoss/graphrag/pkg/retriever"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLLM struct {
	response string
	err      error
	messages []llmclient.Message
}

func (c *stubLLM) Infer(_ context.Context, messages []llmclient.Message) (*llmclient.Response, error) {
	c.messages = messages
	if c.err != nil {
		return nil, c.err
	}
	return &llmclient.Response{Content: c.response}, nil
}
func (c *stubLLM) Close() error { return nil }

func TestBuildPromptFormatsTitlesThenQuestion(t *testing.T) {
	got := BuildPrompt([]string{"Paris is the capital of France."}, "What is the capital of France?")
	want := "Wikipedia Title: Paris is the capital of France.\n\nQuestion: What is the capital of France?\nThought: "
	assert.Equal(t, want, got)
}

func TestSelectTemplateFallsBackToMusique(t *testing.T) {
	templates := DefaultTemplates()

	got := SelectTemplate(templates, "unknown-dataset")
	assert.Equal(t, defaultTemplateName, got.Name)

	got = SelectTemplate(templates, "hotpotqa")
	assert.Equal(t, "rag_qa_hotpotqa", got.Name)
}

func TestParseAnswerSplitsOnMarker(t *testing.T) {
	assert.Equal(t, "Paris", ParseAnswer("Thought: it is well known.\nAnswer: Paris"))
	assert.Equal(t, "no marker present", ParseAnswer("no marker present"))
}

func TestAnswerFillsResultFromLLMResponse(t *testing.T) {
	a := New(&stubLLM{response: "Thought: obvious.\nAnswer: Paris"}, nil, "musique", 5)

	results := a.Answer(context.Background(), []retriever.QuerySolution{
		{Question: "What is the capital of France?", Docs: []string{"Paris is the capital of France."}, DocScores: []float64{1}},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "Paris", results[0].Answer)
	assert.Equal(t, "What is the capital of France?", results[0].Question)
}

func TestAnswerLeavesAnswerEmptyOnLLMFailure(t *testing.T) {
	a := New(&stubLLM{err: errors.New("boom")}, nil, "musique", 5)

	results := a.Answer(context.Background(), []retriever.QuerySolution{
		{Question: "q", Docs: []string{"d"}},
	})

	require.Len(t, results, 1)
	assert.Empty(t, results[0].Answer)
}

func TestAnswerTruncatesDocsToTopK(t *testing.T) {
	stub := &stubLLM{response: "Answer: x"}
	a := New(stub, nil, "musique", 1)

	results := a.Answer(context.Background(), []retriever.QuerySolution{
		{Question: "q", Docs: []string{"d1", "d2", "d3"}},
	})

	require.Len(t, results, 1)
	require.Len(t, stub.messages, 2)
	assert.Equal(t, BuildPrompt([]string{"d1"}, "q"), stub.messages[1].Content)
	assert.Equal(t, []string{"d1", "d2", "d3"}, results[0].Docs, "Result.Docs preserves the full retrieved list; only the LLM prompt is truncated")
}

func TestNormalizeAnswerStripsArticlesPunctuationAndCase(t *testing.T) {
	assert.Equal(t, "capital of france", NormalizeAnswer("The Capital of France."))
	assert.Equal(t, "paris", NormalizeAnswer("a Paris"))
}

func TestExactMatchIgnoresArticlesAndCase(t *testing.T) {
	assert.True(t, ExactMatch("The Eiffel Tower", "eiffel tower"))
	assert.False(t, ExactMatch("Paris", "London"))
}

func TestF1PartialOverlap(t *testing.T) {
	f1 := F1("the capital city of france", "capital of france")
	assert.Greater(t, f1, 0.5)
	assert.Less(t, f1, 1.0)
}

func TestF1BothEmptyIsPerfect(t *testing.T) {
	assert.Equal(t, 1.0, F1("the a an", "the"))
}

func TestEvaluateTakesBestScoreOverAliases(t *testing.T) {
	results := []Result{{Question: "q", Answer: "Paris"}}
	scores := Evaluate(results, [][]string{{"London", "Paris, France", "paris"}})

	require.Len(t, scores, 1)
	assert.True(t, scores[0].ExactMatch)
	assert.Greater(t, scores[0].F1, 0.0)
}

func TestEvaluateHandlesMissingGoldAliases(t *testing.T) {
	results := []Result{{Question: "q", Answer: "Paris"}}
	scores := Evaluate(results, nil)

	require.Len(t, scores, 1)
	assert.False(t, scores[0].ExactMatch)
	assert.Equal(t, 0.0, scores[0].F1)
}
