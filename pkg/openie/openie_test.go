package openie

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/oakmoss/graphrag/pkg/contentid"
	"github.com/oakmoss/graphrag/pkg/llmclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterInvalidTriplesKeepsLengthThreeAndDedupes(t *testing.T) {
	raw := [][]string{
		{"Paris", "capital of", "France"},
		{"Paris", "capital of", "France"},
		{"too", "short"},
		{"too", "many", "elements", "here"},
		{"France", "in", "Europe"},
	}

	out := FilterInvalidTriples(raw)
	require.Len(t, out, 2)
	assert.Equal(t, Triple{"Paris", "capital of", "France"}, out[0])
	assert.Equal(t, Triple{"France", "in", "Europe"}, out[1])
}

func TestProcessTripleAppliesTextProcessingElementwise(t *testing.T) {
	got := ProcessTriple(Triple{"Paris!", "Capital-Of", "France."})
	assert.Equal(t, Triple{"paris", "capital of", "france"}, got)
}

func TestStoreOpenIndexAndRepairsIdx(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "openie-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "openie_results_ner_test.json")
	s, err := Open(path)
	require.NoError(t, err)

	passage := "Paris is the capital of France."
	err = s.Merge([]DocRecord{{
		Idx:               "stale-idx",
		Passage:           passage,
		ExtractedEntities: []string{"Paris", "France"},
		ExtractedTriples:  [][]string{{"Paris", "capital of", "France"}},
	}})
	require.NoError(t, err)

	reopened, err := Open(path)
	require.NoError(t, err)
	d, ok := reopened.Get(contentid.Chunk(passage))
	require.True(t, ok)
	assert.Equal(t, contentid.Chunk(passage), d.Idx)
}

func TestStorePartitionSplitsCachedAndMissing(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "openie-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	s, err := Open(filepath.Join(tmpDir, "openie.json"))
	require.NoError(t, err)

	cachedPassage := "cached passage"
	require.NoError(t, s.Merge([]DocRecord{{Passage: cachedPassage, Idx: contentid.Chunk(cachedPassage)}}))

	cached, toExtract := s.Partition(map[string]string{
		contentid.Chunk(cachedPassage): cachedPassage,
		contentid.Chunk("new passage"): "new passage",
	})
	assert.Len(t, cached, 1)
	assert.Len(t, toExtract, 1)
}

func TestStoreDeletePartitionsKeptAndRemoved(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "openie-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	path := filepath.Join(tmpDir, "openie.json")
	s, err := Open(path)
	require.NoError(t, err)

	a, b := "passage a", "passage b"
	require.NoError(t, s.Merge([]DocRecord{
		{Passage: a, Idx: contentid.Chunk(a)},
		{Passage: b, Idx: contentid.Chunk(b)},
	}))

	removed, err := s.Delete([]string{contentid.Chunk(a)})
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, contentid.Chunk(a), removed[0].Idx)

	_, ok := s.Get(contentid.Chunk(a))
	assert.False(t, ok)
	_, ok = s.Get(contentid.Chunk(b))
	assert.True(t, ok)
}

type stubClient struct {
	responses []string
	calls     int
}

func (c *stubClient) Infer(_ context.Context, _ []llmclient.Message) (*llmclient.Response, error) {
	i := c.calls
	c.calls++
	if i >= len(c.responses) {
		return &llmclient.Response{Content: "{}"}, nil
	}
	return &llmclient.Response{Content: c.responses[i]}, nil
}
func (c *stubClient) Close() error { return nil }

func TestReferenceExtractorParsesTolerantJSON(t *testing.T) {
	client := &stubClient{responses: []string{
		`Sure, here you go:\n{"named_entities": ["Paris", "France"]}`,
		`{"triples": [["Paris", "capital of", "France"]]}`,
	}}
	extractor := NewReferenceExtractor(client)

	ner, triples, err := extractor.BatchOpenIE(context.Background(), map[string]string{
		"chunk-1": "Paris is the capital of France.",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Paris", "France"}, ner["chunk-1"].UniqueEntities)
	assert.Equal(t, [][]string{{"Paris", "capital of", "France"}}, triples["chunk-1"].Triples)
}

func TestReferenceExtractorFallsBackToEmptyOnMalformedResponse(t *testing.T) {
	client := &stubClient{responses: []string{"not json at all and no braces"}}
	extractor := NewReferenceExtractor(client)

	ner, triples, err := extractor.BatchOpenIE(context.Background(), map[string]string{
		"chunk-1": "some passage",
	})
	require.NoError(t, err)
	assert.Empty(t, ner["chunk-1"].UniqueEntities)
	assert.Contains(t, ner["chunk-1"].Metadata, "error")
	assert.Empty(t, triples["chunk-1"].Triples)
}
