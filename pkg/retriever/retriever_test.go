package retriever

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/oakmoss/graphrag/pkg/contentid"
	"github.com/oakmoss/graphrag/pkg/embedder"
	"github.com/oakmoss/graphrag/pkg/graph"
	"github.com/oakmoss/graphrag/pkg/indexer"
	"github.com/oakmoss/graphrag/pkg/llmclient"
	"github.com/oakmoss/graphrag/pkg/openie"
	"github.com/oakmoss/graphrag/pkg/rerank"
	"github.com/oakmoss/graphrag/pkg/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbedder deterministically maps each text to a fixed-dimension
// vector derived from its rune sum, so identical text always yields
// identical vectors and results stay reproducible across calls.
type hashEmbedder struct{}

func (hashEmbedder) BatchEncode(_ context.Context, texts []string, opts embedder.EncodeOptions) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		text := t
		if opts.Instruction != "" {
			text = opts.Instruction + " " + text
		}
		var a, b float64
		for j, r := range text {
			a += float64(r)
			b += float64(r) * float64(j+1)
		}
		out[i] = []float64{a, b, 1}
		if opts.Normalize {
			mag := a*a + b*b + 1
			if mag > 0 {
				out[i] = []float64{a / mag, b / mag, 1 / mag}
			}
		}
	}
	return out, nil
}
func (hashEmbedder) Dimensions() int { return 3 }
func (hashEmbedder) Close() error    { return nil }

type fakeExtractor struct {
	byChunk map[string]struct {
		entities []string
		triples  [][]string
	}
}

func (f *fakeExtractor) BatchOpenIE(_ context.Context, rows map[string]string) (map[string]openie.NerOut, map[string]openie.TripleOut, error) {
	ner := make(map[string]openie.NerOut, len(rows))
	triples := make(map[string]openie.TripleOut, len(rows))
	for id := range rows {
		data := f.byChunk[id]
		ner[id] = openie.NerOut{ChunkID: id, UniqueEntities: data.entities}
		triples[id] = openie.TripleOut{ChunkID: id, Triples: data.triples}
	}
	return ner, triples, nil
}

type stubLLM struct{ response string }

func (c *stubLLM) Infer(_ context.Context, _ []llmclient.Message) (*llmclient.Response, error) {
	return &llmclient.Response{Content: c.response}, nil
}
func (c *stubLLM) Close() error { return nil }

func buildCorpus(t *testing.T, reranker *rerank.Reranker) *Retriever {
	t.Helper()
	dir, err := os.MkdirTemp("", "retriever-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	client := hashEmbedder{}
	chunkStore, err := vectorstore.Open(filepath.Join(dir, "vdb_chunk.json"), contentid.ChunkPrefix, client)
	require.NoError(t, err)
	entityStore, err := vectorstore.Open(filepath.Join(dir, "vdb_entity.json"), contentid.EntityPrefix, client)
	require.NoError(t, err)
	factStore, err := vectorstore.Open(filepath.Join(dir, "vdb_fact.json"), contentid.FactPrefix, client)
	require.NoError(t, err)
	g := graph.New(false)
	openieStore, err := openie.Open(filepath.Join(dir, "openie.json"))
	require.NoError(t, err)

	p1 := "Paris is the capital of France."
	p2 := "France is in Europe."
	extractor := &fakeExtractor{byChunk: map[string]struct {
		entities []string
		triples  [][]string
	}{
		contentid.Chunk(p1): {entities: []string{"Paris", "France"}, triples: [][]string{{"Paris", "capital of", "France"}}},
		contentid.Chunk(p2): {entities: []string{"France", "Europe"}, triples: [][]string{{"France", "in", "Europe"}}},
	}}

	idx := indexer.New(chunkStore, entityStore, factStore, g, filepath.Join(dir, "graph.json"), openieStore, extractor, indexer.Config{
		OpenIEMode: "online", SynonymyEdgeTopK: 5, SynonymyEdgeSimThreshold: 0.999,
	})
	require.NoError(t, idx.Index(context.Background(), []string{p1, p2}))

	return New(chunkStore, entityStore, factStore, g, openieStore, client, reranker, Config{
		Damping:           0.5,
		LinkingTopK:       10,
		PassageNodeWeight: 0.05,
	})
}

func TestRetrieveDPRReturnsBoundedResultsDeterministically(t *testing.T) {
	r := buildCorpus(t, nil)

	sols1, err := r.RetrieveDPR(context.Background(), []string{"Where is Paris?"}, 1)
	require.NoError(t, err)
	sols2, err := r.RetrieveDPR(context.Background(), []string{"Where is Paris?"}, 1)
	require.NoError(t, err)

	require.Len(t, sols1, 1)
	assert.LessOrEqual(t, len(sols1[0].Docs), 1)
	assert.Equal(t, sols1, sols2, "DPR must be deterministic given a fixed embedding client")
}

func TestRetrieveFallsBackToDPRWithoutReranker(t *testing.T) {
	r := buildCorpus(t, nil)

	sols, err := r.Retrieve(context.Background(), []string{"What is the capital of France?"}, 2)
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.NotEmpty(t, sols[0].Docs)
}

func TestRetrieveHybridPathUsesGraphSearchOnFactMatch(t *testing.T) {
	stub := &stubLLM{response: `{"fact": [["paris", "capital of", "france"]]}`}
	r := buildCorpus(t, rerank.New(stub, nil))

	sols, err := r.Retrieve(context.Background(), []string{"What is the capital of France?"}, 2)
	require.NoError(t, err)
	require.Len(t, sols, 1)
	assert.NotEmpty(t, sols[0].Docs)
	assert.Equal(t, len(sols[0].Docs), len(sols[0].DocScores))
}

func TestRetrieveQueryEmbeddingIsCachedAcrossCalls(t *testing.T) {
	r := buildCorpus(t, nil)

	_, err := r.encodeQuery(context.Background(), "cached query")
	require.NoError(t, err)
	assert.Contains(t, r.queryCache, "cached query")
}
