package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/oakmoss/graphrag/pkg/embedder"
	"github.com/oakmoss/graphrag/pkg/graph"
	"github.com/oakmoss/graphrag/pkg/openie"
	"github.com/oakmoss/graphrag/pkg/rerank"
	"github.com/oakmoss/graphrag/pkg/utils"
	"github.com/oakmoss/graphrag/pkg/vectorstore"
)

// Config carries the fusion knobs from spec §4.7.
type Config struct {
	Damping           float64
	LinkingTopK       int
	PassageNodeWeight float64
}

// Retriever implements RetrieveDPR and Retrieve (spec §4.7) over a
// shared chunk/entity/fact store set and property graph.
type Retriever struct {
	chunkStore  *vectorstore.Store
	entityStore *vectorstore.Store
	factStore   *vectorstore.Store
	graph       *graph.Graph
	openie      *openie.Store
	embedClient embedder.Client
	reranker    *rerank.Reranker
	cfg         Config
	log         *slog.Logger

	state      *cachedState
	queryCache map[string]queryEmbeddings
}

type queryEmbeddings struct {
	fact    []float64
	passage []float64
}

// cachedState is rebuilt whenever the graph's vertex count no longer
// matches |chunks| + |entities| (spec §4.7 "State preparation").
type cachedState struct {
	passageNodeKeys []string
	entityNodeKeys  []string
	factNodeKeys    []string

	passageEmbeddings [][]float64
	entityEmbeddings  [][]float64
	factEmbeddings    [][]float64

	factTriples    map[string]openie.Triple
	entityToChunks map[string]map[string]bool

	chunkCount, entityCount int
}

// New constructs a Retriever. reranker may be nil to disable fact
// reranking (Retrieve then always falls back to DPR).
func New(chunkStore, entityStore, factStore *vectorstore.Store, g *graph.Graph, openieStore *openie.Store, embedClient embedder.Client, reranker *rerank.Reranker, cfg Config) *Retriever {
	return &Retriever{
		chunkStore:  chunkStore,
		entityStore: entityStore,
		factStore:   factStore,
		graph:       g,
		openie:      openieStore,
		embedClient: embedClient,
		reranker:    reranker,
		cfg:         cfg,
		log:         slog.Default().With("component", "retriever"),
		queryCache:  make(map[string]queryEmbeddings),
	}
}

// ensureState rebuilds the retrieval caches if this is the first call or
// the graph has grown/shrunk since the last snapshot (spec §4.7).
func (r *Retriever) ensureState() *cachedState {
	chunkCount, entityCount := r.chunkStore.Len(), r.entityStore.Len()
	if r.state != nil && r.state.chunkCount == chunkCount && r.state.entityCount == entityCount && r.graph.VCount() == chunkCount+entityCount {
		return r.state
	}

	s := &cachedState{
		passageNodeKeys: r.chunkStore.AllIDs(),
		entityNodeKeys:  r.entityStore.AllIDs(),
		factNodeKeys:    r.factStore.AllIDs(),
		chunkCount:      chunkCount,
		entityCount:     entityCount,
	}
	s.passageEmbeddings = r.chunkStore.Embeddings(s.passageNodeKeys)
	s.entityEmbeddings = r.entityStore.Embeddings(s.entityNodeKeys)
	s.factEmbeddings = r.factStore.Embeddings(s.factNodeKeys)

	docs := r.openie.Docs()
	s.factTriples = openie.FactTriples(docs)
	s.entityToChunks, _ = openie.EntityToChunks(docs)

	r.state = s
	return s
}

// encodeQuery returns the (fact, passage) embeddings for query, encoding
// and caching them on first use (spec §4.7 "Query embedding").
func (r *Retriever) encodeQuery(ctx context.Context, query string) (queryEmbeddings, error) {
	if qe, ok := r.queryCache[query]; ok {
		return qe, nil
	}

	factVecs, err := r.embedClient.BatchEncode(ctx, []string{query}, embedder.EncodeOptions{
		Instruction: queryToFactInstruction,
		Normalize:   true,
	})
	if err != nil {
		return queryEmbeddings{}, fmt.Errorf("retriever: encode query (fact): %w", err)
	}
	passageVecs, err := r.embedClient.BatchEncode(ctx, []string{query}, embedder.EncodeOptions{
		Instruction: queryToPassageInstruction,
		Normalize:   true,
	})
	if err != nil {
		return queryEmbeddings{}, fmt.Errorf("retriever: encode query (passage): %w", err)
	}

	qe := queryEmbeddings{fact: factVecs[0], passage: passageVecs[0]}
	r.queryCache[query] = qe
	return qe, nil
}

// RetrieveDPR runs pure dense passage retrieval for every query (spec
// §4.7).
func (r *Retriever) RetrieveDPR(ctx context.Context, queries []string, k int) ([]QuerySolution, error) {
	state := r.ensureState()
	out := make([]QuerySolution, len(queries))

	for i, q := range queries {
		qe, err := r.encodeQuery(ctx, q)
		if err != nil {
			return nil, err
		}
		order, scores := dprOrder(state.passageEmbeddings, qe.passage)
		out[i] = r.assemble(state, q, order, scores, k)
	}
	return out, nil
}

// Retrieve runs the graph-aware hybrid retrieval path (spec §4.7).
func (r *Retriever) Retrieve(ctx context.Context, queries []string, k int) ([]QuerySolution, error) {
	state := r.ensureState()
	out := make([]QuerySolution, len(queries))

	for i, q := range queries {
		start := time.Now()
		qe, err := r.encodeQuery(ctx, q)
		if err != nil {
			return nil, err
		}

		dprOrderIdx, dprScores := dprOrder(state.passageEmbeddings, qe.passage)

		rerankStart := time.Now()
		order, scores, usedDPR, pprElapsed := r.hybridOrder(ctx, state, q, qe, dprOrderIdx, dprScores)
		rerankElapsed := time.Since(rerankStart)

		out[i] = r.assemble(state, q, order, scores, k)

		r.log.Info("retrieve",
			"query", q, "used_dpr_fallback", usedDPR,
			"rerank_time_ms", rerankElapsed.Milliseconds(),
			"ppr_time_ms", pprElapsed.Milliseconds(),
			"total_time_ms", time.Since(start).Milliseconds())
	}
	return out, nil
}

// hybridOrder computes the graph-search passage order for one query,
// falling back to the DPR order if any of fact scoring, reranking, or
// the PPR reset vector comes up empty (spec §4.7). pprElapsed is zero on any
// fallback path, since PersonalizedPageRank never runs.
func (r *Retriever) hybridOrder(ctx context.Context, state *cachedState, query string, qe queryEmbeddings, dprOrderIdx []int, dprScores []float64) (order []int, scores []float64, usedDPRFallback bool, pprElapsed time.Duration) {
	factScores, ok := r.computeFactScores(state, qe.fact)
	if !ok {
		return dprOrderIdx, dprScores, true, 0
	}

	topK := r.cfg.LinkingTopK
	if topK <= 0 || topK > len(state.factNodeKeys) {
		topK = len(state.factNodeKeys)
	}
	factOrder := sortDescByScore(factScores)
	if len(factOrder) > topK {
		factOrder = factOrder[:topK]
	}

	candidates := make([]openie.Triple, len(factOrder))
	for i, idx := range factOrder {
		candidates[i] = state.factTriples[state.factNodeKeys[idx]]
	}

	var rerankedIndices []int
	var rerankedTriples []openie.Triple
	if r.reranker != nil {
		rerankedIndices, rerankedTriples, _ = r.reranker.Rerank(ctx, query, candidates, factOrder, topK)
	}
	if len(rerankedIndices) == 0 {
		r.log.Warn("fact reranking produced nothing, falling back to dense retrieval", "query", query)
		return dprOrderIdx, dprScores, true, 0
	}

	ppr, pprElapsed, err := r.graphSearchWithFactEntities(state, factScores, rerankedIndices, rerankedTriples, dprOrderIdx, dprScores)
	if err != nil {
		r.log.Warn("graph search failed, falling back to dense retrieval", "query", query, "error", err)
		return dprOrderIdx, dprScores, true, pprElapsed
	}
	if ppr == nil {
		return dprOrderIdx, dprScores, true, pprElapsed
	}
	return ppr.order, ppr.scores, false, pprElapsed
}

// computeFactScores scores every fact against qFactVec, min-max
// normalized. Returns ok=false on empty fact set or dimension mismatch
// (spec §4.7 "Fact scoring").
func (r *Retriever) computeFactScores(state *cachedState, qFactVec []float64) ([]float64, bool) {
	if len(state.factEmbeddings) == 0 {
		r.log.Error("fact scoring: no facts in store")
		return nil, false
	}
	if len(state.factEmbeddings[0]) != len(qFactVec) {
		r.log.Error("fact scoring: dimension mismatch", "fact_dim", len(state.factEmbeddings[0]), "query_dim", len(qFactVec))
		return nil, false
	}

	raw := make([]float64, len(state.factEmbeddings))
	for i, v := range state.factEmbeddings {
		raw[i] = utils.DotProduct64(v, qFactVec)
	}
	return utils.MinMaxNormalize(raw), true
}

// assemble converts an ordered passage-space index list into a
// QuerySolution, truncated to k, logging out-of-range indices (spec
// §4.7 "Final assembly").
func (r *Retriever) assemble(state *cachedState, question string, order []int, scores []float64, k int) QuerySolution {
	docs := make([]string, 0, k)
	docScores := make([]float64, 0, k)

	for i, idx := range order {
		if len(docs) >= k {
			break
		}
		if idx < 0 || idx >= len(state.passageNodeKeys) {
			r.log.Error("retrieve: passage index out of range", "index", idx)
			continue
		}
		row, ok := r.chunkStore.Row(state.passageNodeKeys[idx])
		if !ok {
			r.log.Warn("retrieve: passage id no longer in chunk store", "id", state.passageNodeKeys[idx])
			continue
		}
		docs = append(docs, row.Text)
		docScores = append(docScores, scores[i])
	}

	return QuerySolution{Question: question, Docs: docs, DocScores: docScores}
}

func sortDescByScore(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool {
		if scores[idx[i]] != scores[idx[j]] {
			return scores[idx[i]] > scores[idx[j]]
		}
		return idx[i] < idx[j]
	})
	return idx
}
