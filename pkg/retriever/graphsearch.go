package retriever

import (
	"fmt"
	"time"

	"github.com/oakmoss/graphrag/pkg/contentid"
	"github.com/oakmoss/graphrag/pkg/openie"
)

type pprResult struct {
	order  []int
	scores []float64
}

// graphSearchWithFactEntities implements spec §4.7's
// graph_search_with_fact_entities: phrase weights seeded from reranked
// fact scores, passage weights seeded from DPR, fused into a PPR reset
// vector. Returns (nil, 0, nil) when the reset vector has no mass,
// signaling the caller to fall back to DPR. The returned duration covers
// only the PersonalizedPageRank call itself, for spec §4.7's separate
// ppr_time_ms counter.
func (r *Retriever) graphSearchWithFactEntities(state *cachedState, factScores []float64, rerankedFactIndices []int, rerankedTriples []openie.Triple, dprOrderIdx []int, dprScores []float64) (*pprResult, time.Duration, error) {
	n := r.graph.VCount()
	phraseWeights := make([]float64, n)
	passageWeights := make([]float64, n)
	count := make([]int, n)

	for rank, factIdx := range rerankedFactIndices {
		score := 0.0
		if factIdx >= 0 && factIdx < len(factScores) {
			score = factScores[factIdx]
		}
		triple := rerankedTriples[rank]

		for _, entity := range []string{triple.Subject, triple.Object} {
			phraseKey := contentid.Entity(entity)
			phraseID, ok := r.graph.VertexIndex(phraseKey)
			if !ok {
				r.log.Warn("graph search: fact entity not found in graph, skipping", "entity", entity)
				continue
			}
			docCount := len(state.entityToChunks[phraseKey])
			denom := 1
			if docCount > denom {
				denom = docCount
			}
			phraseWeights[phraseID] += score / float64(denom)
			count[phraseID]++
		}
	}

	for i, c := range count {
		if c > 0 {
			phraseWeights[i] /= float64(c)
		}
	}

	applyTopKPhraseFilter(r.graph, phraseWeights, count, r.cfg.LinkingTopK)

	for i, idx := range dprOrderIdx {
		if idx < 0 || idx >= len(state.passageNodeKeys) {
			continue
		}
		vid, ok := r.graph.VertexIndex(state.passageNodeKeys[idx])
		if !ok {
			continue
		}
		passageWeights[vid] = dprScores[i] * r.cfg.PassageNodeWeight
	}

	reset := make([]float64, n)
	var sum float64
	for i := range reset {
		reset[i] = phraseWeights[i] + passageWeights[i]
		sum += reset[i]
	}
	if sum <= 0 {
		return nil, 0, nil
	}

	pprStart := time.Now()
	pprScores, err := r.graph.PersonalizedPageRank(reset, r.cfg.Damping)
	pprElapsed := time.Since(pprStart)
	if err != nil {
		return nil, pprElapsed, fmt.Errorf("retriever: personalized page rank: %w", err)
	}

	passageScores := make([]float64, len(state.passageNodeKeys))
	for i, id := range state.passageNodeKeys {
		vid, ok := r.graph.VertexIndex(id)
		if !ok {
			continue
		}
		passageScores[i] = pprScores[vid]
	}

	order := sortDescByScore(passageScores)
	scores := make([]float64, len(order))
	for i, idx := range order {
		scores[i] = passageScores[idx]
	}
	return &pprResult{order: order, scores: scores}, pprElapsed, nil
}

// applyTopKPhraseFilter zeroes out every phrase weight whose vertex name
// is not among the top linkingTopK accumulated weights (spec §4.7
// "Top-K phrase filter"). A non-positive topK disables the filter.
type phraseEntry struct {
	idx    int
	weight float64
}

func applyTopKPhraseFilter(g interface{ VertexNames() []string }, phraseWeights []float64, count []int, topK int) {
	if topK <= 0 {
		return
	}

	names := g.VertexNames()
	var encountered []phraseEntry
	for i, c := range count {
		if c > 0 {
			encountered = append(encountered, phraseEntry{idx: i, weight: phraseWeights[i]})
		}
	}
	if len(encountered) <= topK {
		return
	}

	sortEntriesDesc(encountered)
	keep := make(map[string]bool, topK)
	for i := 0; i < topK; i++ {
		keep[names[encountered[i].idx]] = true
	}

	for i, c := range count {
		if c > 0 && !keep[names[i]] {
			phraseWeights[i] = 0
		}
	}
}

func sortEntriesDesc(entries []phraseEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].weight > entries[j-1].weight; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}
