package openie

import "github.com/oakmoss/graphrag/pkg/contentid"

// EntityToChunks replays the well-formed, text-processed triples of every
// cached record and returns, for each entity id and each fact id, the set
// of chunk ids that mention it. This is the only re-entry path for that
// accounting: it is never persisted on its own, only recomputed from the
// OpenIE cache (spec §4.6, §4.7).
func EntityToChunks(docs []DocRecord) (entityToChunks, factToChunks map[string]map[string]bool) {
	entityToChunks = make(map[string]map[string]bool)
	factToChunks = make(map[string]map[string]bool)

	for _, d := range docs {
		for _, t := range FilterInvalidTriples(d.ExtractedTriples) {
			pt := ProcessTriple(t)
			if pt.Subject == "" || pt.Object == "" {
				continue
			}
			addChunk(entityToChunks, contentid.Entity(pt.Subject), d.Idx)
			addChunk(entityToChunks, contentid.Entity(pt.Object), d.Idx)
			addChunk(factToChunks, contentid.Fact(pt.Subject, pt.Relation, pt.Object), d.Idx)
		}
	}

	return entityToChunks, factToChunks
}

// FactTriples replays every cached record's well-formed, text-processed
// triples and returns the processed Triple for each fact id encountered.
// Retrieval uses this to recover a fact's (subject, relation, object)
// from its id, since the fact store only holds the stringified form
// (spec §4.7).
func FactTriples(docs []DocRecord) map[string]Triple {
	out := make(map[string]Triple)
	for _, d := range docs {
		for _, t := range FilterInvalidTriples(d.ExtractedTriples) {
			pt := ProcessTriple(t)
			if pt.Subject == "" || pt.Object == "" {
				continue
			}
			out[contentid.Fact(pt.Subject, pt.Relation, pt.Object)] = pt
		}
	}
	return out
}

func addChunk(m map[string]map[string]bool, key, chunkID string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]bool)
		m[key] = set
	}
	set[chunkID] = true
}
