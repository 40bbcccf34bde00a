package retriever

import "github.com/oakmoss/graphrag/pkg/utils"

// dprOrder computes dense passage retrieval scores against qPassageVec,
// min-max normalizes them, and returns indices into passageEmbeddings
// sorted by descending score (spec §4.7 "Dense passage retrieval").
func dprOrder(passageEmbeddings [][]float64, qPassageVec []float64) (order []int, scores []float64) {
	raw := make([]float64, len(passageEmbeddings))
	for i, v := range passageEmbeddings {
		raw[i] = utils.DotProduct64(v, qPassageVec)
	}
	normalized := utils.MinMaxNormalize(raw)

	order = sortDescByScore(normalized)
	scores = make([]float64, len(order))
	for i, idx := range order {
		scores[i] = normalized[idx]
	}
	return order, scores
}
