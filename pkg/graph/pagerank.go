package graph

import "math"

const (
	pprMaxIterations = 100
	pprConvergence   = 1e-6
)

// adjacencyEntry is one weighted arc in the flattened adjacency list used
// by PersonalizedPageRank.
type adjacencyEntry struct {
	target int
	weight float64
}

// PersonalizedPageRank runs the spec §4.3 Jacobi-iteration PPR: reset is
// normalized to a probability distribution (uniform if it sums to zero,
// with NaN/negative entries clamped to zero first), then iterated with
// explicit dangling-mass redistribution until the L1 delta between
// successive score vectors drops below 1e-6 or 100 iterations elapse.
// Returns an error if len(reset) != VCount().
func (g *Graph) PersonalizedPageRank(reset []float64, damping float64) ([]float64, error) {
	n := len(g.vertices)
	if len(reset) != n {
		return nil, errLenMismatch(len(reset), n)
	}
	if n == 0 {
		return []float64{}, nil
	}

	r := normalizeReset(reset)
	adj, out := g.buildAdjacency()

	s := make([]float64, n)
	for i := range s {
		s[i] = 1.0 / float64(n)
	}

	next := make([]float64, n)
	for iter := 0; iter < pprMaxIterations; iter++ {
		var dangling float64
		for i, o := range out {
			if o == 0 {
				dangling += s[i]
			}
		}

		for j := 0; j < n; j++ {
			next[j] = (1-damping)*r[j] + damping*dangling*r[j]
		}

		for i := 0; i < n; i++ {
			if out[i] == 0 {
				continue
			}
			c := damping * s[i] / out[i]
			for _, e := range adj[i] {
				next[e.target] += c * e.weight
			}
		}

		var delta float64
		for j := 0; j < n; j++ {
			delta += math.Abs(next[j] - s[j])
		}

		copy(s, next)
		if delta < pprConvergence {
			break
		}
	}

	return s, nil
}

// buildAdjacency flattens the edge list into an adjacency list keyed by
// source index, along with each vertex's total outgoing weight. For an
// undirected graph, every stored edge contributes an arc in both
// directions.
func (g *Graph) buildAdjacency() ([][]adjacencyEntry, []float64) {
	n := len(g.vertices)
	adj := make([][]adjacencyEntry, n)
	out := make([]float64, n)

	add := func(src, tgt int, w float64) {
		adj[src] = append(adj[src], adjacencyEntry{target: tgt, weight: w})
		out[src] += w
	}

	for _, e := range g.edges {
		add(e.Source, e.Target, e.Weight)
		if !g.Directed {
			add(e.Target, e.Source, e.Weight)
		}
	}

	return adj, out
}

// normalizeReset clamps NaN and negative entries to zero, then scales to
// sum to 1. A reset vector that sums to zero (or is empty of mass after
// clamping) becomes uniform.
func normalizeReset(reset []float64) []float64 {
	n := len(reset)
	out := make([]float64, n)
	var sum float64
	for i, x := range reset {
		if math.IsNaN(x) || x < 0 {
			x = 0
		}
		out[i] = x
		sum += x
	}
	if sum <= 0 {
		uniform := 1.0 / float64(n)
		for i := range out {
			out[i] = uniform
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
