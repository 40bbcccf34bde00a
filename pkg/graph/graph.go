package graph

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Vertex carries the fixed attribute set spec §3 requires: a name equal
// to a content hash, the same hash again for JSON round-tripping, and
// the raw content the hash was computed from.
type Vertex struct {
	Name    string `json:"name"`
	HashID  string `json:"hash_id"`
	Content string `json:"content"`
}

// Edge is a weighted arc between two vertex indices, stored once per
// direction the caller declared.
type Edge struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Weight float64 `json:"weight"`
}

// Graph is an arena-based property graph: vertices live in a slice and
// are addressed by position, with a name index for lookups by content
// hash. It is not safe for concurrent use.
type Graph struct {
	Directed bool

	vertices []Vertex
	edges    []Edge

	nameIdx map[string]int
	edgeIdx map[[2]int]int // (source,target) -> index into edges, for weight accumulation

	log *slog.Logger
}

// New returns an empty graph. directed controls how PersonalizedPageRank
// builds its adjacency: undirected graphs add the reverse arc for every
// stored edge at PPR time rather than storing it twice.
func New(directed bool) *Graph {
	return &Graph{
		Directed: directed,
		nameIdx:  make(map[string]int),
		edgeIdx:  make(map[[2]int]int),
		log:      slog.Default().With("component", "graph"),
	}
}

// VCount returns the vertex count.
func (g *Graph) VCount() int { return len(g.vertices) }

// ECount returns the edge count.
func (g *Graph) ECount() int { return len(g.edges) }

// VertexNames returns every vertex name in index order.
func (g *Graph) VertexNames() []string {
	out := make([]string, len(g.vertices))
	for i, v := range g.vertices {
		out[i] = v.Name
	}
	return out
}

// HasVertex reports whether name is present.
func (g *Graph) HasVertex(name string) bool {
	_, ok := g.nameIdx[name]
	return ok
}

// VertexIndex returns the index of name, or false if absent.
func (g *Graph) VertexIndex(name string) (int, bool) {
	i, ok := g.nameIdx[name]
	return i, ok
}

// AddVertices appends a columnar batch of vertices. All three slices
// must have equal length. A name already present in the graph, or
// duplicated within the batch itself, is a fatal Invariant error (spec
// §4.3: "duplicate names are rejected").
func (g *Graph) AddVertices(names, hashIDs, contents []string) error {
	if len(names) != len(hashIDs) || len(names) != len(contents) {
		return fmt.Errorf("graph: add_vertices: mismatched column lengths (names=%d hash_ids=%d contents=%d)",
			len(names), len(hashIDs), len(contents))
	}

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return fmt.Errorf("graph: add_vertices: duplicate name %q within batch", n)
		}
		seen[n] = true
		if g.HasVertex(n) {
			return fmt.Errorf("graph: add_vertices: name %q already exists", n)
		}
	}

	for i, n := range names {
		idx := len(g.vertices)
		g.vertices = append(g.vertices, Vertex{Name: n, HashID: hashIDs[i], Content: contents[i]})
		g.nameIdx[n] = idx
	}
	return nil
}

// AddEdges adds or accumulates weighted edges named by source/target
// vertex name. A pair referencing an unknown name is dropped with a
// warning; a self-loop is dropped silently. Repeated calls for the same
// (source, target) pair accumulate weight rather than duplicating the
// edge, which is how triple co-occurrence counts (spec §3) are built up
// across incremental index calls.
func (g *Graph) AddEdges(sourceNames, targetNames []string, weights []float64) {
	for i := range sourceNames {
		src, ok := g.nameIdx[sourceNames[i]]
		if !ok {
			g.log.Warn("add_edges: unknown source name dropped", "name", sourceNames[i])
			continue
		}
		tgt, ok := g.nameIdx[targetNames[i]]
		if !ok {
			g.log.Warn("add_edges: unknown target name dropped", "name", targetNames[i])
			continue
		}
		if src == tgt {
			continue
		}

		key := [2]int{src, tgt}
		if idx, ok := g.edgeIdx[key]; ok {
			g.edges[idx].Weight += weights[i]
			continue
		}
		g.edgeIdx[key] = len(g.edges)
		g.edges = append(g.edges, Edge{Source: src, Target: tgt, Weight: weights[i]})
	}
}

// DeleteVertices removes the named vertices, all edges incident to them,
// compacts the vertex list, and rebuilds the name and edge indexes.
// Unknown names are ignored with a warning.
func (g *Graph) DeleteVertices(names []string) {
	toRemove := make(map[int]bool, len(names))
	for _, n := range names {
		i, ok := g.nameIdx[n]
		if !ok {
			g.log.Warn("delete_vertices: unknown name ignored", "name", n)
			continue
		}
		toRemove[i] = true
	}
	if len(toRemove) == 0 {
		return
	}

	oldToNew := make(map[int]int, len(g.vertices))
	kept := make([]Vertex, 0, len(g.vertices)-len(toRemove))
	for i, v := range g.vertices {
		if toRemove[i] {
			continue
		}
		oldToNew[i] = len(kept)
		kept = append(kept, v)
	}

	keptEdges := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		if toRemove[e.Source] || toRemove[e.Target] {
			continue
		}
		keptEdges = append(keptEdges, Edge{
			Source: oldToNew[e.Source],
			Target: oldToNew[e.Target],
			Weight: e.Weight,
		})
	}

	g.vertices = kept
	g.edges = keptEdges
	g.nameIdx = make(map[string]int, len(kept))
	g.edgeIdx = make(map[[2]int]int, len(keptEdges))
	for i, v := range kept {
		g.nameIdx[v.Name] = i
	}
	for i, e := range keptEdges {
		g.edgeIdx[[2]int{e.Source, e.Target}] = i
	}
}

// graphFile is the on-disk JSON shape (spec §6).
type graphFile struct {
	Directed bool     `json:"directed"`
	Vertices []Vertex `json:"vertices"`
	Edges    []Edge   `json:"edges"`
}

// Save writes the graph to path atomically (write-temp, then rename).
func (g *Graph) Save(path string) error {
	f := graphFile{Directed: g.Directed, Vertices: g.vertices, Edges: g.edges}
	if f.Vertices == nil {
		f.Vertices = []Vertex{}
	}
	if f.Edges == nil {
		f.Edges = []Edge{}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("graph: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("graph: mkdir: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("graph: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		if werr := os.WriteFile(path, data, 0644); werr != nil {
			return fmt.Errorf("graph: fallback write: %w", werr)
		}
	}
	return nil
}

// Load reads a graph previously written by Save. Unknown JSON keys are
// tolerated (encoding/json ignores them by default). Returns an empty
// graph if path does not exist.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(false), nil
		}
		return nil, fmt.Errorf("graph: read %s: %w", path, err)
	}

	var f graphFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("graph: decode %s: %w", path, err)
	}

	g := New(f.Directed)
	g.vertices = f.Vertices
	g.edges = f.Edges
	g.nameIdx = make(map[string]int, len(f.Vertices))
	g.edgeIdx = make(map[[2]int]int, len(f.Edges))
	for i, v := range f.Vertices {
		g.nameIdx[v.Name] = i
	}
	for i, e := range f.Edges {
		g.edgeIdx[[2]int{e.Source, e.Target}] = i
	}
	return g, nil
}
