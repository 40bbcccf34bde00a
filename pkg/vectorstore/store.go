package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/oakmoss/graphrag/pkg/contentid"
	"github.com/oakmoss/graphrag/pkg/embedder"
)

// Row is one embedding-store record: a content-addressed id, the source
// text it was derived from, and its vector.
type Row struct {
	HashID string
	Text   string
	Vector []float64
}

// fileFormat is the on-disk JSON shape (spec §6): a single object with
// three parallel arrays.
type fileFormat struct {
	HashIDs    []string    `json:"hashIds"`
	Texts      []string    `json:"texts"`
	Embeddings [][]float64 `json:"embeddings"`
}

// Store is a namespaced, persistent, insertion-ordered embedding
// collection. It is not safe for concurrent use from multiple goroutines
// against the same directory; the retriever core is single-threaded with
// respect to its own state (spec §5).
type Store struct {
	path   string
	prefix string
	client embedder.Client

	hashIDs    []string
	texts      []string
	embeddings [][]float64

	idIndex   map[string]int // hash_id -> index
	textIndex map[string]int // text -> index

	log *slog.Logger
}

// Open loads a store from path if it exists, or starts an empty one.
// prefix is the contentid namespace prefix (contentid.ChunkPrefix,
// contentid.EntityPrefix, or contentid.FactPrefix) used by Insert to hash
// new texts.
func Open(path, prefix string, client embedder.Client) (*Store, error) {
	s := &Store{
		path:      path,
		prefix:    prefix,
		client:    client,
		idIndex:   make(map[string]int),
		textIndex: make(map[string]int),
		log:       slog.Default().With("component", "vectorstore", "namespace", prefix),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("vectorstore: read %s: %w", path, err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("vectorstore: decode %s: %w", path, err)
	}
	if len(f.HashIDs) != len(f.Texts) || len(f.HashIDs) != len(f.Embeddings) {
		return nil, fmt.Errorf("vectorstore: %s: mismatched array lengths (ids=%d texts=%d vectors=%d)",
			path, len(f.HashIDs), len(f.Texts), len(f.Embeddings))
	}

	s.hashIDs = f.HashIDs
	s.texts = f.Texts
	s.embeddings = f.Embeddings
	s.rebuildIndexes()

	return s, nil
}

func (s *Store) rebuildIndexes() {
	s.idIndex = make(map[string]int, len(s.hashIDs))
	s.textIndex = make(map[string]int, len(s.texts))
	for i, id := range s.hashIDs {
		s.idIndex[id] = i
	}
	for i, t := range s.texts {
		s.textIndex[t] = i
	}
}

// Missing returns the subset of texts whose content hash is not already
// present, mapped hash_id -> text.
func (s *Store) Missing(texts []string) map[string]string {
	out := make(map[string]string)
	for _, t := range texts {
		id := contentid.Hash(t, s.prefix)
		if _, ok := s.idIndex[id]; ok {
			continue
		}
		out[id] = t
	}
	return out
}

// Insert hashes each text, encodes the ones not already stored via the
// embedding client in a single batch, and appends new rows in the order
// the client returned them. Blank texts are dropped with a warn count.
// Duplicate content within the batch (or already-stored content)
// collapses to one record. Returns the ids for every non-blank input
// text, in input order, including ones that already existed.
func (s *Store) Insert(ctx context.Context, texts []string) ([]string, error) {
	dropped := 0
	ids := make([]string, 0, len(texts))
	seen := make(map[string]bool)
	var pendingTexts []string
	var pendingIDs []string

	for _, t := range texts {
		if t == "" {
			dropped++
			continue
		}
		id := contentid.Hash(t, s.prefix)
		ids = append(ids, id)
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := s.idIndex[id]; ok {
			continue
		}
		pendingTexts = append(pendingTexts, t)
		pendingIDs = append(pendingIDs, id)
	}

	if dropped > 0 {
		s.log.Warn("dropped blank texts on insert", "count", dropped)
	}

	if len(pendingTexts) > 0 {
		vectors, err := s.client.BatchEncode(ctx, pendingTexts, embedder.EncodeOptions{})
		if err != nil {
			return nil, fmt.Errorf("vectorstore: encode %d pending texts: %w", len(pendingTexts), err)
		}
		if len(vectors) != len(pendingTexts) {
			return nil, fmt.Errorf("vectorstore: invariant violated: embedding client returned %d vectors for %d inputs",
				len(vectors), len(pendingTexts))
		}

		for i, t := range pendingTexts {
			s.hashIDs = append(s.hashIDs, pendingIDs[i])
			s.texts = append(s.texts, t)
			s.embeddings = append(s.embeddings, vectors[i])
		}
		s.rebuildIndexes()

		if err := s.persist(); err != nil {
			return nil, err
		}
	}

	return ids, nil
}

// AllIDs returns every stored hash_id in insertion order.
func (s *Store) AllIDs() []string {
	out := make([]string, len(s.hashIDs))
	copy(out, s.hashIDs)
	return out
}

// AllTexts returns every stored text in insertion order.
func (s *Store) AllTexts() []string {
	out := make([]string, len(s.texts))
	copy(out, s.texts)
	return out
}

// Row returns the row for id, or false if it is not stored.
func (s *Store) Row(id string) (Row, bool) {
	i, ok := s.idIndex[id]
	if !ok {
		return Row{}, false
	}
	return Row{HashID: s.hashIDs[i], Text: s.texts[i], Vector: s.embeddings[i]}, true
}

// Rows returns rows for the given ids, in the given order. Unknown ids
// are silently skipped.
func (s *Store) Rows(ids []string) []Row {
	out := make([]Row, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.Row(id); ok {
			out = append(out, r)
		}
	}
	return out
}

// Embedding returns the vector for id, or false if it is not stored.
func (s *Store) Embedding(id string) ([]float64, bool) {
	i, ok := s.idIndex[id]
	if !ok {
		return nil, false
	}
	return s.embeddings[i], true
}

// Embeddings returns vectors for the given ids, in the given order.
// Unknown ids are silently skipped.
func (s *Store) Embeddings(ids []string) [][]float64 {
	out := make([][]float64, 0, len(ids))
	for _, id := range ids {
		if v, ok := s.Embedding(id); ok {
			out = append(out, v)
		}
	}
	return out
}

// Len reports the number of stored rows.
func (s *Store) Len() int { return len(s.hashIDs) }

// Delete removes rows by id, ignoring unknown ids with a warning, then
// rebuilds indexes and persists.
func (s *Store) Delete(ids []string) error {
	toRemove := make(map[int]bool)
	for _, id := range ids {
		i, ok := s.idIndex[id]
		if !ok {
			s.log.Warn("delete: unknown id ignored", "id", id)
			continue
		}
		toRemove[i] = true
	}
	if len(toRemove) == 0 {
		return nil
	}

	order := make([]int, 0, len(toRemove))
	for i := range toRemove {
		order = append(order, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(order)))

	for _, i := range order {
		s.hashIDs = append(s.hashIDs[:i], s.hashIDs[i+1:]...)
		s.texts = append(s.texts[:i], s.texts[i+1:]...)
		s.embeddings = append(s.embeddings[:i], s.embeddings[i+1:]...)
	}
	s.rebuildIndexes()

	return s.persist()
}

// persist writes the store to disk atomically: write to a temp file in
// the same directory, then rename over the target. Falls back to a
// direct write if the platform's rename cannot replace an existing file
// atomically (spec §4.2).
func (s *Store) persist() error {
	f := fileFormat{HashIDs: s.hashIDs, Texts: s.texts, Embeddings: s.embeddings}
	if f.HashIDs == nil {
		f.HashIDs = []string{}
	}
	if f.Texts == nil {
		f.Texts = []string{}
	}
	if f.Embeddings == nil {
		f.Embeddings = [][]float64{}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("vectorstore: marshal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("vectorstore: mkdir: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("vectorstore: write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		if runtime.GOOS == "windows" {
			// os.Rename cannot replace an existing file on Windows; fall
			// back to a direct (non-atomic) write.
			_ = os.Remove(tmpPath)
			if werr := os.WriteFile(s.path, data, 0644); werr != nil {
				return fmt.Errorf("vectorstore: fallback write: %w", werr)
			}
			return nil
		}
		return fmt.Errorf("vectorstore: rename temp file: %w", err)
	}

	return nil
}
