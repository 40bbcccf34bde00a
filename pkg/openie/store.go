package openie

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oakmoss/graphrag/pkg/contentid"
)

// DocRecord is one persisted OpenIE result (spec §6).
type DocRecord struct {
	Idx               string     `json:"idx"`
	Passage           string     `json:"passage"`
	ExtractedEntities []string   `json:"extracted_entities"`
	ExtractedTriples  [][]string `json:"extracted_triples"`
}

type resultsFile struct {
	Docs        []DocRecord `json:"docs"`
	AvgEntChars float64     `json:"avg_ent_chars"`
	AvgEntWords float64     `json:"avg_ent_words"`
}

// Store is the per-working-directory OpenIE result cache (spec §4.4),
// keyed by chunk id (content hash of the passage).
type Store struct {
	path string
	docs []DocRecord
	byID map[string]int
}

// Open loads a result store from path, repairing each entry's idx from
// its passage's content hash (passages are content-addressed, so a
// stale or hand-edited idx is always recoverable). Returns an empty
// store if path does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path, byID: make(map[string]int)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("openie: read %s: %w", path, err)
	}

	var f resultsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("openie: decode %s: %w", path, err)
	}

	s.docs = f.Docs
	for i := range s.docs {
		s.docs[i].Idx = contentid.Chunk(s.docs[i].Passage)
	}
	s.rebuildIndex()
	return s, nil
}

func (s *Store) rebuildIndex() {
	s.byID = make(map[string]int, len(s.docs))
	for i, d := range s.docs {
		s.byID[d.Idx] = i
	}
}

// Get returns the cached record for chunkID, if present.
func (s *Store) Get(chunkID string) (DocRecord, bool) {
	i, ok := s.byID[chunkID]
	if !ok {
		return DocRecord{}, false
	}
	return s.docs[i], true
}

// Partition splits chunks (chunk id -> passage content) into the subset
// already cached and the subset that still needs extraction.
func (s *Store) Partition(chunks map[string]string) (cached map[string]DocRecord, toExtract map[string]string) {
	cached = make(map[string]DocRecord)
	toExtract = make(map[string]string)
	for id, content := range chunks {
		if d, ok := s.byID[id]; ok {
			cached[id] = s.docs[d]
			continue
		}
		toExtract[id] = content
	}
	return cached, toExtract
}

// Merge appends newly extracted records not already cached, recomputes
// the corpus-level entity-length averages, and persists the whole file.
func (s *Store) Merge(newDocs []DocRecord) error {
	appended := false
	for _, d := range newDocs {
		if _, ok := s.byID[d.Idx]; ok {
			continue
		}
		s.docs = append(s.docs, d)
		appended = true
	}
	if !appended {
		return nil
	}
	s.rebuildIndex()
	return s.persist()
}

// Delete removes the given chunk ids, returning the removed records so
// the caller can compute fact/entity removability, and persists the
// surviving records.
func (s *Store) Delete(chunkIDs []string) ([]DocRecord, error) {
	remove := make(map[string]bool, len(chunkIDs))
	for _, id := range chunkIDs {
		remove[id] = true
	}

	var kept, removed []DocRecord
	for _, d := range s.docs {
		if remove[d.Idx] {
			removed = append(removed, d)
			continue
		}
		kept = append(kept, d)
	}

	s.docs = kept
	s.rebuildIndex()
	return removed, s.persist()
}

// Docs returns every cached record.
func (s *Store) Docs() []DocRecord {
	out := make([]DocRecord, len(s.docs))
	copy(out, s.docs)
	return out
}

func (s *Store) averages() (avgChars, avgWords float64) {
	var totalChars, totalWords, count float64
	for _, d := range s.docs {
		for _, e := range d.ExtractedEntities {
			count++
			totalChars += float64(len([]rune(e)))
			totalWords += float64(len(strings.Fields(e)))
		}
	}
	if count == 0 {
		return 0, 0
	}
	return totalChars / count, totalWords / count
}

func (s *Store) persist() error {
	avgChars, avgWords := s.averages()
	f := resultsFile{Docs: s.docs, AvgEntChars: avgChars, AvgEntWords: avgWords}
	if f.Docs == nil {
		f.Docs = []DocRecord{}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("openie: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("openie: mkdir: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("openie: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		if werr := os.WriteFile(s.path, data, 0644); werr != nil {
			return fmt.Errorf("openie: fallback write: %w", werr)
		}
	}
	return nil
}
