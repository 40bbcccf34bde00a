package openie

import "github.com/oakmoss/graphrag/pkg/contentid"

// FilterInvalidTriples keeps only length-3 raw triples and deduplicates
// by exact (subject, relation, object) string equality, preserving first
// occurrence order (spec §4.4).
func FilterInvalidTriples(raw [][]string) []Triple {
	seen := make(map[[3]string]bool)
	out := make([]Triple, 0, len(raw))
	for _, t := range raw {
		if len(t) != 3 {
			continue
		}
		key := [3]string{t[0], t[1], t[2]}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Triple{Subject: t[0], Relation: t[1], Object: t[2]})
	}
	return out
}

// TextProcess canonicalizes a triple element the same way phrase text is
// canonicalized (spec §4.4): lowercase, non-alnum-non-space to space,
// collapse runs of space, trim.
func TextProcess(s string) string {
	return contentid.Process(s)
}

// ProcessTriple applies TextProcess to each of a triple's three elements
// independently.
func ProcessTriple(t Triple) Triple {
	return Triple{
		Subject:  TextProcess(t.Subject),
		Relation: TextProcess(t.Relation),
		Object:   TextProcess(t.Object),
	}
}
