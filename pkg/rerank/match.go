package rerank

import (
	"regexp"
	"strings"
)

const jaccardThreshold = 0.2

var nonAlnumSpace = regexp.MustCompile(`[^a-z0-9 ]`)

// tripleTokenSet builds the token set spec §4.5 uses for fuzzy triple
// matching: join with spaces, lowercase, strip non-alnum, split on
// whitespace.
func tripleTokenSet(t []string) map[string]bool {
	joined := strings.ToLower(strings.Join(t, " "))
	stripped := nonAlnumSpace.ReplaceAllString(joined, " ")
	set := make(map[string]bool)
	for _, tok := range strings.Fields(stripped) {
		set[tok] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tripleEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// matchParsedTriples matches each LLM-returned triple to a candidate
// position (spec §4.5 step 5): exact equality first, each candidate
// matchable at most once; otherwise best Jaccard match at or above
// jaccardThreshold, still once-only. Returns candidate positions in the
// order the parsed triples were returned.
func matchParsedTriples(parsed [][]string, candidates [][]string) []int {
	used := make([]bool, len(candidates))
	var matched []int

	for _, p := range parsed {
		if i := findExactMatch(p, candidates, used); i >= 0 {
			used[i] = true
			matched = append(matched, i)
			continue
		}
		if i := findBestJaccardMatch(p, candidates, used); i >= 0 {
			used[i] = true
			matched = append(matched, i)
		}
	}

	return matched
}

func findExactMatch(p []string, candidates [][]string, used []bool) int {
	for i, c := range candidates {
		if used[i] {
			continue
		}
		if tripleEqual(p, c) {
			return i
		}
	}
	return -1
}

// findBestJaccardMatch scans candidates in order and keeps the first one
// to reach the best score seen so far, so ties resolve to whichever
// candidate appeared earliest.
func findBestJaccardMatch(p []string, candidates [][]string, used []bool) int {
	pSet := tripleTokenSet(p)
	best := -1
	bestScore := -1.0
	for i, c := range candidates {
		if used[i] {
			continue
		}
		score := jaccard(pSet, tripleTokenSet(c))
		if score >= jaccardThreshold && score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}
