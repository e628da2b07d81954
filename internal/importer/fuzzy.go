package importer

import (
	"strings"

	"golang.org/x/text/cases"
)

// DefaultThreshold is the minimum similarity for a delegate name to resolve.
const DefaultThreshold = 0.65

var folder = cases.Fold()

// normalizeName folds case and collapses whitespace.
func normalizeName(s string) string {
	return folder.String(strings.Join(strings.Fields(s), " "))
}

// levenshtein is the edit distance between a and b counted in runes, so
// Arabic names are compared letter by letter rather than byte by byte.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// Similarity is (maxLen - distance) / maxLen over case-folded names, in [0, 1].
func Similarity(a, b string) float64 {
	ra := []rune(normalizeName(a))
	rb := []rune(normalizeName(b))

	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1
	}

	return float64(maxLen-levenshtein(ra, rb)) / float64(maxLen)
}

// Match is the outcome of resolving free text against the canonical names.
type Match struct {
	Name       string
	Similarity float64
	Resolved   bool
}

// BestMatch returns the candidate most similar to input. Resolved is set only
// when that similarity reaches threshold. Ties keep the earlier candidate.
func BestMatch(input string, candidates []string, threshold float64) Match {
	var best Match
	for _, c := range candidates {
		score := Similarity(input, c)
		if score > best.Similarity || best.Name == "" {
			best = Match{Name: c, Similarity: score}
		}
	}

	best.Resolved = best.Name != "" && best.Similarity >= threshold
	return best
}
