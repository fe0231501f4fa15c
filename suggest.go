package sqlgate

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// suggestOperator returns the canonical name of the operator closest to name
// by edit distance, or "" when nothing is close enough to be a plausible typo.
func suggestOperator(name string) string {
	candidates := make([]string, 0, len(operatorAliases))
	for alias := range operatorAliases {
		candidates = append(candidates, alias)
	}
	best := closest(strings.ToLower(strings.TrimPrefix(name, "$")), candidates)
	if best == "" {
		return ""
	}
	return operatorAliases[best].String()
}

// closest returns the candidate with the smallest edit distance to input,
// provided the distance is within the typo threshold. Ties resolve to the
// lexicographically smaller candidate so results are stable.
func closest(input string, candidates []string) string {
	if input == "" {
		return ""
	}
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(input, c)
		if bestDist < 0 || d < bestDist || (d == bestDist && c < best) {
			best, bestDist = c, d
		}
	}
	if bestDist < 0 || bestDist > typoThreshold(input) {
		return ""
	}
	return best
}

// typoThreshold is 1 edit for very short input, 2 up to eight characters, and
// 3 beyond.
func typoThreshold(input string) int {
	switch n := len(input); {
	case n <= 3:
		return 1
	case n <= 8:
		return 2
	default:
		return 3
	}
}
