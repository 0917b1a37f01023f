// Package distance measures how far apart two identifiers are, for typo
// detection.
package distance

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// Threshold is the largest edit distance at which two identifiers are treated
// as probable misspellings of each other.
const Threshold = 2

// Distance returns the Levenshtein distance between a and b: the minimum
// number of single-character insertions, deletions and substitutions.
func Distance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// Similar reports whether a and b differ, but by no more than Threshold edits.
func Similar(a, b string) bool {
	d := Distance(a, b)
	return d > 0 && d <= Threshold
}

// Closest returns the candidate most likely meant by name. Only candidates
// with 0 < distance <= Threshold qualify. The smallest distance wins and ties
// go to the lexicographically smallest candidate, so the result does not
// depend on the order of candidates.
func Closest(name string, candidates []string) (string, bool) {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	best, bestDist := "", Threshold+1
	for _, c := range sorted {
		if !Similar(name, c) {
			continue
		}
		if d := Distance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}
