// Package similarity scores how alike two free-text descriptions are.
package similarity

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Similarity returns a case-insensitive score in [0,1] derived from the
// Levenshtein edit distance between a and b:
//
//	1 - distance(a, b) / max(len(a), len(b))
//
// Lengths are counted in runes and every edit costs 1. Two empty strings are
// identical and score 1.0.
//
// The distance is computed with a full matrix, so both time and space are
// O(len(a)*len(b)).
func Similarity(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1.0
	}

	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptionsWithSub)
	return 1.0 - float64(distance)/float64(longest)
}
