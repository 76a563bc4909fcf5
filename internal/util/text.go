package util

import (
	"math"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold applies NFKC normalization and Unicode case folding
func Fold(s string) string {
	// Casers carry state, so each call gets its own
	return cases.Fold().String(norm.NFKC.String(s))
}

// Tokens splits text into folded word tokens (runs of letters and digits)
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Multiset counts occurrences of each string
func Multiset(items []string) map[string]int {
	counts := make(map[string]int, len(items))
	for _, item := range items {
		counts[item]++
	}
	return counts
}

// MultisetIoU returns sum(min)/sum(max) over two multisets.
// Two empty multisets are identical and score 1.
func MultisetIoU(a, b map[string]int) float64 {
	var inter, union int
	for k, ca := range a {
		cb := b[k]
		inter += min(ca, cb)
		union += max(ca, cb)
	}
	for k, cb := range b {
		if _, ok := a[k]; !ok {
			union += cb
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

// TokenSimilarity is the token-overlap ratio of two texts
func TokenSimilarity(a, b string) float64 {
	return MultisetIoU(Multiset(Tokens(a)), Multiset(Tokens(b)))
}

// Clamp01 limits v to [0, 1]; NaN becomes 0
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Round rounds to the given number of decimal places
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Truncate shortens s to at most n runes, appending "..." when cut
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
