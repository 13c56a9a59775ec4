package titlematch

import (
	"strings"
	"unicode/utf8"
)

// EditDistance returns the Levenshtein distance between a and b, counted in
// runes with unit cost for insertion, deletion, and substitution.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	rows, cols := len(ra)+1, len(rb)+1

	matrix := make([][]int, rows)
	for i := range matrix {
		matrix[i] = make([]int, cols)
		matrix[i][0] = i
	}
	for j := 0; j < cols; j++ {
		matrix[0][j] = j
	}

	for i := 1; i < rows; i++ {
		for j := 1; j < cols; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,
				matrix[i][j-1]+1,
				matrix[i-1][j-1]+cost,
			)
		}
	}
	return matrix[rows-1][cols-1]
}

// WordDistance splits both strings on spaces, underscores, and hyphens, and sums
// for every word of a the smallest edit distance to any word of b. A word with
// no counterpart costs the rune length of b.
func WordDistance(a, b string) int {
	wordsA := splitWords(a)
	wordsB := splitWords(b)
	ceiling := utf8.RuneCountInString(b)

	total := 0
	for _, wa := range wordsA {
		best := ceiling
		for _, wb := range wordsB {
			d := EditDistance(wa, wb)
			if d < best {
				best = d
			}
			if d == 0 {
				break
			}
		}
		total += best
	}
	return total
}

// LengthDelta is the absolute difference in rune length.
func LengthDelta(a, b string) int {
	d := utf8.RuneCountInString(a) - utf8.RuneCountInString(b)
	if d < 0 {
		return -d
	}
	return d
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
}
