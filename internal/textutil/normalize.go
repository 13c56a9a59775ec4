package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ampersandReplacer = strings.NewReplacer("&", " and ", "+", " and ")

var articles = map[string]struct{}{
	"the": {},
	"a":   {},
	"an":  {},
}

// FoldAccents strips combining marks so "Amélie" compares equal to "Amelie".
func FoldAccents(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return folded
}

// NormalizeTitle canonicalizes a movie title for comparison. It lowercases,
// folds diacritics, spells out "&" and "+", drops punctuation other than
// hyphens inside words, collapses whitespace, and strips leading or trailing
// articles. A title made only of articles keeps its last word.
func NormalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	title = ampersandReplacer.Replace(strings.ToLower(FoldAccents(title)))

	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '_':
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	words := fields[:0]
	for _, field := range fields {
		field = strings.Trim(field, "-")
		if field != "" {
			words = append(words, field)
		}
	}
	words = trimArticles(words)
	return strings.Join(words, " ")
}

func trimArticles(words []string) []string {
	for len(words) > 1 {
		if _, ok := articles[words[0]]; !ok {
			break
		}
		words = words[1:]
	}
	for len(words) > 1 {
		if _, ok := articles[words[len(words)-1]]; !ok {
			break
		}
		words = words[:len(words)-1]
	}
	return words
}

// NormalizeSpacing collapses runs of whitespace into single spaces.
func NormalizeSpacing(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// StripPunctuation removes every rune that is not a letter, digit, or space.
func StripPunctuation(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, value)
}
