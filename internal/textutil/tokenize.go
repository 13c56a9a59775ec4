package textutil

import (
	"regexp"
	"strings"
)

// tokenSplitPattern matches runs of characters that are neither letters nor digits.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

var stopwords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "from": {}, "into": {},
	"onto": {}, "but": {}, "not": {}, "are": {}, "was": {}, "its": {},
	"his": {}, "her": {}, "our": {}, "your": {}, "you": {}, "who": {},
	"all": {}, "out": {},
}

// Tokenize splits text into lowercase tokens, filtering tokens shorter than 3 runes.
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	raw := tokenSplitPattern.Split(lowered, -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if len([]rune(token)) < 3 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

// IsStopword reports whether a lowercase token carries no identifying weight.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// SignificantWords returns the distinct tokens of text that are longer than two
// runes and not stopwords, in first-seen order.
func SignificantWords(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if IsStopword(token) {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

// SharesSignificantWord reports whether a and b have a significant word in common.
func SharesSignificantWord(a, b string) bool {
	left := SignificantWords(a)
	if len(left) == 0 {
		return false
	}
	right := make(map[string]struct{})
	for _, token := range SignificantWords(b) {
		right[token] = struct{}{}
	}
	for _, token := range left {
		if _, ok := right[token]; ok {
			return true
		}
	}
	return false
}
