package textutil

import (
	"strings"
	"unicode"
)

// SanitizeToken converts a string to a lowercase identifier token. Letters and
// digits are kept (lowercased, diacritics folded), hyphens and underscores are
// kept, and everything else becomes a hyphen. Returns "" for input with no
// usable characters.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(FoldAccents(value))
	if value == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "_-")
}
