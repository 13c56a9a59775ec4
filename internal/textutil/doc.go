// Package textutil provides the string helpers shared by title matching and
// poll bookkeeping.
//
// The primary use cases are:
//   - Normalizing movie titles before comparison (case, diacritics, punctuation, articles)
//   - Tokenizing titles into significant words
//   - Sanitizing poll identifiers into stable lowercase tokens
package textutil
