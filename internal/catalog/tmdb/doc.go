// Package tmdb provides the minimal TMDB API client used to look up movies for
// the poll.
//
// It authenticates requests and exposes movie search with an optional release
// year filter and movie detail retrieval. Responses are strongly typed so the
// catalog layer can convert them into match candidates. Options allow tests to
// supply custom HTTP clients without modifying production code.
package tmdb
