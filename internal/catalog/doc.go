// Package catalog fronts the TMDB client with the lookups the poll needs.
//
// SearchByTitle fans a title out into several query variants (spacing,
// case, punctuation, year suffixes, and configured aliases), merges the
// results by TMDB ID, and returns them as titlematch candidates. Searches are
// cached for a short TTL and spaced by a minimum interval so bursts of
// lookups stay polite to the upstream API.
package catalog
