// Package appeal turns raw poll votes into per-movie appeal records.
//
// Compute is a pure function over a materialized vote slice: it validates every
// vote, keeps only the latest vote per (movie, user) pair, and derives the mean
// vibe, the share of voters who have seen the movie, and the visibility-adjusted
// final appeal. Rank orders the resulting records deterministically for display.
package appeal
