// Package titlematch reconciles a locally known movie title and year against
// catalog search results.
//
// Similarity is a weighted blend of whole-phrase edit distance, per-word edit
// distance, and length difference (lower is better). Match normalizes both
// sides, short-circuits on an exact title and year, and otherwise classifies the
// best-scoring candidate as flexible, fallback, or none. Everything here is a
// pure function of its arguments.
package titlematch
