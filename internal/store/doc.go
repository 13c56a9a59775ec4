// Package store persists movies, votes, and appeal snapshots.
//
// A Store wraps database/sql and speaks either SQLite (modernc.org/sqlite, the
// default) or PostgreSQL (github.com/lib/pq). Queries are written once with
// `?` placeholders and rebound for the active driver. Schema changes live in
// embedded per-driver migration files recorded in schema_migrations.
//
// Votes and snapshots are scoped by poll identifier; movies are shared across
// polls. Lookups that miss return ErrNotFound.
package store
