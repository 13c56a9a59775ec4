package testsupport

import (
	"context"
	"testing"
	"time"

	"moviepoll/internal/appeal"
	"moviepoll/internal/config"
	"moviepoll/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewMovie inserts a movie with the given title and year.
func NewMovie(t testing.TB, st *store.Store, title string, year int) *store.Movie {
	t.Helper()

	m, err := st.AddMovie(context.Background(), store.Movie{Title: title, Year: year})
	if err != nil {
		t.Fatalf("store.AddMovie: %v", err)
	}
	return m
}

// NewVote records a vote at the given time.
func NewVote(t testing.TB, st *store.Store, pollID string, movieID int64, user string, vibe int, seen bool, at time.Time) appeal.Vote {
	t.Helper()

	v, err := st.UpsertVote(context.Background(), pollID, appeal.Vote{
		MovieID:   movieID,
		UserName:  user,
		Vibe:      vibe,
		Seen:      seen,
		UpdatedAt: at,
	})
	if err != nil {
		t.Fatalf("store.UpsertVote: %v", err)
	}
	return v
}
