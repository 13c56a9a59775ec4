package poll_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"moviepoll/internal/poll"
	"moviepoll/internal/testsupport"
)

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Ana", "ana", 1},
		{" José ", "jose", 1},
		{"ana", "anna", 0.75},
		{"dan", "daniel", 0.8},
		{"annabel", "annabelle", 0.8},
		{"kate", "cate", 0.75},
		{"bo", "bob", 2.0 / 3.0},
		{"ana", "bo", 0},
		{"ana", "", 0},
	}
	for _, tc := range tests {
		if got := poll.NameSimilarity(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("NameSimilarity(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
		if got := poll.NameSimilarity(tc.b, tc.a); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("NameSimilarity(%q, %q) not symmetric: %v", tc.b, tc.a, got)
		}
	}
}

func seedVoters(t *testing.T) (*poll.Service, context.Context) {
	t.Helper()
	svc, st := newService(t, nil)
	at := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	alien := testsupport.NewMovie(t, st, "Alien", 1979)
	brazil := testsupport.NewMovie(t, st, "Brazil", 1985)
	testsupport.NewVote(t, st, "friday", alien.ID, "anna", 5, true, at)
	testsupport.NewVote(t, st, "friday", brazil.ID, "anna", 3, true, at)
	testsupport.NewVote(t, st, "friday", brazil.ID, "ana", 2, false, at)
	testsupport.NewVote(t, st, "friday", alien.ID, "Daniel", 6, true, at)
	testsupport.NewVote(t, st, "friday", alien.ID, "bo", 1, false, at)
	testsupport.NewVote(t, st, "saturday", alien.ID, "annie", 4, false, at)
	return svc, context.Background()
}

func TestSimilarVoters(t *testing.T) {
	svc, ctx := seedVoters(t)

	got, err := svc.SimilarVoters(ctx, "friday", "Ana", 0)
	if err != nil {
		t.Fatalf("SimilarVoters: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected ana and anna, got %+v", got)
	}
	if got[0].Name != "ana" || got[0].Similarity != 1 || got[0].Votes != 1 {
		t.Fatalf("exact name should rank first: %+v", got[0])
	}
	if got[1].Name != "anna" || got[1].Votes != 2 {
		t.Fatalf("unexpected second match: %+v", got[1])
	}

	strict, err := svc.SimilarVoters(ctx, "friday", "ana", 0.9)
	if err != nil {
		t.Fatalf("SimilarVoters strict: %v", err)
	}
	if len(strict) != 1 {
		t.Fatalf("threshold should filter anna: %+v", strict)
	}

	if _, err := svc.SimilarVoters(ctx, "friday", "  ", 0); !errors.Is(err, poll.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}
}

func TestVoterCollisions(t *testing.T) {
	svc, ctx := seedVoters(t)

	pairs, err := svc.VoterCollisions(ctx, "friday", 0)
	if err != nil {
		t.Fatalf("VoterCollisions: %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("expected one colliding pair, got %+v", pairs)
	}
	p := pairs[0]
	if p.A.Name != "ana" || p.B.Name != "anna" || p.A.Votes != 1 || p.B.Votes != 2 {
		t.Fatalf("unexpected pair: %+v", p)
	}
	if math.Abs(p.Similarity-0.75) > 1e-9 {
		t.Fatalf("Similarity = %v, want 0.75", p.Similarity)
	}

	none, err := svc.VoterCollisions(ctx, "empty", 0)
	if err != nil {
		t.Fatalf("VoterCollisions empty: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no pairs, got %+v", none)
	}
}
