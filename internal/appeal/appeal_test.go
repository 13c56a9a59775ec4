package appeal_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"moviepoll/internal/appeal"
)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeWorkedExample(t *testing.T) {
	votes := []appeal.Vote{
		{MovieID: 1, UserName: "A", Vibe: 6, Seen: true},
		{MovieID: 1, UserName: "B", Vibe: 4, Seen: false},
	}
	result, err := appeal.Compute(votes, appeal.DefaultOptions())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	rec, ok := result.Records[1]
	if !ok {
		t.Fatal("expected record for movie 1")
	}
	if !approxEqual(rec.OriginalAppeal, 5) {
		t.Fatalf("original appeal = %v, want 5", rec.OriginalAppeal)
	}
	if rec.SeenCount != 1 || rec.TotalVoters != 2 {
		t.Fatalf("unexpected counts: seen=%d total=%d", rec.SeenCount, rec.TotalVoters)
	}
	if !approxEqual(rec.VisibilityRatio, 0.5) || !approxEqual(rec.VisibilityModifier, 0.5) {
		t.Fatalf("unexpected visibility: ratio=%v modifier=%v", rec.VisibilityRatio, rec.VisibilityModifier)
	}
	if !approxEqual(rec.FinalAppeal, 2.5) {
		t.Fatalf("final appeal = %v, want 2.5", rec.FinalAppeal)
	}
	if result.TotalUniqueVoters != 2 || rec.TotalUniqueVoters != 2 {
		t.Fatalf("unique voters = %d/%d, want 2", result.TotalUniqueVoters, rec.TotalUniqueVoters)
	}
}

func TestComputeEmpty(t *testing.T) {
	result, err := appeal.Compute(nil, appeal.DefaultOptions())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if len(result.Records) != 0 {
		t.Fatalf("expected no records, got %d", len(result.Records))
	}
	if result.TotalUniqueVoters != 0 {
		t.Fatalf("expected zero unique voters, got %d", result.TotalUniqueVoters)
	}
}

func TestComputeVisibilityFloor(t *testing.T) {
	votes := []appeal.Vote{
		{MovieID: 7, UserName: "A", Vibe: 5},
		{MovieID: 7, UserName: "B", Vibe: 6},
	}
	result, err := appeal.Compute(votes, appeal.Options{})
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	rec := result.Records[7]
	if rec.VisibilityRatio != 0 {
		t.Fatalf("ratio = %v, want 0", rec.VisibilityRatio)
	}
	if !approxEqual(rec.VisibilityModifier, 0.1) {
		t.Fatalf("modifier = %v, want 0.1", rec.VisibilityModifier)
	}
	if !approxEqual(rec.FinalAppeal, 0.55) {
		t.Fatalf("final appeal = %v, want 0.55", rec.FinalAppeal)
	}
}

func TestComputeCustomFloor(t *testing.T) {
	votes := []appeal.Vote{{MovieID: 3, UserName: "A", Vibe: 4}}
	result, err := appeal.Compute(votes, appeal.Options{VisibilityFloor: 0.25})
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if got := result.Records[3].FinalAppeal; !approxEqual(got, 1.0) {
		t.Fatalf("final appeal = %v, want 1.0", got)
	}
}

func TestComputeFinalAppealBounds(t *testing.T) {
	var votes []appeal.Vote
	users := []string{"a", "b", "c", "d"}
	for movie := int64(1); movie <= 6; movie++ {
		for i, user := range users {
			votes = append(votes, appeal.Vote{
				MovieID:  movie,
				UserName: user,
				Vibe:     int((movie+int64(i))%6) + 1,
				Seen:     (int(movie)+i)%3 == 0,
			})
		}
	}
	result, err := appeal.Compute(votes, appeal.DefaultOptions())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	for id, rec := range result.Records {
		if rec.FinalAppeal < 0.1 || rec.FinalAppeal > 6.0 {
			t.Fatalf("movie %d final appeal %v outside [0.1, 6]", id, rec.FinalAppeal)
		}
		if rec.VisibilityModifier < 0.1 {
			t.Fatalf("movie %d modifier %v below floor", id, rec.VisibilityModifier)
		}
	}
}

func TestComputeDuplicateIsIdempotent(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	vote := appeal.Vote{MovieID: 2, UserName: "A", Vibe: 3, Seen: true, UpdatedAt: ts}

	once, err := appeal.Compute([]appeal.Vote{vote}, appeal.DefaultOptions())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	twice, err := appeal.Compute([]appeal.Vote{vote, vote}, appeal.DefaultOptions())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if once.Records[2] != twice.Records[2] {
		t.Fatalf("duplicate changed record: %+v vs %+v", once.Records[2], twice.Records[2])
	}
}

func TestComputeLatestVoteWins(t *testing.T) {
	early := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)

	tests := []struct {
		name  string
		votes []appeal.Vote
	}{
		{
			name: "later vote last",
			votes: []appeal.Vote{
				{MovieID: 1, UserName: "A", Vibe: 2, Seen: false, UpdatedAt: early},
				{MovieID: 1, UserName: "A", Vibe: 6, Seen: true, UpdatedAt: late},
			},
		},
		{
			name: "later vote first",
			votes: []appeal.Vote{
				{MovieID: 1, UserName: "A", Vibe: 6, Seen: true, UpdatedAt: late},
				{MovieID: 1, UserName: "A", Vibe: 2, Seen: false, UpdatedAt: early},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := appeal.Compute(tt.votes, appeal.DefaultOptions())
			if err != nil {
				t.Fatalf("Compute returned error: %v", err)
			}
			rec := result.Records[1]
			if rec.TotalVoters != 1 {
				t.Fatalf("total voters = %d, want 1", rec.TotalVoters)
			}
			if !approxEqual(rec.OriginalAppeal, 6) || rec.SeenCount != 1 {
				t.Fatalf("expected latest vote to win, got %+v", rec)
			}
		})
	}
}

func TestComputeEqualTimestampsPreferLaterInput(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	votes := []appeal.Vote{
		{MovieID: 1, UserName: "A", Vibe: 2, UpdatedAt: ts},
		{MovieID: 1, UserName: "A", Vibe: 5, UpdatedAt: ts},
	}
	result, err := appeal.Compute(votes, appeal.DefaultOptions())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if got := result.Records[1].OriginalAppeal; !approxEqual(got, 5) {
		t.Fatalf("original appeal = %v, want 5", got)
	}
}

func TestComputeUniqueVotersAcrossMovies(t *testing.T) {
	votes := []appeal.Vote{
		{MovieID: 1, UserName: "A", Vibe: 3},
		{MovieID: 2, UserName: "A", Vibe: 4},
		{MovieID: 2, UserName: "B", Vibe: 4},
		{MovieID: 3, UserName: "C", Vibe: 1},
	}
	result, err := appeal.Compute(votes, appeal.DefaultOptions())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if result.TotalUniqueVoters != 3 {
		t.Fatalf("unique voters = %d, want 3", result.TotalUniqueVoters)
	}
	if len(result.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(result.Records))
	}
	for id, rec := range result.Records {
		if rec.TotalUniqueVoters != 3 {
			t.Fatalf("movie %d unique voters = %d, want 3", id, rec.TotalUniqueVoters)
		}
	}
}

func TestComputeRejectsInvalidVotes(t *testing.T) {
	tests := []struct {
		name  string
		vote  appeal.Vote
		index int
	}{
		{"vibe too low", appeal.Vote{MovieID: 1, UserName: "A", Vibe: 0}, 1},
		{"vibe too high", appeal.Vote{MovieID: 1, UserName: "A", Vibe: 7}, 1},
		{"missing movie", appeal.Vote{UserName: "A", Vibe: 3}, 1},
		{"blank user", appeal.Vote{MovieID: 1, UserName: "  ", Vibe: 3}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			votes := []appeal.Vote{{MovieID: 9, UserName: "ok", Vibe: 4}, tt.vote}
			_, err := appeal.Compute(votes, appeal.DefaultOptions())
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, appeal.ErrInvalidVote) {
				t.Fatalf("expected ErrInvalidVote, got %v", err)
			}
			var verr *appeal.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Index != tt.index {
				t.Fatalf("index = %d, want %d", verr.Index, tt.index)
			}
		})
	}
}

func TestVoteValidate(t *testing.T) {
	if err := (appeal.Vote{MovieID: 1, UserName: "A", Vibe: 6}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := (appeal.Vote{MovieID: 1, UserName: "A", Vibe: 9}).Validate()
	var verr *appeal.ValidationError
	if !errors.As(err, &verr) || verr.Index != -1 {
		t.Fatalf("expected standalone validation error, got %v", err)
	}
}
