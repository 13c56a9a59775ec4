package poll

import (
	"context"
	"errors"
	"fmt"

	"moviepoll/internal/appeal"
	"moviepoll/internal/logging"
	"moviepoll/internal/store"
)

// SubmitVote validates v, checks the movie exists, and records it in pollID.
// A missing movie fails with store.ErrNotFound.
func (s *Service) SubmitVote(ctx context.Context, pollID string, v appeal.Vote) (appeal.Vote, error) {
	if err := v.Validate(); err != nil {
		return appeal.Vote{}, err
	}
	exists, err := s.store.MovieExists(ctx, v.MovieID)
	if err != nil {
		return appeal.Vote{}, err
	}
	if !exists {
		return appeal.Vote{}, fmt.Errorf("movie %d: %w", v.MovieID, store.ErrNotFound)
	}
	stored, err := s.store.UpsertVote(ctx, pollID, v)
	if err != nil {
		return appeal.Vote{}, err
	}
	logging.WithContext(ctx, s.logger).Debug("vote recorded",
		logging.String(logging.FieldPoll, pollID),
		logging.Int64(logging.FieldMovieID, v.MovieID),
		logging.String("user", stored.UserName),
		logging.Int("vibe", stored.Vibe),
		logging.Bool("seen", stored.Seen),
	)
	return stored, nil
}

// BatchError describes one rejected vote of a batch.
type BatchError struct {
	Index    int    `json:"index"`
	MovieID  int64  `json:"movie_id"`
	UserName string `json:"user_name"`
	Error    string `json:"error"`
}

// BatchResult reports the outcome of SubmitBatch.
type BatchResult struct {
	Submitted int           `json:"submitted"`
	Failed    int           `json:"failed"`
	Votes     []appeal.Vote `json:"votes"`
	Errors    []BatchError  `json:"errors,omitempty"`
}

// SubmitBatch records each vote independently. Invalid votes and votes for
// unknown movies are reported in the result; only context cancellation and
// storage failures abort the batch.
func (s *Service) SubmitBatch(ctx context.Context, pollID string, votes []appeal.Vote) (BatchResult, error) {
	result := BatchResult{Votes: make([]appeal.Vote, 0, len(votes))}
	for i, v := range votes {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		stored, err := s.SubmitVote(ctx, pollID, v)
		if err != nil {
			if !errors.Is(err, appeal.ErrInvalidVote) && !errors.Is(err, store.ErrNotFound) {
				return result, fmt.Errorf("vote %d: %w", i, err)
			}
			result.Failed++
			result.Errors = append(result.Errors, BatchError{
				Index:    i,
				MovieID:  v.MovieID,
				UserName: v.UserName,
				Error:    err.Error(),
			})
			continue
		}
		result.Submitted++
		result.Votes = append(result.Votes, stored)
	}
	if result.Failed > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "batch votes partially rejected", "batch_vote_rejected",
			logging.String(logging.FieldPoll, pollID),
			logging.Int("submitted", result.Submitted),
			logging.Int("failed", result.Failed),
			logging.String(logging.FieldImpact, "rejected votes were not recorded"),
			logging.String(logging.FieldErrorHint, "check vibe range, user name, and movie id"),
		)
	}
	return result, nil
}

// Votes lists the votes of pollID.
func (s *Service) Votes(ctx context.Context, pollID string) ([]appeal.Vote, error) {
	return s.store.ListVotes(ctx, pollID)
}

// RemoveVote deletes one user's vote on a movie.
func (s *Service) RemoveVote(ctx context.Context, pollID string, movieID int64, userName string) error {
	return s.store.DeleteVote(ctx, pollID, movieID, userName)
}
