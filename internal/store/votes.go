package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"moviepoll/internal/appeal"
)

// VoteStats summarises the votes recorded for one poll.
type VoteStats struct {
	PollID          string    `json:"poll_id"`
	TotalVotes      int       `json:"total_votes"`
	UniqueVoters    int       `json:"unique_voters"`
	MoviesWithVotes int       `json:"movies_with_votes"`
	SeenVotes       int       `json:"seen_votes"`
	LastVoteAt      time.Time `json:"last_vote_at,omitzero"`
}

const voteColumns = "movie_id, user_name, vibe, seen, created_at, updated_at"

func scanVote(scanner interface{ Scan(dest ...any) error }) (appeal.Vote, error) {
	var (
		v          appeal.Vote
		seen       int64
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&v.MovieID, &v.UserName, &v.Vibe, &seen, &createdRaw, &updatedRaw); err != nil {
		return appeal.Vote{}, err
	}
	v.Seen = seen != 0
	v.CreatedAt = parseTime(createdRaw)
	v.UpdatedAt = parseTime(updatedRaw)
	return v, nil
}

// UpsertVote records v for pollID, replacing an earlier vote by the same user
// on the same movie. A vote older than the stored one is ignored. Timestamps
// default to the store clock when zero. The stored vote is returned.
func (s *Store) UpsertVote(ctx context.Context, pollID string, v appeal.Vote) (appeal.Vote, error) {
	ctx = ensureContext(ctx)
	if err := v.Validate(); err != nil {
		return appeal.Vote{}, err
	}
	v.UserName = strings.TrimSpace(v.UserName)
	now := s.now()
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = now
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = v.UpdatedAt
	}

	_, err := s.execWithRetry(ctx, `INSERT INTO votes (poll_id, movie_id, user_name, vibe, seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (poll_id, movie_id, user_name)
		DO UPDATE SET vibe = excluded.vibe, seen = excluded.seen, updated_at = excluded.updated_at
		WHERE excluded.updated_at >= votes.updated_at`,
		pollID, v.MovieID, v.UserName, v.Vibe, boolToInt(v.Seen), formatTime(v.CreatedAt), formatTime(v.UpdatedAt),
	)
	if err != nil {
		return appeal.Vote{}, fmt.Errorf("upsert vote: %w", err)
	}

	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+voteColumns+" FROM votes WHERE poll_id = ? AND movie_id = ? AND user_name = ?"),
		pollID, v.MovieID, v.UserName)
	stored, err := scanVote(row)
	if err != nil {
		return appeal.Vote{}, fmt.Errorf("read vote: %w", err)
	}
	return stored, nil
}

// ListVotes returns every vote in pollID ordered by movie then user.
func (s *Store) ListVotes(ctx context.Context, pollID string) ([]appeal.Vote, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, s.rebind("SELECT "+voteColumns+" FROM votes WHERE poll_id = ? ORDER BY movie_id, user_name"), pollID)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	defer rows.Close()

	var votes []appeal.Vote
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// DeleteVote removes one user's vote on a movie.
func (s *Store) DeleteVote(ctx context.Context, pollID string, movieID int64, userName string) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM votes WHERE poll_id = ? AND movie_id = ? AND user_name = ?",
		pollID, movieID, strings.TrimSpace(userName))
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPolls returns the distinct poll identifiers that have votes or snapshots.
func (s *Store) ListPolls(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT poll_id FROM votes UNION SELECT poll_id FROM appeal_snapshots ORDER BY poll_id")
	if err != nil {
		return nil, fmt.Errorf("list polls: %w", err)
	}
	defer rows.Close()
	var polls []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		polls = append(polls, id)
	}
	return polls, rows.Err()
}

// VoteStats aggregates vote counts for pollID.
func (s *Store) VoteStats(ctx context.Context, pollID string) (VoteStats, error) {
	ctx = ensureContext(ctx)
	stats := VoteStats{PollID: pollID}
	var lastRaw sql.NullString
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT
			COUNT(1),
			COUNT(DISTINCT user_name),
			COUNT(DISTINCT movie_id),
			COALESCE(SUM(seen), 0),
			MAX(updated_at)
		FROM votes WHERE poll_id = ?`), pollID)
	if err := row.Scan(&stats.TotalVotes, &stats.UniqueVoters, &stats.MoviesWithVotes, &stats.SeenVotes, &lastRaw); err != nil {
		return VoteStats{}, fmt.Errorf("vote stats: %w", err)
	}
	stats.LastVoteAt = parseTime(lastRaw.String)
	return stats, nil
}
