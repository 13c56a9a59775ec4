package api

import (
	"time"

	"moviepoll/internal/appeal"
	"moviepoll/internal/poll"
	"moviepoll/internal/store"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string    `json:"status"`
	Version  string    `json:"version"`
	Time     time.Time `json:"time"`
	Database string    `json:"database"`
}

// AddMovieRequest is the body of POST /api/movies. Manual skips the catalog.
type AddMovieRequest struct {
	Title  string `json:"title"`
	Year   int    `json:"year,omitempty"`
	TMDBID int64  `json:"tmdb_id,omitempty"`
	Manual bool   `json:"manual,omitempty"`
}

// MovieListResponse is returned by GET /api/movies.
type MovieListResponse struct {
	Poll   string               `json:"poll"`
	Movies []store.MovieListing `json:"movies"`
	Total  int                  `json:"total"`
}

// VoteRequest is the body of POST /api/polls/{poll}/votes.
type VoteRequest struct {
	MovieID  int64  `json:"movie_id"`
	UserName string `json:"user_name"`
	Vibe     int    `json:"vibe"`
	Seen     bool   `json:"seen"`
}

func (r VoteRequest) vote() appeal.Vote {
	return appeal.Vote{MovieID: r.MovieID, UserName: r.UserName, Vibe: r.Vibe, Seen: r.Seen}
}

// BatchVoteRequest is the body of POST /api/polls/{poll}/votes/batch.
type BatchVoteRequest struct {
	Votes []VoteRequest `json:"votes"`
}

// VoteListResponse is returned by GET /api/polls/{poll}/votes.
type VoteListResponse struct {
	Poll  string        `json:"poll"`
	Votes []appeal.Vote `json:"votes"`
}

// PollListResponse is returned by GET /api/polls.
type PollListResponse struct {
	Polls   []string `json:"polls"`
	Default string   `json:"default"`
}

// DuplicateListResponse is returned by GET /api/movies/duplicates.
type DuplicateListResponse struct {
	Groups []poll.DuplicateGroup `json:"groups"`
	Total  int                   `json:"total"`
}

// SimilarVotersResponse is returned by GET /api/polls/{poll}/voters/similar.
type SimilarVotersResponse struct {
	Poll    string              `json:"poll"`
	Name    string              `json:"name"`
	Matches []poll.SimilarVoter `json:"matches"`
}

// VoterCollisionsResponse is returned by GET /api/polls/{poll}/voters/collisions.
type VoterCollisionsResponse struct {
	Poll  string           `json:"poll"`
	Pairs []poll.VoterPair `json:"pairs"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
	MatchInfo any    `json:"match_info,omitempty"`
}
