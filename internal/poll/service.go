package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"moviepoll/internal/appeal"
	"moviepoll/internal/catalog/tmdb"
	"moviepoll/internal/config"
	"moviepoll/internal/logging"
	"moviepoll/internal/store"
	"moviepoll/internal/titlematch"
)

// Catalog is the subset of the TMDB catalog the service depends on.
type Catalog interface {
	SearchByTitle(ctx context.Context, title string, year int) ([]titlematch.Candidate, error)
	GetByID(ctx context.Context, id int64) (*tmdb.MovieDetails, error)
}

// Service runs poll workflows against a store and an optional catalog.
type Service struct {
	store       *store.Store
	catalog     Catalog
	logger      *slog.Logger
	appealOpts  appeal.Options
	matchOpts   titlematch.Options
	useMatching bool
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logging.NewComponentLogger(logger, "poll")
	}
}

// WithCatalog enables search and add-movie workflows.
func WithCatalog(c Catalog) Option {
	return func(s *Service) {
		s.catalog = c
	}
}

// WithAppealOptions overrides appeal tuning.
func WithAppealOptions(opts appeal.Options) Option {
	return func(s *Service) {
		s.appealOpts = opts
	}
}

// WithMatchOptions overrides title matcher tuning.
func WithMatchOptions(opts titlematch.Options) Option {
	return func(s *Service) {
		s.matchOpts = opts
	}
}

// WithMatching toggles title matching when adding movies. When disabled the
// first search result is taken.
func WithMatching(enabled bool) Option {
	return func(s *Service) {
		s.useMatching = enabled
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// ConfigOptions derives service options from configuration.
func ConfigOptions(cfg *config.Config) []Option {
	return []Option{
		WithAppealOptions(cfg.AppealOptions()),
		WithMatchOptions(cfg.MatchOptions()),
		WithMatching(cfg.Poll.UseMatching),
	}
}

// New constructs a Service.
func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:       st,
		logger:      logging.NewComponentLogger(nil, "poll"),
		appealOpts:  appeal.DefaultOptions(),
		matchOpts:   titlematch.DefaultOptions(),
		useMatching: true,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store exposes the underlying store.
func (s *Service) Store() *store.Store {
	return s.store
}

// MatchInfo is the JSON-safe summary of a title match. Score is nil when no
// candidate was scored.
type MatchInfo struct {
	Type        titlematch.MatchType `json:"match_type"`
	Score       *float64             `json:"score"`
	CandidateID int64                `json:"candidate_id,omitempty"`
	Title       string               `json:"title,omitempty"`
	Year        int                  `json:"year,omitempty"`
}

// NewMatchInfo summarises a match result for JSON output.
func NewMatchInfo(r titlematch.Result) MatchInfo {
	info := MatchInfo{Type: r.Type}
	if !math.IsInf(r.Score, 0) && !math.IsNaN(r.Score) {
		score := r.Score
		info.Score = &score
	}
	if r.Candidate != nil {
		info.CandidateID = r.Candidate.ID
		info.Title = r.Candidate.Title
		info.Year = r.Candidate.Year()
	}
	return info
}

// Results is a ranked view of one poll.
type Results struct {
	PollID            string          `json:"poll_id"`
	Ranking           []appeal.Ranked `json:"ranking"`
	TotalUniqueVoters int             `json:"total_unique_voters"`
	TotalVotes        int             `json:"total_votes"`
	CalculatedAt      time.Time       `json:"calculated_at"`
}

// Results computes the live ranking of pollID from its stored votes.
func (s *Service) Results(ctx context.Context, pollID string) (Results, error) {
	_, res, err := s.tally(ctx, pollID, s.now().UTC())
	return res, err
}

// Refresh recomputes pollID and replaces its stored snapshots.
func (s *Service) Refresh(ctx context.Context, pollID string) (Results, error) {
	started := s.now()
	result, res, err := s.tally(ctx, pollID, s.now().UTC())
	if err != nil {
		return Results{}, err
	}
	if err := s.store.ReplaceSnapshots(ctx, pollID, result, res.CalculatedAt); err != nil {
		return Results{}, err
	}

	logging.WithContext(ctx, s.logger).Info("appeal snapshots refreshed",
		logging.String(logging.FieldPoll, pollID),
		logging.Int("movies", len(result.Records)),
		logging.Int("unique_voters", result.TotalUniqueVoters),
		logging.Duration("elapsed", s.now().Sub(started)),
	)
	return res, nil
}

// tally loads the votes of pollID, computes appeal, and ranks it by title.
func (s *Service) tally(ctx context.Context, pollID string, at time.Time) (appeal.Result, Results, error) {
	votes, err := s.store.ListVotes(ctx, pollID)
	if err != nil {
		return appeal.Result{}, Results{}, err
	}
	result, err := appeal.Compute(votes, s.appealOpts)
	if err != nil {
		return appeal.Result{}, Results{}, fmt.Errorf("compute appeal: %w", err)
	}
	titles, err := s.store.Titles(ctx)
	if err != nil {
		return appeal.Result{}, Results{}, err
	}
	return result, Results{
		PollID:            pollID,
		Ranking:           appeal.Rank(result, titles),
		TotalUniqueVoters: result.TotalUniqueVoters,
		TotalVotes:        len(votes),
		CalculatedAt:      at,
	}, nil
}

// RefreshAll refreshes every poll that has votes or snapshots and returns the
// number of polls refreshed. A failing poll is logged and the rest continue.
func (s *Service) RefreshAll(ctx context.Context) (int, error) {
	polls, err := s.store.ListPolls(ctx)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	var errs []error
	for _, pollID := range polls {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if _, err := s.Refresh(ctx, pollID); err != nil {
			logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "appeal refresh failed", "appeal_refresh_failed",
				logging.String(logging.FieldPoll, pollID),
				logging.Error(err),
			)
			errs = append(errs, fmt.Errorf("poll %s: %w", pollID, err))
			continue
		}
		refreshed++
	}
	return refreshed, errors.Join(errs...)
}

// Stats summarises votes in pollID.
func (s *Service) Stats(ctx context.Context, pollID string) (store.VoteStats, error) {
	return s.store.VoteStats(ctx, pollID)
}

// Polls lists known poll identifiers.
func (s *Service) Polls(ctx context.Context) ([]string, error) {
	return s.store.ListPolls(ctx)
}

// ListMovies lists movies with their stored snapshot for pollID.
func (s *Service) ListMovies(ctx context.Context, pollID string) ([]store.MovieListing, error) {
	return s.store.ListMovies(ctx, pollID)
}

// GetMovie fetches a stored movie.
func (s *Service) GetMovie(ctx context.Context, id int64) (*store.Movie, error) {
	return s.store.GetMovie(ctx, id)
}

// UpdateMovie edits a stored movie.
func (s *Service) UpdateMovie(ctx context.Context, id int64, update store.MovieUpdate) (*store.Movie, error) {
	movie, err := s.store.UpdateMovie(ctx, id, update)
	if err != nil {
		return nil, err
	}
	logging.WithContext(ctx, s.logger).Info("movie updated",
		logging.Int64(logging.FieldMovieID, id),
		logging.String("title", movie.Title),
	)
	return movie, nil
}

// DeleteMovie removes a movie and all of its votes.
func (s *Service) DeleteMovie(ctx context.Context, id int64) error {
	if err := s.store.DeleteMovie(ctx, id); err != nil {
		return err
	}
	logging.WithContext(ctx, s.logger).Info("movie deleted", logging.Int64(logging.FieldMovieID, id))
	return nil
}

func cleanTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}
