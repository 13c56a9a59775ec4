package poll

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"moviepoll/internal/catalog/tmdb"
	"moviepoll/internal/logging"
	"moviepoll/internal/store"
	"moviepoll/internal/titlematch"
)

// Match types recorded for movies that bypass the title matcher.
const (
	// FirstResult marks movies added with matching disabled.
	FirstResult titlematch.MatchType = "first_result"
	// DirectID marks movies added by explicit TMDB id.
	DirectID titlematch.MatchType = "tmdb_id"
)

// SearchResult is the outcome of a catalog search. When a year was supplied
// only the best match is returned and Match describes it.
type SearchResult struct {
	Query      string                 `json:"query"`
	Year       int                    `json:"year,omitempty"`
	Candidates []titlematch.Candidate `json:"results"`
	Match      *MatchInfo             `json:"match_info,omitempty"`
}

// Search looks a title up in the catalog. Without a year every merged
// candidate is returned. With a year the candidates are matched and only the
// accepted one is returned, or none at all.
func (s *Service) Search(ctx context.Context, title string, year int) (SearchResult, error) {
	if s.catalog == nil {
		return SearchResult{}, ErrCatalogUnavailable
	}
	title = cleanTitle(title)
	if title == "" {
		return SearchResult{}, errEmptyTitle
	}
	candidates, err := s.catalog.SearchByTitle(ctx, title, year)
	if err != nil {
		return SearchResult{}, err
	}
	out := SearchResult{Query: title, Year: year, Candidates: candidates}
	if year <= 0 {
		return out, nil
	}

	result := titlematch.Match(titlematch.Target{Title: title, Year: year}, candidates, s.matchOpts)
	info := NewMatchInfo(result)
	out.Match = &info
	out.Candidates = nil
	if result.Found() {
		out.Candidates = []titlematch.Candidate{*result.Candidate}
	}
	return out, nil
}

// Match scores the supplied candidates against a title without touching the
// catalog.
func (s *Service) Match(title string, year int, candidates []titlematch.Candidate) titlematch.Result {
	return titlematch.Match(titlematch.Target{Title: cleanTitle(title), Year: year}, candidates, s.matchOpts)
}

// AddRequest describes a movie to add. TMDBID skips the search when set.
type AddRequest struct {
	Title  string `json:"title"`
	Year   int    `json:"year,omitempty"`
	TMDBID int64  `json:"tmdb_id,omitempty"`
}

// AddResult is the stored movie and how it was matched.
type AddResult struct {
	Movie *store.Movie `json:"movie"`
	Match MatchInfo    `json:"match_info"`
}

// AddMovie resolves req against the catalog and stores the movie. Titles the
// matcher rejects fail with *NoMatchError; TMDB ids already stored fail with
// *DuplicateMovieError.
func (s *Service) AddMovie(ctx context.Context, req AddRequest) (AddResult, error) {
	if s.catalog == nil {
		return AddResult{}, ErrCatalogUnavailable
	}
	logger := logging.WithContext(ctx, s.logger)
	req.Title = cleanTitle(req.Title)

	var (
		tmdbID int64
		info   MatchInfo
	)
	switch {
	case req.TMDBID > 0:
		tmdbID = req.TMDBID
		info = MatchInfo{Type: DirectID, CandidateID: tmdbID}
	case req.Title == "":
		return AddResult{}, errEmptyTitle
	default:
		candidates, err := s.catalog.SearchByTitle(ctx, req.Title, req.Year)
		if err != nil {
			return AddResult{}, err
		}
		if len(candidates) == 0 {
			info = MatchInfo{Type: titlematch.None}
			return AddResult{}, &NoMatchError{Title: req.Title, Year: req.Year, Match: info}
		}
		if s.useMatching {
			result := titlematch.Match(titlematch.Target{Title: req.Title, Year: req.Year}, candidates, s.matchOpts)
			info = NewMatchInfo(result)
			attrs := append(logging.DecisionAttrs("title_match", string(result.Type), matchReason(result)),
				logging.String("title", req.Title),
				logging.Int("year", req.Year),
				logging.Int("candidates", len(candidates)),
			)
			logger.Info("title match decision", logging.Args(attrs...)...)
			if !result.Found() {
				return AddResult{}, &NoMatchError{Title: req.Title, Year: req.Year, Match: info}
			}
			tmdbID = result.Candidate.ID
		} else {
			first := candidates[0]
			tmdbID = first.ID
			info = MatchInfo{Type: FirstResult, CandidateID: first.ID, Title: first.Title, Year: first.Year()}
		}
	}

	if existing, err := s.store.FindMovieByTMDBID(ctx, tmdbID); err == nil {
		return AddResult{}, &DuplicateMovieError{TMDBID: tmdbID, Existing: existing}
	} else if !errors.Is(err, store.ErrNotFound) {
		return AddResult{}, err
	}

	details, err := s.catalog.GetByID(ctx, tmdbID)
	if err != nil {
		return AddResult{}, err
	}
	movie := movieFromDetails(details, req)
	movie.MatchType = string(info.Type)
	if info.Score != nil {
		movie.MatchScore = *info.Score
	}
	stored, err := s.store.AddMovie(ctx, movie)
	if err != nil {
		return AddResult{}, err
	}

	logger.Info("movie added",
		logging.Int64(logging.FieldMovieID, stored.ID),
		logging.Int64("tmdb_id", stored.TMDBID),
		logging.String("title", stored.Title),
		logging.Int("year", stored.Year),
		logging.String("match_type", stored.MatchType),
	)
	return AddResult{Movie: stored, Match: info}, nil
}

// AddManualMovie stores a movie without consulting the catalog.
func (s *Service) AddManualMovie(ctx context.Context, title string, year int) (*store.Movie, error) {
	title = cleanTitle(title)
	if title == "" {
		return nil, errEmptyTitle
	}
	return s.store.AddMovie(ctx, store.Movie{Title: title, Year: year})
}

func movieFromDetails(d *tmdb.MovieDetails, req AddRequest) store.Movie {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		title = req.Title
	}
	original := strings.TrimSpace(d.OriginalTitle)
	if original == "" {
		original = title
	}
	year := titlematch.ParseYear(d.ReleaseDate)
	if year == 0 {
		year = req.Year
	}
	language := d.Language
	if language == "" {
		language = "en"
	}
	return store.Movie{
		TMDBID:           d.ID,
		Title:            title,
		Year:             year,
		OriginalTitle:    original,
		Overview:         d.Overview,
		PosterPath:       d.PosterPath,
		BackdropPath:     d.BackdropPath,
		ReleaseDate:      d.ReleaseDate,
		Runtime:          d.Runtime,
		OriginalLanguage: language,
		Popularity:       d.Popularity,
		VoteAverage:      d.VoteAverage,
		VoteCount:        d.VoteCount,
	}
}

func matchReason(r titlematch.Result) string {
	switch r.Type {
	case titlematch.Exact:
		return "normalized title and year agree"
	case titlematch.Flexible:
		return fmt.Sprintf("score %.2f within flexible threshold", r.Score)
	case titlematch.Fallback:
		return fmt.Sprintf("score %.2f above threshold but titles share a significant word", r.Score)
	default:
		return "no candidate close enough"
	}
}
