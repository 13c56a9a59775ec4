package poll

import (
	"errors"
	"fmt"

	"moviepoll/internal/store"
)

var (
	// ErrNoMatch reports that no search candidate was accepted for a title.
	ErrNoMatch = errors.New("no matching movie found")
	// ErrDuplicateMovie reports that the matched TMDB movie is already stored.
	ErrDuplicateMovie = errors.New("movie already exists")
	// ErrCatalogUnavailable reports an operation that needs TMDB without a client.
	ErrCatalogUnavailable = errors.New("movie catalog unavailable")
	// ErrInvalidInput reports a request the service cannot act on as given.
	ErrInvalidInput = errors.New("invalid input")
	// errEmptyTitle is returned for blank titles.
	errEmptyTitle = fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
)

// NoMatchError carries the rejected match details. It unwraps to ErrNoMatch.
type NoMatchError struct {
	Title string
	Year  int
	Match MatchInfo
}

func (e *NoMatchError) Error() string {
	if e.Year > 0 {
		return fmt.Sprintf("%s: %q (%d)", ErrNoMatch, e.Title, e.Year)
	}
	return fmt.Sprintf("%s: %q", ErrNoMatch, e.Title)
}

func (e *NoMatchError) Unwrap() error { return ErrNoMatch }

// DuplicateMovieError names the stored movie a new addition collided with.
// It unwraps to ErrDuplicateMovie.
type DuplicateMovieError struct {
	TMDBID   int64
	Existing *store.Movie
}

func (e *DuplicateMovieError) Error() string {
	if e.Existing != nil {
		return fmt.Sprintf("%s: tmdb id %d is stored as movie %d (%s)", ErrDuplicateMovie, e.TMDBID, e.Existing.ID, e.Existing.Title)
	}
	return fmt.Sprintf("%s: tmdb id %d", ErrDuplicateMovie, e.TMDBID)
}

func (e *DuplicateMovieError) Unwrap() error { return ErrDuplicateMovie }
