package appeal

import (
	"errors"
	"fmt"
)

// ErrInvalidVote is the sentinel wrapped by every vote validation failure.
var ErrInvalidVote = errors.New("invalid vote")

// ValidationError describes the vote that failed validation. Index is the
// position of the vote in the slice passed to Compute, or -1 when the vote was
// validated on its own.
type ValidationError struct {
	Index    int
	MovieID  int64
	UserName string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid vote for movie %d by %q: %s", e.MovieID, e.UserName, e.Reason)
	}
	return fmt.Sprintf("invalid vote at index %d (movie %d, user %q): %s", e.Index, e.MovieID, e.UserName, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidVote }
