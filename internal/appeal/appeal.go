package appeal

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MinVibe and MaxVibe bound the rating a voter may assign.
	MinVibe = 1
	MaxVibe = 6

	// DefaultVisibilityFloor keeps unseen movies from collapsing to zero appeal.
	DefaultVisibilityFloor = 0.1
)

// Vote is one user's rating of one movie.
type Vote struct {
	MovieID   int64     `json:"movie_id"`
	UserName  string    `json:"user_name"`
	Vibe      int       `json:"vibe"`
	Seen      bool      `json:"seen"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate reports whether the vote can take part in appeal math.
func (v Vote) Validate() error {
	return v.validate(-1)
}

func (v Vote) validate(index int) error {
	var reason string
	switch {
	case v.MovieID <= 0:
		reason = "movie id is required"
	case strings.TrimSpace(v.UserName) == "":
		reason = "user name is required"
	case v.Vibe < MinVibe || v.Vibe > MaxVibe:
		reason = fmt.Sprintf("vibe %d outside [%d,%d]", v.Vibe, MinVibe, MaxVibe)
	default:
		return nil
	}
	return &ValidationError{Index: index, MovieID: v.MovieID, UserName: v.UserName, Reason: reason}
}

// Options tunes the appeal computation.
type Options struct {
	// VisibilityFloor is the lower bound applied to the visibility ratio. Values
	// outside (0, 1] fall back to DefaultVisibilityFloor.
	VisibilityFloor float64
}

// DefaultOptions returns the canonical appeal settings.
func DefaultOptions() Options {
	return Options{VisibilityFloor: DefaultVisibilityFloor}
}

func (o Options) floor() float64 {
	if o.VisibilityFloor <= 0 || o.VisibilityFloor > 1 {
		return DefaultVisibilityFloor
	}
	return o.VisibilityFloor
}

// Record is the derived appeal of a single movie.
type Record struct {
	MovieID            int64   `json:"movie_id"`
	OriginalAppeal     float64 `json:"original_appeal"`
	SeenCount          int     `json:"seen_count"`
	TotalVoters        int     `json:"total_voters"`
	VisibilityRatio    float64 `json:"visibility_ratio"`
	VisibilityModifier float64 `json:"visibility_modifier"`
	FinalAppeal        float64 `json:"final_appeal"`
	TotalUniqueVoters  int     `json:"total_unique_voters"`
}

// Result holds one record per voted movie plus the poll-wide voter count.
type Result struct {
	Records           map[int64]Record `json:"records"`
	TotalUniqueVoters int              `json:"total_unique_voters"`
}

type voteKey struct {
	movieID  int64
	userName string
}

// Compute aggregates votes into appeal records. Any invalid vote fails the
// whole call with a *ValidationError naming the first offending index.
func Compute(votes []Vote, opts Options) (Result, error) {
	for i, v := range votes {
		if err := v.validate(i); err != nil {
			return Result{}, err
		}
	}

	latest := make(map[voteKey]Vote, len(votes))
	users := make(map[string]struct{})
	for _, v := range votes {
		users[v.UserName] = struct{}{}
		key := voteKey{movieID: v.MovieID, userName: v.UserName}
		if prev, ok := latest[key]; ok && prev.UpdatedAt.After(v.UpdatedAt) {
			continue
		}
		latest[key] = v
	}

	type tally struct {
		vibeSum int
		seen    int
		voters  int
	}
	tallies := make(map[int64]*tally)
	for _, v := range latest {
		t, ok := tallies[v.MovieID]
		if !ok {
			t = &tally{}
			tallies[v.MovieID] = t
		}
		t.vibeSum += v.Vibe
		t.voters++
		if v.Seen {
			t.seen++
		}
	}

	floor := opts.floor()
	result := Result{
		Records:           make(map[int64]Record, len(tallies)),
		TotalUniqueVoters: len(users),
	}
	for movieID, t := range tallies {
		if t.voters == 0 {
			continue
		}
		original := float64(t.vibeSum) / float64(t.voters)
		ratio := float64(t.seen) / float64(t.voters)
		modifier := max(floor, ratio)
		result.Records[movieID] = Record{
			MovieID:            movieID,
			OriginalAppeal:     original,
			SeenCount:          t.seen,
			TotalVoters:        t.voters,
			VisibilityRatio:    ratio,
			VisibilityModifier: modifier,
			FinalAppeal:        original * modifier,
			TotalUniqueVoters:  result.TotalUniqueVoters,
		}
	}
	return result, nil
}
