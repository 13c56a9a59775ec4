package titlematch

import (
	"math"
	"strconv"
	"strings"

	"moviepoll/internal/textutil"
)

// MatchType is the confidence tier of a match.
type MatchType string

const (
	Exact    MatchType = "exact"
	Flexible MatchType = "flexible"
	Fallback MatchType = "fallback"
	None     MatchType = "none"
)

const (
	// DefaultFlexibleThreshold is the highest score still classified as
	// flexible. A single substitution costs 6.6 under MovieWeights and two
	// edits cost 13.2, so one typo passes and two do not.
	DefaultFlexibleThreshold = 7.0
	// DefaultYearPenalty is added when the release year is more than
	// DefaultYearTolerance years away from the target.
	DefaultYearPenalty   = 10.0
	DefaultYearTolerance = 1
)

// Candidate is one catalog search result.
type Candidate struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title,omitempty"`
	ReleaseDate   string  `json:"release_date,omitempty"`
	Popularity    float64 `json:"popularity"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int64   `json:"vote_count"`
	Overview      string  `json:"overview,omitempty"`
	PosterPath    string  `json:"poster_path,omitempty"`
}

// Year returns the release year parsed from ReleaseDate, or 0 when unknown.
func (c Candidate) Year() int {
	return ParseYear(c.ReleaseDate)
}

// ParseYear extracts the leading four-digit year of a YYYY-MM-DD date.
func ParseYear(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil || year <= 0 {
		return 0
	}
	return year
}

// Target is the locally known movie. Year 0 means unknown.
type Target struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

// Options configures Match.
type Options struct {
	Weights           Weights
	FlexibleThreshold float64
	YearPenalty       float64
	YearTolerance     int
}

// DefaultOptions returns the movie-tuned matching settings.
func DefaultOptions() Options {
	return Options{
		Weights:           MovieWeights,
		FlexibleThreshold: DefaultFlexibleThreshold,
		YearPenalty:       DefaultYearPenalty,
		YearTolerance:     DefaultYearTolerance,
	}
}

// Result is the outcome of Match. Candidate is nil when Type is None.
type Result struct {
	Candidate *Candidate `json:"candidate"`
	Score     float64    `json:"score"`
	Type      MatchType  `json:"match_type"`
}

// Found reports whether the match is usable.
func (r Result) Found() bool {
	return r.Type != None && r.Candidate != nil
}

// Match picks the candidate most likely to be the target movie. An empty
// candidate list or blank target title yields None with an infinite score.
func Match(target Target, candidates []Candidate, opts Options) Result {
	if opts.Weights == (Weights{}) {
		opts.Weights = MovieWeights
	}
	want := textutil.NormalizeTitle(target.Title)
	if want == "" || len(candidates) == 0 {
		return Result{Score: math.Inf(1), Type: None}
	}

	normalized := make([][2]string, len(candidates))
	for i, c := range candidates {
		normalized[i] = [2]string{textutil.NormalizeTitle(c.Title), textutil.NormalizeTitle(c.OriginalTitle)}
		if target.Year > 0 && c.Year() != target.Year {
			continue
		}
		if normalized[i][0] == want || (normalized[i][1] != "" && normalized[i][1] == want) {
			match := c
			return Result{Candidate: &match, Score: 0, Type: Exact}
		}
	}

	bestIdx := -1
	var bestScore float64
	var bestYearDist int
	for i, c := range candidates {
		score := Score(want, normalized[i][0], opts.Weights)
		if normalized[i][1] != "" {
			score = min(score, Score(want, normalized[i][1], opts.Weights))
		}
		yearDist := 0
		if target.Year > 0 {
			year := c.Year()
			switch {
			case year == 0:
				score += opts.YearPenalty / 2
				yearDist = math.MaxInt
			default:
				yearDist = abs(year - target.Year)
				if yearDist > opts.YearTolerance {
					score += opts.YearPenalty
				}
			}
		}
		if bestIdx < 0 || better(score, yearDist, c.VoteCount, bestScore, bestYearDist, candidates[bestIdx].VoteCount) {
			bestIdx, bestScore, bestYearDist = i, score, yearDist
		}
	}

	best := candidates[bestIdx]
	switch {
	case bestScore <= opts.FlexibleThreshold:
		return Result{Candidate: &best, Score: bestScore, Type: Flexible}
	case textutil.SharesSignificantWord(want, normalized[bestIdx][0]) ||
		textutil.SharesSignificantWord(want, normalized[bestIdx][1]):
		return Result{Candidate: &best, Score: bestScore, Type: Fallback}
	default:
		return Result{Score: bestScore, Type: None}
	}
}

// better orders candidates by score, then year distance, then vote count.
// Remaining ties keep the earlier candidate.
func better(score float64, yearDist int, votes int64, bestScore float64, bestYearDist int, bestVotes int64) bool {
	if score != bestScore {
		return score < bestScore
	}
	if yearDist != bestYearDist {
		return yearDist < bestYearDist
	}
	return votes > bestVotes
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
