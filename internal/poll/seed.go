package poll

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"moviepoll/internal/appeal"
	"moviepoll/internal/logging"
	"moviepoll/internal/textutil"
	"moviepoll/internal/titlematch"
)

// SeedFile is the YAML document accepted by Seed.
//
//	poll: friday
//	movies:
//	  - title: The Thing
//	    year: 1982
//	    votes:
//	      - {user: ana, vibe: 5, seen: true}
type SeedFile struct {
	Poll   string      `yaml:"poll"`
	Movies []SeedMovie `yaml:"movies"`
}

// SeedMovie is one movie entry of a seed file.
type SeedMovie struct {
	Title  string     `yaml:"title"`
	Year   int        `yaml:"year"`
	TMDBID int64      `yaml:"tmdb_id"`
	Votes  []SeedVote `yaml:"votes"`
}

// SeedVote is one vote attached to a seeded movie.
type SeedVote struct {
	User string `yaml:"user"`
	Vibe int    `yaml:"vibe"`
	Seen bool   `yaml:"seen"`
}

// Seed entry statuses.
const (
	SeedAdded    = "added"
	SeedExisting = "existing"
	SeedNoMatch  = "no_match"
	SeedFailed   = "failed"
)

// SeedEntry reports what happened to one seed movie.
type SeedEntry struct {
	Title   string    `json:"title"`
	Year    int       `json:"year,omitempty"`
	Status  string    `json:"status"`
	MovieID int64     `json:"movie_id,omitempty"`
	Match   MatchInfo `json:"match_info"`
	Votes   int       `json:"votes"`
	Error   string    `json:"error,omitempty"`
}

// SeedReport summarises a Seed run.
type SeedReport struct {
	Poll     string      `json:"poll"`
	Entries  []SeedEntry `json:"entries"`
	Added    int         `json:"added"`
	Existing int         `json:"existing"`
	Failed   int         `json:"failed"`
}

// LoadSeedFile reads and decodes a YAML seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a YAML seed document. Unknown keys are rejected.
func ParseSeed(data []byte) (*SeedFile, error) {
	var file SeedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, m := range file.Movies {
		if strings.TrimSpace(m.Title) == "" && m.TMDBID == 0 {
			return nil, fmt.Errorf("parse seed file: movies[%d] needs a title or tmdb_id", i)
		}
	}
	return &file, nil
}

// Seed adds each movie through the matching workflow and records its votes.
// Movies already stored still receive their votes. Per-entry failures are
// reported; only context cancellation aborts the run.
func (s *Service) Seed(ctx context.Context, file *SeedFile, defaultPoll string) (SeedReport, error) {
	pollID := textutil.SanitizeToken(file.Poll)
	if pollID == "" {
		pollID = defaultPoll
	}
	report := SeedReport{Poll: pollID, Entries: make([]SeedEntry, 0, len(file.Movies))}
	logger := logging.WithContext(ctx, s.logger)

	for _, m := range file.Movies {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		entry := SeedEntry{Title: m.Title, Year: m.Year}

		added, err := s.AddMovie(ctx, AddRequest{Title: m.Title, Year: m.Year, TMDBID: m.TMDBID})
		var (
			dup     *DuplicateMovieError
			noMatch *NoMatchError
		)
		switch {
		case err == nil:
			entry.Status = SeedAdded
			entry.MovieID = added.Movie.ID
			entry.Match = added.Match
			report.Added++
		case errors.As(err, &dup) && dup.Existing != nil:
			entry.Status = SeedExisting
			entry.MovieID = dup.Existing.ID
			entry.Match = MatchInfo{
				Type:        titlematch.MatchType(dup.Existing.MatchType),
				CandidateID: dup.TMDBID,
				Title:       dup.Existing.Title,
				Year:        dup.Existing.Year,
			}
			report.Existing++
		case errors.As(err, &noMatch):
			entry.Status = SeedNoMatch
			entry.Match = noMatch.Match
			entry.Error = err.Error()
			report.Failed++
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			entry.Status = SeedFailed
			entry.Error = err.Error()
			report.Failed++
		}

		if entry.MovieID > 0 {
			for _, sv := range m.Votes {
				_, err := s.SubmitVote(ctx, pollID, appeal.Vote{MovieID: entry.MovieID, UserName: sv.User, Vibe: sv.Vibe, Seen: sv.Seen})
				if err != nil {
					logging.WarnWithContext(logger, "seed vote rejected", "seed_vote_rejected",
						logging.String("title", m.Title),
						logging.String("user", sv.User),
						logging.Error(err),
						logging.String(logging.FieldImpact, "vote skipped"),
					)
					continue
				}
				entry.Votes++
			}
		}
		report.Entries = append(report.Entries, entry)
	}

	logger.Info("seed complete",
		logging.String(logging.FieldPoll, pollID),
		logging.Int("added", report.Added),
		logging.Int("existing", report.Existing),
		logging.Int("failed", report.Failed),
	)
	return report, nil
}
