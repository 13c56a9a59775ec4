package poll

import (
	"context"
	"sort"
	"strconv"

	"moviepoll/internal/logging"
	"moviepoll/internal/store"
	"moviepoll/internal/textutil"
)

// DuplicateGroup lists stored movies that share a normalized title and year.
// Keep is the movie a cleanup retains.
type DuplicateGroup struct {
	Key    string        `json:"key"`
	Title  string        `json:"title"`
	Year   int           `json:"year,omitempty"`
	Keep   int64         `json:"keep_id"`
	Movies []store.Movie `json:"movies"`
}

// DuplicateKey is the grouping key for duplicate detection: the normalized
// title and the release year.
func DuplicateKey(title string, year int) string {
	return textutil.NormalizeTitle(title) + "|" + strconv.Itoa(year)
}

// FindDuplicateMovies groups movies whose titles normalize alike and whose
// years agree. Movies carrying different TMDB ids are distinct films, so a
// group containing more than one TMDB id is not reported.
func (s *Service) FindDuplicateMovies(ctx context.Context) ([]DuplicateGroup, error) {
	movies, err := s.store.AllMovies(ctx)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string][]store.Movie)
	var order []string
	for _, m := range movies {
		key := DuplicateKey(m.Title, m.Year)
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], m)
	}

	var groups []DuplicateGroup
	for _, key := range order {
		members := byKey[key]
		if len(members) < 2 || distinctTMDBIDs(members) > 1 {
			continue
		}
		groups = append(groups, DuplicateGroup{
			Key:    key,
			Title:  textutil.NormalizeTitle(members[0].Title),
			Year:   members[0].Year,
			Keep:   keeper(members).ID,
			Movies: members,
		})
	}
	return groups, nil
}

// CleanupResult reports what CleanupDuplicates merged.
type CleanupResult struct {
	Groups     int     `json:"groups"`
	Removed    []int64 `json:"removed_ids"`
	VotesMoved int     `json:"votes_moved"`
}

// CleanupDuplicates merges every duplicate group into its kept movie, moving
// votes across, then refreshes every poll so snapshots match.
func (s *Service) CleanupDuplicates(ctx context.Context) (CleanupResult, error) {
	groups, err := s.FindDuplicateMovies(ctx)
	if err != nil {
		return CleanupResult{}, err
	}
	logger := logging.WithContext(ctx, s.logger)
	res := CleanupResult{Groups: len(groups), Removed: []int64{}}
	for _, g := range groups {
		for _, m := range g.Movies {
			if m.ID == g.Keep {
				continue
			}
			moved, err := s.store.MergeMovie(ctx, g.Keep, m.ID)
			if err != nil {
				return res, err
			}
			res.Removed = append(res.Removed, m.ID)
			res.VotesMoved += moved
			logger.Info("duplicate movie merged",
				logging.Int64("kept_id", g.Keep),
				logging.Int64(logging.FieldMovieID, m.ID),
				logging.String("title", m.Title),
				logging.Int("votes_moved", moved),
			)
		}
	}
	if len(res.Removed) > 0 {
		if _, err := s.RefreshAll(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

// keeper prefers the catalog-matched movie, then the oldest entry.
func keeper(members []store.Movie) store.Movie {
	sorted := append([]store.Movie(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if (sorted[i].TMDBID > 0) != (sorted[j].TMDBID > 0) {
			return sorted[i].TMDBID > 0
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0]
}

func distinctTMDBIDs(members []store.Movie) int {
	seen := make(map[int64]struct{})
	for _, m := range members {
		if m.TMDBID > 0 {
			seen[m.TMDBID] = struct{}{}
		}
	}
	return len(seen)
}
