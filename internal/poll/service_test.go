package poll_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"moviepoll/internal/appeal"
	"moviepoll/internal/catalog/tmdb"
	"moviepoll/internal/poll"
	"moviepoll/internal/store"
	"moviepoll/internal/testsupport"
	"moviepoll/internal/titlematch"
)

type fakeCatalog struct {
	results   map[string][]titlematch.Candidate
	details   map[int64]*tmdb.MovieDetails
	searchErr error
	searches  int
}

func (f *fakeCatalog) SearchByTitle(_ context.Context, title string, _ int) ([]titlematch.Candidate, error) {
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results[strings.ToLower(title)], nil
}

func (f *fakeCatalog) GetByID(_ context.Context, id int64) (*tmdb.MovieDetails, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, tmdb.ErrNotFound
	}
	return d, nil
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		results: map[string][]titlematch.Candidate{
			"the thing": {
				{ID: 60935, Title: "The Thing", ReleaseDate: "2011-10-14", VoteCount: 3000},
				{ID: 1091, Title: "The Thing", ReleaseDate: "1982-06-25", VoteCount: 6000},
			},
			"jurasic park": {
				{ID: 329, Title: "Jurassic Park", ReleaseDate: "1993-06-11"},
			},
			"completely different": {
				{ID: 5, Title: "Zebra Lounge", ReleaseDate: "2000-01-01"},
			},
		},
		details: map[int64]*tmdb.MovieDetails{
			1091:  {ID: 1091, Title: "The Thing", OriginalTitle: "The Thing", ReleaseDate: "1982-06-25", Runtime: 109, Language: "en"},
			60935: {ID: 60935, Title: "The Thing", ReleaseDate: "2011-10-14", Runtime: 103},
			329:   {ID: 329, Title: "Jurassic Park", ReleaseDate: "1993-06-11", Runtime: 127},
			5:     {ID: 5, Title: "Zebra Lounge", ReleaseDate: "2000-01-01"},
		},
	}
}

func newService(t *testing.T, cat poll.Catalog, opts ...poll.Option) (*poll.Service, *store.Store) {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if cat != nil {
		opts = append([]poll.Option{poll.WithCatalog(cat)}, opts...)
	}
	return poll.New(st, opts...), st
}

func TestResultsRanksLiveVotes(t *testing.T) {
	svc, st := newService(t, nil)
	ctx := context.Background()
	alien := testsupport.NewMovie(t, st, "Alien", 1979)
	brazil := testsupport.NewMovie(t, st, "Brazil", 1985)
	at := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)

	testsupport.NewVote(t, st, "default", alien.ID, "A", 6, true, at)
	testsupport.NewVote(t, st, "default", alien.ID, "B", 4, false, at)
	testsupport.NewVote(t, st, "default", brazil.ID, "A", 6, true, at)

	res, err := svc.Results(ctx, "default")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	if res.TotalUniqueVoters != 2 || res.TotalVotes != 3 {
		t.Fatalf("unexpected totals: %+v", res)
	}
	if len(res.Ranking) != 2 {
		t.Fatalf("expected 2 ranked movies, got %d", len(res.Ranking))
	}
	if res.Ranking[0].Title != "Brazil" || res.Ranking[0].FinalAppeal != 6 {
		t.Fatalf("unexpected first place: %+v", res.Ranking[0])
	}
	if res.Ranking[1].Title != "Alien" || res.Ranking[1].FinalAppeal != 2.5 || res.Ranking[1].Rank != 2 {
		t.Fatalf("unexpected second place: %+v", res.Ranking[1])
	}

	snaps, err := st.ListSnapshots(ctx, "default")
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 0 {
		t.Fatal("Results must not persist snapshots")
	}
}

func TestRefreshPersistsSnapshots(t *testing.T) {
	fixed := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, st := newService(t, nil, poll.WithClock(func() time.Time { return fixed }))
	ctx := context.Background()
	alien := testsupport.NewMovie(t, st, "Alien", 1979)
	testsupport.NewVote(t, st, "friday", alien.ID, "A", 5, false, fixed)

	if _, err := svc.Refresh(ctx, "friday"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snaps, err := st.ListSnapshots(ctx, "friday")
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(snaps) != 1 || !snaps[0].CalculatedAt.Equal(fixed) {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
	if snaps[0].FinalAppeal != 0.5 {
		t.Fatalf("floor not applied: %+v", snaps[0])
	}

	testsupport.NewVote(t, st, "saturday", alien.ID, "B", 2, true, fixed)
	n, err := svc.RefreshAll(ctx)
	if err != nil {
		t.Fatalf("RefreshAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("RefreshAll refreshed %d polls, want 2", n)
	}
}

func TestSearchWithoutYearReturnsAllCandidates(t *testing.T) {
	svc, _ := newService(t, newFakeCatalog())
	res, err := svc.Search(context.Background(), "  The   Thing ", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Query != "The Thing" || len(res.Candidates) != 2 || res.Match != nil {
		t.Fatalf("unexpected search result: %+v", res)
	}
}

func TestSearchWithYearReturnsBestMatchOnly(t *testing.T) {
	svc, _ := newService(t, newFakeCatalog())
	ctx := context.Background()

	res, err := svc.Search(ctx, "The Thing", 1982)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].ID != 1091 {
		t.Fatalf("expected only the 1982 film, got %+v", res.Candidates)
	}
	if res.Match == nil || res.Match.Type != titlematch.Exact {
		t.Fatalf("unexpected match info: %+v", res.Match)
	}

	none, err := svc.Search(ctx, "Nothing Here", 1999)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(none.Candidates) != 0 || none.Match.Type != titlematch.None || none.Match.Score != nil {
		t.Fatalf("unexpected empty search: %+v", none)
	}
	if _, err := json.Marshal(none); err != nil {
		t.Fatalf("search result must be JSON-encodable: %v", err)
	}
}

func TestSearchRequiresCatalog(t *testing.T) {
	svc, _ := newService(t, nil)
	if _, err := svc.Search(context.Background(), "Alien", 0); !errors.Is(err, poll.ErrCatalogUnavailable) {
		t.Fatalf("expected ErrCatalogUnavailable, got %v", err)
	}
}

func TestAddMovie(t *testing.T) {
	tests := []struct {
		name      string
		req       poll.AddRequest
		matching  bool
		wantTMDB  int64
		wantType  titlematch.MatchType
		wantErrIs error
	}{
		{name: "exact", req: poll.AddRequest{Title: "The Thing", Year: 1982}, matching: true, wantTMDB: 1091, wantType: titlematch.Exact},
		{name: "flexible", req: poll.AddRequest{Title: "Jurasic Park", Year: 1993}, matching: true, wantTMDB: 329, wantType: titlematch.Flexible},
		{name: "none", req: poll.AddRequest{Title: "Completely Different", Year: 2000}, matching: true, wantErrIs: poll.ErrNoMatch},
		{name: "no candidates", req: poll.AddRequest{Title: "Unknown Film"}, matching: true, wantErrIs: poll.ErrNoMatch},
		{name: "matching disabled takes first", req: poll.AddRequest{Title: "The Thing", Year: 1982}, matching: false, wantTMDB: 60935, wantType: poll.FirstResult},
		{name: "direct tmdb id", req: poll.AddRequest{TMDBID: 329}, matching: true, wantTMDB: 329, wantType: poll.DirectID},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newService(t, newFakeCatalog(), poll.WithMatching(tc.matching))
			res, err := svc.AddMovie(context.Background(), tc.req)
			if tc.wantErrIs != nil {
				if !errors.Is(err, tc.wantErrIs) {
					t.Fatalf("expected %v, got %v", tc.wantErrIs, err)
				}
				var noMatch *poll.NoMatchError
				if errors.As(err, &noMatch) && noMatch.Match.Type != titlematch.None {
					t.Fatalf("no-match error should carry none match info: %+v", noMatch.Match)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddMovie: %v", err)
			}
			if res.Movie.TMDBID != tc.wantTMDB {
				t.Fatalf("tmdb id = %d, want %d", res.Movie.TMDBID, tc.wantTMDB)
			}
			if res.Match.Type != tc.wantType || res.Movie.MatchType != string(tc.wantType) {
				t.Fatalf("match type = %s / %s, want %s", res.Match.Type, res.Movie.MatchType, tc.wantType)
			}
		})
	}
}

func TestAddMovieRejectsDuplicate(t *testing.T) {
	svc, _ := newService(t, newFakeCatalog())
	ctx := context.Background()
	first, err := svc.AddMovie(ctx, poll.AddRequest{Title: "The Thing", Year: 1982})
	if err != nil {
		t.Fatalf("AddMovie: %v", err)
	}
	if first.Movie.Year != 1982 || first.Movie.Runtime != 109 || first.Movie.OriginalLanguage != "en" {
		t.Fatalf("details not copied: %+v", first.Movie)
	}

	_, err = svc.AddMovie(ctx, poll.AddRequest{Title: "the thing", Year: 1982})
	if !errors.Is(err, poll.ErrDuplicateMovie) {
		t.Fatalf("expected ErrDuplicateMovie, got %v", err)
	}
	var dup *poll.DuplicateMovieError
	if !errors.As(err, &dup) || dup.Existing == nil || dup.Existing.ID != first.Movie.ID {
		t.Fatalf("duplicate error should name existing movie: %v", err)
	}
}

func TestAddMoviePropagatesSearchError(t *testing.T) {
	cat := newFakeCatalog()
	cat.searchErr = errors.New("tmdb down")
	svc, _ := newService(t, cat)
	if _, err := svc.AddMovie(context.Background(), poll.AddRequest{Title: "Alien"}); err == nil || !strings.Contains(err.Error(), "tmdb down") {
		t.Fatalf("expected search error, got %v", err)
	}
}

func TestSubmitVote(t *testing.T) {
	svc, st := newService(t, nil)
	ctx := context.Background()
	movie := testsupport.NewMovie(t, st, "Alien", 1979)

	if _, err := svc.SubmitVote(ctx, "default", appeal.Vote{MovieID: movie.ID, UserName: "ana", Vibe: 5, Seen: true}); err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}
	if _, err := svc.SubmitVote(ctx, "default", appeal.Vote{MovieID: 999, UserName: "ana", Vibe: 5}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing movie, got %v", err)
	}
	if _, err := svc.SubmitVote(ctx, "default", appeal.Vote{MovieID: movie.ID, UserName: "", Vibe: 5}); !errors.Is(err, appeal.ErrInvalidVote) {
		t.Fatalf("expected ErrInvalidVote, got %v", err)
	}
}

func TestSubmitBatchReportsPerVoteFailures(t *testing.T) {
	svc, st := newService(t, nil)
	movie := testsupport.NewMovie(t, st, "Alien", 1979)

	res, err := svc.SubmitBatch(context.Background(), "default", []appeal.Vote{
		{MovieID: movie.ID, UserName: "ana", Vibe: 5},
		{MovieID: movie.ID, UserName: "bo", Vibe: 0},
		{MovieID: 404, UserName: "cy", Vibe: 3},
		{MovieID: movie.ID, UserName: "di", Vibe: 6, Seen: true},
	})
	if err != nil {
		t.Fatalf("SubmitBatch: %v", err)
	}
	if res.Submitted != 2 || res.Failed != 2 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.Errors[0].Index != 1 || res.Errors[1].Index != 2 {
		t.Fatalf("unexpected error indexes: %+v", res.Errors)
	}
	stats, err := svc.Stats(context.Background(), "default")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalVotes != 2 {
		t.Fatalf("expected 2 stored votes, got %d", stats.TotalVotes)
	}
}

func TestBlankTitlesAreInvalidInput(t *testing.T) {
	svc, _ := newService(t, newFakeCatalog())
	ctx := context.Background()

	if _, err := svc.AddManualMovie(ctx, "   ", 1999); !errors.Is(err, poll.ErrInvalidInput) {
		t.Fatalf("AddManualMovie: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.AddMovie(ctx, poll.AddRequest{Title: " "}); !errors.Is(err, poll.ErrInvalidInput) {
		t.Fatalf("AddMovie: expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Search(ctx, "", 0); !errors.Is(err, poll.ErrInvalidInput) {
		t.Fatalf("Search: expected ErrInvalidInput, got %v", err)
	}
}

func TestResultsAndRefreshAgree(t *testing.T) {
	at := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	svc, st := newService(t, nil, poll.WithClock(func() time.Time { return at }))
	ctx := context.Background()
	alien := testsupport.NewMovie(t, st, "Alien", 1979)
	brazil := testsupport.NewMovie(t, st, "Brazil", 1985)
	testsupport.NewVote(t, st, "friday", alien.ID, "ana", 5, true, at)
	testsupport.NewVote(t, st, "friday", brazil.ID, "ana", 2, true, at)
	testsupport.NewVote(t, st, "friday", alien.ID, "bo", 6, false, at)

	live, err := svc.Results(ctx, "friday")
	if err != nil {
		t.Fatalf("Results: %v", err)
	}
	refreshed, err := svc.Refresh(ctx, "friday")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !reflect.DeepEqual(live, refreshed) {
		t.Fatalf("Results and Refresh disagree:\n%+v\n%+v", live, refreshed)
	}
	if live.TotalVotes != 3 || live.TotalUniqueVoters != 2 || len(live.Ranking) != 2 {
		t.Fatalf("unexpected results: %+v", live)
	}
}

func TestConfiguredWeightPresetChangesMatch(t *testing.T) {
	candidates := []titlematch.Candidate{
		{ID: 1, Title: "Blade Runer"},
		{ID: 2, Title: "Return of Blade Runner"},
	}
	tests := []struct {
		preset string
		wantID int64
	}{
		{titlematch.PresetMovie, 1},
		{titlematch.PresetText, 2},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			cfg.Matching.Weights = tt.preset
			svc, _ := newService(t, nil, poll.ConfigOptions(cfg)...)
			res := svc.Match("Blade Runner", 0, candidates)
			if !res.Found() || res.Candidate.ID != tt.wantID {
				t.Fatalf("expected candidate %d, got %+v", tt.wantID, res)
			}
		})
	}
}
