package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"moviepoll/internal/api"
	"moviepoll/internal/catalog/tmdb"
	"moviepoll/internal/poll"
	"moviepoll/internal/store"
	"moviepoll/internal/testsupport"
	"moviepoll/internal/titlematch"
)

type stubCatalog struct{}

func (stubCatalog) SearchByTitle(_ context.Context, title string, _ int) ([]titlematch.Candidate, error) {
	switch strings.ToLower(title) {
	case "alien":
		return []titlematch.Candidate{{ID: 348, Title: "Alien", ReleaseDate: "1979-05-25"}}, nil
	case "nothing like it":
		return []titlematch.Candidate{{ID: 9, Title: "Zebra Lounge", ReleaseDate: "2000-01-01"}}, nil
	}
	return nil, nil
}

func (stubCatalog) GetByID(_ context.Context, id int64) (*tmdb.MovieDetails, error) {
	switch id {
	case 348:
		return &tmdb.MovieDetails{ID: 348, Title: "Alien", ReleaseDate: "1979-05-25", Runtime: 117}, nil
	case 9:
		return &tmdb.MovieDetails{ID: 9, Title: "Zebra Lounge", ReleaseDate: "2000-01-01"}, nil
	}
	return nil, tmdb.ErrNotFound
}

func newTestServer(t *testing.T) (*api.Server, *store.Store) {
	t.Helper()
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	svc := poll.New(st, poll.WithCatalog(stubCatalog{}))
	return api.New(svc, api.Options{DefaultPoll: "friday", Version: "test"}), st
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[api.HealthResponse](t, w)
	if resp.Status != "ok" || resp.Version != "test" || resp.Database != "ok" {
		t.Fatalf("unexpected health: %+v", resp)
	}
	if w.Header().Get(api.RequestIDHeader) == "" {
		t.Fatal("expected generated request id header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/movies/999", nil)
	req.Header.Set(api.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if got := w.Header().Get(api.RequestIDHeader); got != "abc-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	resp := decode[api.ErrorResponse](t, w)
	if resp.RequestID != "abc-123" {
		t.Fatalf("expected request id in error body, got %+v", resp)
	}
}

func TestMovieLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodPost, "/api/movies", api.AddMovieRequest{Title: "Alien", Year: 1979})
	if w.Code != http.StatusCreated {
		t.Fatalf("add: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	added := decode[poll.AddResult](t, w)
	if added.Movie == nil || added.Movie.TMDBID != 348 || added.Match.Type != titlematch.Exact {
		t.Fatalf("unexpected add result: %+v", added)
	}
	id := added.Movie.ID

	w = do(t, h, http.MethodPost, "/api/movies", api.AddMovieRequest{Title: "Alien", Year: 1979})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/movies", api.AddMovieRequest{Title: "Backyard Film", Year: 2021, Manual: true})
	if w.Code != http.StatusCreated {
		t.Fatalf("manual add: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/movies", nil)
	list := decode[api.MovieListResponse](t, w)
	if list.Total != 2 || list.Poll != "friday" {
		t.Fatalf("unexpected listing: %+v", list)
	}

	title := "Alien (Director's Cut)"
	w = do(t, h, http.MethodPut, "/api/movies/"+itoa(id), store.MovieUpdate{Title: &title})
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[store.Movie](t, w); got.Title != title {
		t.Fatalf("expected updated title, got %q", got.Title)
	}

	w = do(t, h, http.MethodPut, "/api/movies/"+itoa(id), map[string]any{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty update: expected 400, got %d", w.Code)
	}

	w = do(t, h, http.MethodDelete, "/api/movies/"+itoa(id), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/api/movies/"+itoa(id), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get deleted: expected 404, got %d", w.Code)
	}
}

func TestAddMovieNoMatchReturnsMatchInfo(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodPost, "/api/movies", api.AddMovieRequest{Title: "Nothing Like It", Year: 2000})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Error     string         `json:"error"`
		MatchInfo poll.MatchInfo `json:"match_info"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.MatchInfo.Type != titlematch.None {
		t.Fatalf("expected match type none, got %q", resp.MatchInfo.Type)
	}
}

func TestAddMovieRejectsBadBodies(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	cases := []struct {
		name string
		body string
	}{
		{name: "malformed", body: "{"},
		{name: "unknown field", body: `{"title":"Alien","rating":5}`},
		{name: "missing title", body: `{"year":1979}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/movies", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestVotesAndResults(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	alien := testsupport.NewMovie(t, st, "Alien", 1979)
	brazil := testsupport.NewMovie(t, st, "Brazil", 1985)

	votes := []api.VoteRequest{
		{MovieID: alien.ID, UserName: "ana", Vibe: 6, Seen: true},
		{MovieID: alien.ID, UserName: "ben", Vibe: 4, Seen: true},
		{MovieID: brazil.ID, UserName: "ana", Vibe: 6, Seen: false},
	}
	for _, v := range votes {
		w := do(t, h, http.MethodPost, "/api/polls/friday/votes", v)
		if w.Code != http.StatusCreated {
			t.Fatalf("vote: expected 201, got %d: %s", w.Code, w.Body.String())
		}
	}

	w := do(t, h, http.MethodPost, "/api/polls/friday/votes", api.VoteRequest{MovieID: alien.ID, UserName: "cy", Vibe: 7})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid vibe: expected 400, got %d", w.Code)
	}
	w = do(t, h, http.MethodPost, "/api/polls/friday/votes", api.VoteRequest{MovieID: 999, UserName: "cy", Vibe: 3})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown movie: expected 404, got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/polls/friday/results", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("results: expected 200, got %d", w.Code)
	}
	res := decode[poll.Results](t, w)
	if len(res.Ranking) != 2 || res.TotalUniqueVoters != 2 || res.TotalVotes != 3 {
		t.Fatalf("unexpected results: %+v", res)
	}
	if res.Ranking[0].MovieID != alien.ID || res.Ranking[0].FinalAppeal != 5 {
		t.Fatalf("expected Alien first with appeal 5, got %+v", res.Ranking[0])
	}

	w = do(t, h, http.MethodGet, "/api/polls/friday/votes", nil)
	if got := decode[api.VoteListResponse](t, w); len(got.Votes) != 3 {
		t.Fatalf("expected 3 votes, got %d", len(got.Votes))
	}

	w = do(t, h, http.MethodDelete, "/api/polls/friday/movies/"+itoa(brazil.ID)+"/votes/ana", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete vote: expected 204, got %d", w.Code)
	}
	w = do(t, h, http.MethodDelete, "/api/polls/friday/movies/"+itoa(brazil.ID)+"/votes/ana", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete missing vote: expected 404, got %d", w.Code)
	}
}

func TestBatchVotesReportFailures(t *testing.T) {
	srv, st := newTestServer(t)
	alien := testsupport.NewMovie(t, st, "Alien", 1979)

	w := do(t, srv.Handler(), http.MethodPost, "/api/polls/friday/votes/batch", api.BatchVoteRequest{Votes: []api.VoteRequest{
		{MovieID: alien.ID, UserName: "ana", Vibe: 5},
		{MovieID: alien.ID, UserName: "", Vibe: 5},
		{MovieID: 404, UserName: "ben", Vibe: 2},
	}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decode[poll.BatchResult](t, w)
	if res.Submitted != 1 || res.Failed != 2 || len(res.Errors) != 2 {
		t.Fatalf("unexpected batch result: %+v", res)
	}
	if res.Errors[0].Index != 1 || res.Errors[1].Index != 2 {
		t.Fatalf("unexpected error indexes: %+v", res.Errors)
	}

	w = do(t, srv.Handler(), http.MethodPost, "/api/polls/friday/votes/batch", api.BatchVoteRequest{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty batch: expected 400, got %d", w.Code)
	}
}

func TestRefreshStoresSnapshots(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	alien := testsupport.NewMovie(t, st, "Alien", 1979)
	testsupport.NewVote(t, st, "friday", alien.ID, "ana", 4, false, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	w := do(t, h, http.MethodPost, "/api/polls/friday/refresh", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, h, http.MethodGet, "/api/movies?poll=friday", nil)
	list := decode[api.MovieListResponse](t, w)
	if len(list.Movies) != 1 || list.Movies[0].Appeal == nil {
		t.Fatalf("expected stored snapshot, got %+v", list)
	}
	if got := list.Movies[0].Appeal.FinalAppeal; math.Abs(got-0.4) > 1e-9 {
		t.Fatalf("expected floor-scaled appeal 0.4, got %v", got)
	}

	w = do(t, h, http.MethodGet, "/api/polls", nil)
	if got := decode[api.PollListResponse](t, w); len(got.Polls) != 1 || got.Polls[0] != "friday" {
		t.Fatalf("unexpected polls: %+v", got)
	}

	w = do(t, h, http.MethodGet, "/api/polls/friday/stats", nil)
	stats := decode[store.VoteStats](t, w)
	if stats.TotalVotes != 1 || stats.UniqueVoters != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSearch(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/api/search?title=Alien&year=1979", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	res := decode[poll.SearchResult](t, w)
	if len(res.Candidates) != 1 || res.Match == nil || res.Match.Type != titlematch.Exact {
		t.Fatalf("unexpected search: %+v", res)
	}

	for _, target := range []string{"/api/search", "/api/search?title=Alien&year=abc"} {
		if w := do(t, h, http.MethodGet, target, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, w.Code)
		}
	}
}

func TestDuplicateMoviesListAndCleanup(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	first := testsupport.NewMovie(t, st, "Alien", 1979)
	second := testsupport.NewMovie(t, st, "The Alien", 1979)
	testsupport.NewMovie(t, st, "Aliens", 1986)
	at := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	testsupport.NewVote(t, st, "friday", second.ID, "ana", 5, true, at)

	w := do(t, h, http.MethodGet, "/api/movies/duplicates", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	list := decode[api.DuplicateListResponse](t, w)
	if list.Total != 1 || len(list.Groups[0].Movies) != 2 || list.Groups[0].Keep != first.ID {
		t.Fatalf("unexpected duplicates: %+v", list)
	}

	w = do(t, h, http.MethodPost, "/api/movies/duplicates/cleanup", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cleanup: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decode[poll.CleanupResult](t, w)
	if res.Groups != 1 || len(res.Removed) != 1 || res.Removed[0] != second.ID || res.VotesMoved != 1 {
		t.Fatalf("unexpected cleanup: %+v", res)
	}

	if w := do(t, h, http.MethodGet, "/api/movies/"+itoa(second.ID), nil); w.Code != http.StatusNotFound {
		t.Fatalf("expected merged movie to be gone, got %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/api/movies/duplicates", nil)
	if got := decode[api.DuplicateListResponse](t, w); got.Total != 0 || got.Groups == nil {
		t.Fatalf("expected empty group list, got %+v", got)
	}
}

func TestSimilarVotersAndCollisions(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	alien := testsupport.NewMovie(t, st, "Alien", 1979)
	at := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	for _, name := range []string{"ana", "anna", "bob"} {
		testsupport.NewVote(t, st, "friday", alien.ID, name, 4, true, at)
	}

	w := do(t, h, http.MethodGet, "/api/polls/friday/voters/similar?name=Ana", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	similar := decode[api.SimilarVotersResponse](t, w)
	if len(similar.Matches) != 2 || similar.Matches[0].Name != "ana" || similar.Matches[1].Name != "anna" {
		t.Fatalf("unexpected similar voters: %+v", similar)
	}

	w = do(t, h, http.MethodGet, "/api/polls/friday/voters/collisions", nil)
	collisions := decode[api.VoterCollisionsResponse](t, w)
	if len(collisions.Pairs) != 1 || math.Abs(collisions.Pairs[0].Similarity-0.75) > 1e-9 {
		t.Fatalf("unexpected collisions: %+v", collisions)
	}

	for _, target := range []string{
		"/api/polls/friday/voters/similar",
		"/api/polls/friday/voters/similar?name=ana&min=2",
		"/api/polls/friday/voters/collisions?min=abc",
	} {
		if w := do(t, h, http.MethodGet, target, nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, w.Code)
		}
	}
}

func TestBlankTitleIsBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodPost, "/api/movies", api.AddMovieRequest{Title: "   ", TMDBID: 5, Manual: true})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodOptions, "/api/movies", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header: %v", w.Header())
	}
}

func TestMetricsExposeRouteLabels(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()
	alien := testsupport.NewMovie(t, st, "Alien", 1979)

	do(t, h, http.MethodGet, "/api/movies/"+itoa(alien.ID), nil)
	do(t, h, http.MethodPost, "/api/polls/friday/votes", api.VoteRequest{MovieID: alien.ID, UserName: "ana", Vibe: 3})

	w := do(t, h, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		`route="GET /api/movies/{id}"`,
		`moviepoll_votes_total{outcome="accepted"} 1`,
		"moviepoll_db_connections_open",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestStartAndStop(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	srv := api.New(poll.New(st), api.Options{Bind: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.Stop()

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
