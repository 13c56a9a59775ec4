package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"moviepoll/internal/appeal"
	"moviepoll/internal/poll"
	"moviepoll/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Time:     s.now().UTC(),
		Database: "ok",
	}
	status := http.StatusOK
	if err := s.svc.Store().Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Database = err.Error()
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleListMovies(w http.ResponseWriter, r *http.Request) {
	pollID := s.queryPoll(r)
	movies, err := s.svc.ListMovies(r.Context(), pollID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if movies == nil {
		movies = []store.MovieListing{}
	}
	s.writeJSON(w, http.StatusOK, MovieListResponse{Poll: pollID, Movies: movies, Total: len(movies)})
}

func (s *Server) handleGetMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	movie, err := s.svc.GetMovie(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, movie)
}

func (s *Server) handleAddMovie(w http.ResponseWriter, r *http.Request) {
	var req AddMovieRequest
	if err := decodeJSON(r, w, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Title) == "" && req.TMDBID <= 0 {
		s.writeError(w, r, http.StatusBadRequest, "title or tmdb_id is required")
		return
	}

	if req.Manual {
		movie, err := s.svc.AddManualMovie(r.Context(), req.Title, req.Year)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		s.metrics.MoviesAdded.WithLabelValues("manual").Inc()
		s.writeJSON(w, http.StatusCreated, poll.AddResult{Movie: movie, Match: poll.MatchInfo{Type: "manual"}})
		return
	}

	res, err := s.svc.AddMovie(r.Context(), poll.AddRequest{Title: req.Title, Year: req.Year, TMDBID: req.TMDBID})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.MoviesAdded.WithLabelValues(string(res.Match.Type)).Inc()
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var update store.MovieUpdate
	if err := decodeJSON(r, w, &update); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if update.Empty() {
		s.writeError(w, r, http.StatusBadRequest, "no fields to update")
		return
	}
	movie, err := s.svc.UpdateMovie(r.Context(), id, update)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, movie)
}

func (s *Server) handleDeleteMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.DeleteMovie(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	title := strings.TrimSpace(query.Get("title"))
	if title == "" {
		title = strings.TrimSpace(query.Get("q"))
	}
	if title == "" {
		s.writeError(w, r, http.StatusBadRequest, "title query parameter is required")
		return
	}
	var year int
	if raw := strings.TrimSpace(query.Get("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, r, http.StatusBadRequest, "invalid year")
			return
		}
		year = parsed
	}
	res, err := s.svc.Search(r.Context(), title, year)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := s.svc.Polls(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if polls == nil {
		polls = []string{}
	}
	s.writeJSON(w, http.StatusOK, PollListResponse{Polls: polls, Default: s.defaultPoll})
}

func (s *Server) handleListVotes(w http.ResponseWriter, r *http.Request) {
	pollID, err := s.pathPoll(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	votes, err := s.svc.Votes(r.Context(), pollID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if votes == nil {
		votes = []appeal.Vote{}
	}
	s.writeJSON(w, http.StatusOK, VoteListResponse{Poll: pollID, Votes: votes})
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := s.pathPoll(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req VoteRequest
	if err := decodeJSON(r, w, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	vote, err := s.svc.SubmitVote(r.Context(), pollID, req.vote())
	if err != nil {
		s.metrics.VotesTotal.WithLabelValues("rejected").Inc()
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.VotesTotal.WithLabelValues("accepted").Inc()
	s.writeJSON(w, http.StatusCreated, vote)
}

func (s *Server) handleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	pollID, err := s.pathPoll(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req BatchVoteRequest
	if err := decodeJSON(r, w, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Votes) == 0 {
		s.writeError(w, r, http.StatusBadRequest, "votes must not be empty")
		return
	}
	votes := make([]appeal.Vote, len(req.Votes))
	for i, v := range req.Votes {
		votes[i] = v.vote()
	}
	res, err := s.svc.SubmitBatch(r.Context(), pollID, votes)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.VotesTotal.WithLabelValues("accepted").Add(float64(res.Submitted))
	s.metrics.VotesTotal.WithLabelValues("rejected").Add(float64(res.Failed))
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := s.pathPoll(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.svc.Results(r.Context(), pollID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if res.Ranking == nil {
		res.Ranking = []appeal.Ranked{}
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	pollID, err := s.pathPoll(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	start := time.Now()
	res, err := s.svc.Refresh(r.Context(), pollID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.metrics.RefreshDuration.Observe(time.Since(start).Seconds())
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	pollID, err := s.pathPoll(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	stats, err := s.svc.Stats(r.Context(), pollID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDeleteVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := s.pathPoll(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	movieID, err := pathID(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	user := strings.TrimSpace(r.PathValue("user"))
	if user == "" {
		s.writeError(w, r, http.StatusBadRequest, "user is required")
		return
	}
	if err := s.svc.RemoveVote(r.Context(), pollID, movieID, user); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDuplicates(w http.ResponseWriter, r *http.Request) {
	groups, err := s.svc.FindDuplicateMovies(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if groups == nil {
		groups = []poll.DuplicateGroup{}
	}
	s.writeJSON(w, http.StatusOK, DuplicateListResponse{Groups: groups, Total: len(groups)})
}

func (s *Server) handleCleanupDuplicates(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.CleanupDuplicates(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSimilarVoters(w http.ResponseWriter, r *http.Request) {
	pollID, err := s.pathPoll(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	threshold, err := queryThreshold(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	matches, err := s.svc.SimilarVoters(r.Context(), pollID, name, threshold)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if matches == nil {
		matches = []poll.SimilarVoter{}
	}
	s.writeJSON(w, http.StatusOK, SimilarVotersResponse{Poll: pollID, Name: name, Matches: matches})
}

func (s *Server) handleVoterCollisions(w http.ResponseWriter, r *http.Request) {
	pollID, err := s.pathPoll(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	threshold, err := queryThreshold(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	pairs, err := s.svc.VoterCollisions(r.Context(), pollID, threshold)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if pairs == nil {
		pairs = []poll.VoterPair{}
	}
	s.writeJSON(w, http.StatusOK, VoterCollisionsResponse{Poll: pollID, Pairs: pairs})
}
