package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"moviepoll/internal/appeal"
	"moviepoll/internal/logging"
	"moviepoll/internal/poll"
	"moviepoll/internal/store"
	"moviepoll/internal/textutil"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Options configures a Server.
type Options struct {
	Bind        string
	DefaultPoll string
	Version     string
	Logger      *slog.Logger
	Metrics     *Metrics
}

// Server is the moviepoll HTTP API.
type Server struct {
	svc         *poll.Service
	bind        string
	defaultPoll string
	version     string
	logger      *slog.Logger
	metrics     *Metrics
	now         func() time.Time

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// New builds the server and its routes without listening.
func New(svc *poll.Service, opts Options) *Server {
	s := &Server{
		svc:         svc,
		bind:        strings.TrimSpace(opts.Bind),
		defaultPoll: opts.DefaultPoll,
		version:     opts.Version,
		logger:      logging.NewComponentLogger(opts.Logger, "api-server"),
		metrics:     opts.Metrics,
		now:         time.Now,
	}
	if s.defaultPoll == "" {
		s.defaultPoll = "default"
	}
	if s.version == "" {
		s.version = "dev"
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(svc.Store())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("GET /api/movies", s.handleListMovies)
	mux.HandleFunc("POST /api/movies", s.handleAddMovie)
	mux.HandleFunc("GET /api/movies/duplicates", s.handleListDuplicates)
	mux.HandleFunc("POST /api/movies/duplicates/cleanup", s.handleCleanupDuplicates)
	mux.HandleFunc("GET /api/movies/{id}", s.handleGetMovie)
	mux.HandleFunc("PUT /api/movies/{id}", s.handleUpdateMovie)
	mux.HandleFunc("DELETE /api/movies/{id}", s.handleDeleteMovie)
	mux.HandleFunc("GET /api/search", s.handleSearch)

	mux.HandleFunc("GET /api/polls", s.handleListPolls)
	mux.HandleFunc("GET /api/polls/{poll}/votes", s.handleListVotes)
	mux.HandleFunc("POST /api/polls/{poll}/votes", s.handleSubmitVote)
	mux.HandleFunc("POST /api/polls/{poll}/votes/batch", s.handleSubmitBatch)
	mux.HandleFunc("DELETE /api/polls/{poll}/movies/{id}/votes/{user}", s.handleDeleteVote)
	mux.HandleFunc("GET /api/polls/{poll}/results", s.handleResults)
	mux.HandleFunc("POST /api/polls/{poll}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/polls/{poll}/stats", s.handleStats)
	mux.HandleFunc("GET /api/polls/{poll}/voters/similar", s.handleSimilarVoters)
	mux.HandleFunc("GET /api/polls/{poll}/voters/collisions", s.handleVoterCollisions)

	var h http.Handler = mux
	h = s.metrics.middleware(h)
	h = loggingMiddleware(s.logger, h)
	h = corsMiddleware(h)
	h = requestIDMiddleware(h)
	s.handler = h

	s.server = &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address once Start succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := ErrorResponse{Error: message}
	if id, ok := logging.RequestIDFromContext(r.Context()); ok {
		resp.RequestID = id
	}
	s.writeJSON(w, status, resp)
}

// writeServiceError maps domain errors onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		noMatch *poll.NoMatchError
		status  int
	)
	switch {
	case errors.As(err, &noMatch):
		resp := ErrorResponse{Error: err.Error(), MatchInfo: noMatch.Match}
		if id, ok := logging.RequestIDFromContext(r.Context()); ok {
			resp.RequestID = id
		}
		s.writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	case errors.Is(err, appeal.ErrInvalidVote), errors.Is(err, poll.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, poll.ErrDuplicateMovie):
		status = http.StatusConflict
	case errors.Is(err, poll.ErrNoMatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, poll.ErrCatalogUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}
	s.writeError(w, r, status, err.Error())
}

func decodeJSON(r *http.Request, w http.ResponseWriter, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid movie id")
	}
	return id, nil
}

func (s *Server) pathPoll(r *http.Request) (string, error) {
	id := textutil.SanitizeToken(r.PathValue("poll"))
	if id == "" {
		return "", errors.New("invalid poll id")
	}
	return id, nil
}

// queryThreshold reads the optional "min" similarity parameter. Zero means
// the service default.
func queryThreshold(r *http.Request) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("min"))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, errors.New("min must be between 0 and 1")
	}
	return v, nil
}

func (s *Server) queryPoll(r *http.Request) string {
	if id := textutil.SanitizeToken(r.URL.Query().Get("poll")); id != "" {
		return id
	}
	return s.defaultPoll
}
