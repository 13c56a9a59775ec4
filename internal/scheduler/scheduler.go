package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"moviepoll/internal/config"
	"moviepoll/internal/logging"
)

// Refresher recomputes stored appeal snapshots.
type Refresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// Scheduler owns the cron runner and its refresh job.
type Scheduler struct {
	refresher Refresher
	logger    *slog.Logger
	spec      string
	location  *time.Location

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	lastRun Run
}

// Run describes the most recent refresh.
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Refreshed int
	Err       error
}

// New builds a scheduler that refreshes on spec (standard five-field cron) in
// loc. A nil location means UTC.
func New(refresher Refresher, spec string, loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if refresher == nil {
		return nil, errors.New("scheduler requires a refresher")
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		refresher: refresher,
		logger:    logging.NewComponentLogger(logger, "scheduler"),
		spec:      spec,
		location:  loc,
	}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cronLogger{s.logger}), cron.SkipIfStillRunning(cronLogger{s.logger})),
	)
	id, err := s.cron.AddFunc(spec, s.runScheduled)
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.entryID = id
	return s, nil
}

// FromConfig builds a scheduler from the [schedule] section.
func FromConfig(cfg *config.Config, refresher Refresher, logger *slog.Logger) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("schedule timezone: %w", err)
	}
	return New(refresher, cfg.Schedule.RefreshAppeal, loc, logger)
}

// Start begins running jobs. Jobs inherit ctx values and stop when ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.started = true
	s.logger.Info("scheduler started",
		logging.String("schedule", s.spec),
		logging.String("timezone", s.location.String()),
		logging.Time("next_run", s.next()),
	)
}

// Stop halts the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Next returns the next scheduled run, or zero when not started.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return time.Time{}
	}
	return s.next()
}

func (s *Scheduler) next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// LastRun reports the most recent refresh.
func (s *Scheduler) LastRun() Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

// RunNow performs a refresh immediately on the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context) Run {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, s.logger)

	started := time.Now()
	refreshed, err := s.refresher.RefreshAll(ctx)
	run := Run{
		ID:        runID,
		StartedAt: started,
		Duration:  time.Since(started),
		Refreshed: refreshed,
		Err:       err,
	}

	if err != nil {
		logging.ErrorWithContext(logger, "scheduled refresh failed", "appeal_refresh_failed",
			logging.Int("polls_refreshed", refreshed),
			logging.Duration("elapsed", run.Duration),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stored appeal snapshots may be stale"),
		)
	} else {
		logger.Info("scheduled refresh complete",
			logging.Int("polls_refreshed", refreshed),
			logging.Duration("elapsed", run.Duration),
		)
	}

	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()
	return run
}

func (s *Scheduler) runScheduled() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.RunNow(ctx)
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, logging.Error(err))...)
}
