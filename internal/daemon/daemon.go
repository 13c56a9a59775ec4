package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"moviepoll/internal/api"
	"moviepoll/internal/config"
	"moviepoll/internal/logging"
	"moviepoll/internal/poll"
	"moviepoll/internal/scheduler"
)

// Daemon runs the API server and background scheduler and enforces
// single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	service   *poll.Service
	server    *api.Server
	scheduler *scheduler.Scheduler
	logPath   string

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	StartedAt    time.Time
	APIAddress   string
	Database     string
	LockFilePath string
	NextRefresh  time.Time
	LastRefresh  scheduler.Run
}

// New constructs a daemon around an already configured service.
func New(cfg *config.Config, svc *poll.Service, logger *slog.Logger, version string) (*Daemon, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("daemon requires config and poll service")
	}
	server := api.New(svc, api.Options{
		Bind:        cfg.Paths.APIBind,
		DefaultPoll: cfg.Poll.DefaultPoll,
		Version:     version,
		Logger:      logger,
	})

	var sched *scheduler.Scheduler
	if cfg.Schedule.Enabled {
		var err error
		sched, err = scheduler.FromConfig(cfg, svc, logger)
		if err != nil {
			return nil, err
		}
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		service:   svc,
		server:    server,
		scheduler: sched,
		logPath:   filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the API server and scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another moviepoll server is already running for this data directory")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.server.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}
	if d.scheduler != nil {
		d.scheduler.Start(d.ctx)
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("moviepoll server started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.server.Addr()),
		logging.Bool("scheduler", d.scheduler != nil),
	)
	return nil
}

// Stop stops background work, shuts the API down, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.scheduler != nil {
		d.scheduler.Stop()
	}
	d.server.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("moviepoll server stopped")
}

// Close stops the daemon and closes the underlying store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.service.Store().Close()
}

// Wait blocks until ctx is done and then stops the daemon.
func (d *Daemon) Wait(ctx context.Context) {
	<-ctx.Done()
	d.Stop()
}

// LogPath returns the path to the server log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// APIAddress returns the bound API address while running.
func (d *Daemon) APIAddress() string {
	return d.server.Addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		LockFilePath: d.lockPath,
		Database:     "ok",
	}
	if status.Running {
		status.StartedAt = d.startedAt
		status.APIAddress = d.server.Addr()
	}
	if err := d.service.Store().Ping(ctx); err != nil {
		status.Database = err.Error()
	}
	if d.scheduler != nil {
		status.NextRefresh = d.scheduler.Next()
		status.LastRefresh = d.scheduler.LastRun()
	}
	return status
}
