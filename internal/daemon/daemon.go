package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"demusic/internal/config"
	"demusic/internal/deps"
	"demusic/internal/jobs"
	"demusic/internal/logging"
	"demusic/internal/pipeline"
	"demusic/internal/server"
)

// Daemon owns the HTTP server and pipeline dispatcher lifecycles and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      jobs.Store
	dispatcher *pipeline.Dispatcher
	api        *server.Server

	lockPath  string
	lock      *flock.Flock
	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store jobs.Store, dispatcher *pipeline.Dispatcher, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || dispatcher == nil {
		return nil, errors.New("daemon requires config, store, and dispatcher")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "demusicd.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		dispatcher: dispatcher,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.api = server.New(cfg, dispatcher, store, d, logger)
	return d, nil
}

// Start acquires the daemon lock and begins serving.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	// Missing tools are reported up front but do not block startup; jobs
	// that need them fail individually with a configuration error.
	for _, status := range deps.MissingRequired(deps.CheckBinaries(deps.Requirements(d.cfg))) {
		d.logger.Warn("external binary unavailable",
			logging.String("name", status.Name),
			logging.String("detail", status.Detail),
		)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another demusicd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.dispatcher.Start(runCtx)
	if err := d.api.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("bind", d.api.Addr()),
		logging.String("store_backend", d.storeBackend()),
		logging.String("lock_file", d.lockPath),
	)
	return nil
}

// Stop shuts down the HTTP server, cancels in-flight pipeline runs, and
// waits for their terminal states to land in the store.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.api.Stop()
	if d.cancel != nil {
		d.cancel()
	}
	d.dispatcher.Wait()
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases the daemon lock and the job store.
func (d *Daemon) Close() {
	d.Stop()
	if d.lock != nil {
		_ = d.lock.Unlock()
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("close job store", logging.Error(err))
	}
}

// Addr returns the HTTP listener address once started.
func (d *Daemon) Addr() string {
	return d.api.Addr()
}

// Status reports daemon health for the status endpoint.
func (d *Daemon) Status(ctx context.Context) server.Status {
	summary, err := d.store.HealthSummary(ctx)
	if err != nil {
		d.logger.Warn("job summary failed", logging.Error(err))
	}
	status := server.Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StoreBackend: d.storeBackend(),
		Jobs:         summary,
	}
	if d.running.Load() {
		status.UptimeSecs = int64(time.Since(d.startedAt).Seconds())
	}
	return status
}

func (d *Daemon) storeBackend() string {
	if d.cfg.Store.Backend == "" {
		return "memory"
	}
	return d.cfg.Store.Backend
}
