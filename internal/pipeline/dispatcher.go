package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"demusic/internal/config"
	"demusic/internal/jobs"
	"demusic/internal/logging"
	"demusic/internal/media"
	"demusic/internal/outputs"
	"demusic/internal/services"
)

// Dispatcher accepts uploads, registers jobs, and schedules a runner per job
// without blocking the submitting caller.
type Dispatcher struct {
	cfg      *config.Config
	store    jobs.Store
	runner   *Runner
	outStore *outputs.Store
	logger   *slog.Logger

	mu      sync.Mutex
	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewDispatcher constructs a dispatcher that schedules runs on background
// goroutines tied to the context passed to Start.
func NewDispatcher(cfg *config.Config, store jobs.Store, runner *Runner, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		store:    store,
		runner:   runner,
		outStore: outputs.NewStore(cfg.Paths.OutputDir),
		logger:   logging.NewComponentLogger(logger, "dispatcher"),
		baseCtx:  context.Background(),
	}
}

// Start binds scheduled runs to ctx so daemon shutdown reaches in-flight
// pipelines.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	d.baseCtx = ctx
	d.mu.Unlock()
}

// Wait blocks until every scheduled run has reached a terminal state.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Submit validates and persists an upload, creates the pending job, and
// schedules its pipeline run. It returns as soon as the job is registered;
// completion is only ever observable through the job store.
func (d *Dispatcher) Submit(ctx context.Context, filename string, content io.Reader) (*jobs.Job, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, services.Wrap(services.ErrValidation, "submit", "validate", "no file provided", nil)
	}
	if !media.AllowedExtension(name) {
		detail := fmt.Sprintf("file type %q is not supported (allowed: %s)",
			filepath.Ext(name), strings.Join(media.AllowedExtensions(), ", "))
		return nil, services.Wrap(services.ErrValidation, "submit", "validate", detail, nil)
	}

	if err := os.MkdirAll(d.cfg.Paths.InputDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure input directory: %w", err)
	}

	job, err := d.store.NewJob(ctx, "", name)
	if err != nil {
		return nil, fmt.Errorf("register job: %w", err)
	}
	logger := d.logger.With(logging.String(logging.FieldJobID, job.ID))

	sourcePath := filepath.Join(d.cfg.Paths.InputDir, job.ID+"_"+outputs.SanitizeFilename(name))
	size, err := writeUpload(sourcePath, content)
	if err != nil {
		job.SetFailed(fmt.Sprintf("store upload: %v", err))
		if updateErr := d.store.Update(ctx, job); updateErr != nil {
			logger.Error("failed to record upload failure", logging.Error(updateErr))
		}
		return nil, fmt.Errorf("store upload: %w", err)
	}

	job.SourcePath = sourcePath
	if err := d.store.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("record upload path: %w", err)
	}

	if err := d.outStore.WritePlaceholder(job); err != nil {
		logger.Warn("placeholder write failed", logging.Error(err))
	}

	logger.Info("upload accepted",
		logging.String(logging.FieldEventType, "job_created"),
		logging.String("original_filename", name),
		logging.Int64("size_bytes", size),
	)

	d.schedule(job.ID)
	return job, nil
}

// schedule launches the pipeline run on its own goroutine. Each upload gets a
// dedicated long-lived worker; there is no global queue or concurrency cap.
func (d *Dispatcher) schedule(jobID string) {
	d.mu.Lock()
	ctx := d.baseCtx
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runner.Run(ctx, jobID)
	}()
}

func writeUpload(dest string, content io.Reader) (int64, error) {
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	size, err := io.Copy(file, content)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(dest)
		return 0, err
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(dest)
		return 0, err
	}
	return size, nil
}
