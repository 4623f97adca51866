package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"demusic/internal/config"
	"demusic/internal/jobs"
	"demusic/internal/logging"
	"demusic/internal/media"
	"demusic/internal/outputs"
	"demusic/internal/services"
	"demusic/internal/workspace"
)

// Progress markers per stage. Terminal states always report 100.
const (
	progressSplit   = 25
	progressIsolate = 50
	progressMerge   = 75
)

// vocalsStem is the target stem requested from isolation providers.
const vocalsStem = "vocals"

// MediaTool is the synchronous stream-surgery capability the runner drives.
type MediaTool interface {
	SplitStreams(ctx context.Context, videoPath, workDir string) (audioPath, videoOnlyPath string, err error)
	Mux(ctx context.Context, videoOnlyPath, audioPath, outputPath string) error
}

// prober is optionally implemented by media tools that can inspect
// containers; the runner uses it for duration diagnostics only.
type prober interface {
	Probe(ctx context.Context, path string) (media.ProbeResult, error)
}

// Isolator is the vocal isolation capability, remote or local.
type Isolator interface {
	Name() string
	Isolate(ctx context.Context, audioPath, stem string) (resultPath string, err error)
}

// Runner drives one job at a time from pending to a terminal state. Exactly
// one runner executes per job; the store's single-writer discipline relies on
// that.
type Runner struct {
	cfg      *config.Config
	store    jobs.Store
	tool     MediaTool
	isolator Isolator
	spaces   *workspace.Manager
	outStore *outputs.Store
	logger   *slog.Logger
}

// NewRunner constructs a pipeline runner.
func NewRunner(cfg *config.Config, store jobs.Store, tool MediaTool, isolator Isolator, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    store,
		tool:     tool,
		isolator: isolator,
		spaces:   workspace.NewManager(cfg.Paths.WorkingDir, logger),
		outStore: outputs.NewStore(cfg.Paths.OutputDir),
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run executes the full stage sequence for the job and always leaves it in a
// terminal state. Errors never escape: every failure, including a panic in a
// stage, is converted into the job's error message and logged.
func (r *Runner) Run(ctx context.Context, jobID string) {
	ctx = logging.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, r.logger)

	job, err := r.store.GetByID(ctx, jobID)
	if err != nil {
		logger.Error("job vanished before processing", logging.Error(err))
		return
	}

	// Declared ahead of the recover handler so a stage panic still releases
	// the scratch directory once it has been acquired.
	var ws *workspace.Handle
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(ctx, logger, job, ws, fmt.Errorf("stage panic: %v", rec))
		}
	}()

	started := time.Now()
	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("source_file", job.SourcePath),
		logging.String("provider", r.providerName()),
		logging.Bool("dry_run", r.cfg.Isolation.DryRun),
	)

	job.SetProcessing(progressSplit)
	if err := r.store.Update(ctx, job); err != nil {
		logger.Error("failed to mark job processing", logging.Error(err))
		return
	}

	ws, err = r.spaces.Acquire(job.ID)
	if err != nil {
		r.fail(ctx, logger, job, ws, err)
		return
	}

	outputName, err := r.execute(ctx, logger, job, ws)
	if err != nil {
		r.fail(ctx, logger, job, ws, err)
		return
	}

	job.SetComplete(outputName)
	if err := r.store.Update(ctx, job); err != nil {
		logger.Error("failed to persist completion", logging.Error(err))
	}
	r.releaseWorkspace(ws)
	r.cleanupSource(logger, job, true)

	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.String("output_file", outputName),
		logging.Duration("elapsed", time.Since(started)),
	)
}

// execute runs split, isolate, and merge, returning the final artifact name.
func (r *Runner) execute(ctx context.Context, logger *slog.Logger, job *jobs.Job, ws *workspace.Handle) (string, error) {
	splitCtx := logging.WithStage(ctx, "split")
	logging.WithContext(splitCtx, logger).Info("splitting streams")
	audioPath, videoOnlyPath, err := r.tool.SplitStreams(splitCtx, job.SourcePath, ws.Path())
	if err != nil {
		return "", err
	}

	vocalsPath := audioPath
	if r.cfg.Isolation.DryRun {
		logger.Info("skipping vocal isolation (dry run)")
	} else {
		job.SetProcessing(progressIsolate)
		if err := r.store.Update(ctx, job); err != nil {
			return "", fmt.Errorf("persist isolate progress: %w", err)
		}

		isolateCtx := logging.WithStage(ctx, "isolate")
		isolateLogger := logging.WithContext(isolateCtx, logger)
		isolateLogger.Info("isolating vocals", logging.String("provider", r.providerName()))
		isolateStart := time.Now()
		vocalsPath, err = r.isolator.Isolate(isolateCtx, audioPath, vocalsStem)
		if err != nil {
			return "", err
		}
		isolateLogger.Info("vocals isolated", logging.Duration("elapsed", time.Since(isolateStart)))
	}

	job.SetProcessing(progressMerge)
	if err := r.store.Update(ctx, job); err != nil {
		return "", fmt.Errorf("persist merge progress: %w", err)
	}

	mergeCtx := logging.WithStage(ctx, "merge")
	mergeLogger := logging.WithContext(mergeCtx, logger)
	r.logExpectedDuration(mergeCtx, mergeLogger, videoOnlyPath, vocalsPath)

	outputName := outputs.OutputName(job.OriginalFilename)
	stagedPath := filepath.Join(r.outStore.Root(), job.ID+"_"+outputName)
	if err := r.tool.Mux(mergeCtx, videoOnlyPath, vocalsPath, stagedPath); err != nil {
		_ = os.Remove(stagedPath)
		return "", err
	}

	finalPath := filepath.Join(r.outStore.Root(), outputName)
	if err := os.Rename(stagedPath, finalPath); err != nil {
		_ = os.Remove(stagedPath)
		return "", fmt.Errorf("finalize output: %w", err)
	}
	r.outStore.RemovePlaceholder(job.ID)

	return outputName, nil
}

// fail records the terminal error state. The workspace is released
// best-effort and the uploaded source is kept for diagnosis unless configured
// otherwise.
func (r *Runner) fail(ctx context.Context, logger *slog.Logger, job *jobs.Job, ws *workspace.Handle, cause error) {
	message := services.Message(cause)
	if errors.Is(cause, context.Canceled) {
		message = "daemon stopped before the job finished"
	}
	if message == "" {
		message = "processing failed"
	}

	job.SetFailed(message)
	// Persist with a background context; the stage context may already be
	// canceled and the terminal state must still land in the store.
	if err := r.store.Update(context.WithoutCancel(ctx), job); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	r.releaseWorkspace(ws)
	r.cleanupSource(logger, job, false)

	logger.Error("pipeline failed",
		logging.String(logging.FieldEventType, "pipeline_failure"),
		logging.String("error_message", message),
		logging.Error(cause),
	)
}

func (r *Runner) releaseWorkspace(ws *workspace.Handle) {
	if ws == nil {
		return
	}
	if r.cfg.Cleanup.KeepWorkspace {
		r.logger.Debug("keeping workspace for inspection", logging.String("path", ws.Path()))
		return
	}
	ws.Release()
}

func (r *Runner) cleanupSource(logger *slog.Logger, job *jobs.Job, succeeded bool) {
	if job.SourcePath == "" {
		return
	}
	remove := false
	if succeeded {
		remove = r.cfg.Cleanup.RemoveSourceOnSuccess
	} else {
		remove = !r.cfg.Cleanup.KeepSourceOnError
	}
	if !remove {
		return
	}
	if err := os.Remove(job.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("source cleanup failed", logging.String("path", job.SourcePath), logging.Error(err))
	}
}

// logExpectedDuration probes both inputs before the merge so operators can
// compare the muxed result against min(video, audio).
func (r *Runner) logExpectedDuration(ctx context.Context, logger *slog.Logger, videoOnlyPath, audioPath string) {
	p, ok := r.tool.(prober)
	if !ok {
		return
	}
	videoProbe, err := p.Probe(ctx, videoOnlyPath)
	if err != nil {
		logger.Debug("video probe failed", logging.Error(err))
		return
	}
	audioProbe, err := p.Probe(ctx, audioPath)
	if err != nil {
		logger.Debug("audio probe failed", logging.Error(err))
		return
	}
	videoSeconds := videoProbe.DurationSeconds()
	audioSeconds := audioProbe.DurationSeconds()
	expected := videoSeconds
	if audioSeconds < expected {
		expected = audioSeconds
	}
	logger.Debug("merging streams",
		logging.Float64("video_seconds", videoSeconds),
		logging.Float64("audio_seconds", audioSeconds),
		logging.Float64("expected_output_seconds", expected),
	)
}

func (r *Runner) providerName() string {
	if r.cfg.Isolation.DryRun {
		return "none"
	}
	if r.isolator == nil {
		return "none"
	}
	return r.isolator.Name()
}
