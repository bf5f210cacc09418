package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/backmassage/retempo/internal/config"
	"github.com/backmassage/retempo/internal/display"
	"github.com/backmassage/retempo/internal/ffmpeg"
	"github.com/backmassage/retempo/internal/logging"
	"github.com/backmassage/retempo/internal/planner"
)

// Transformer retimes one file in place.
type Transformer interface {
	Apply(ctx context.Context, path string, speed float64) error
}

// Runner wires discovery, planning, and the transformer into one batch run.
type Runner struct {
	Cfg       *config.Config
	Log       *logging.Logger
	Transform Transformer
	// NewTracker builds the progress tracker once the file count is known.
	// Defaults to the package-level NewTracker.
	NewTracker func(cfg *config.Config, total int) Tracker
}

// Run is the top-level batch entry point. It retimes the files under
// cfg.InputDir with the ffmpeg invoker and returns aggregate stats. The
// error is non-nil only when the input folder cannot be read.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger) (*RunStats, error) {
	r := &Runner{
		Cfg: cfg,
		Log: log,
		Transform: &ffmpeg.Invoker{
			Bin:    cfg.FFmpegPath,
			Marker: cfg.TempMarker(),
			Log:    log,
		},
	}
	return r.Run(ctx)
}

// Run discovers files, processes them on the worker pool, logs the
// summary, and returns the stats.
func (r *Runner) Run(ctx context.Context) (*RunStats, error) {
	cfg, log := r.Cfg, r.Log
	start := time.Now()

	files, err := Discover(cfg.InputDir, func(path string, err error) {
		log.Debug("Skipping unreadable entry %s: %v", path, err)
	})
	if err != nil {
		return nil, err
	}

	logBatchHeader(cfg, log, len(files))

	newTracker := r.NewTracker
	if newTracker == nil {
		newTracker = NewTracker
	}
	engine := &Engine{
		Workers: cfg.EffectiveWorkers(),
		Tracker: newTracker(cfg, len(files)),
	}
	stats := engine.Run(ctx, files, r.processFile)

	logSummary(cfg, log, stats, time.Since(start))
	return stats, nil
}

// processFile handles one file: plan, then transform.
func (r *Runner) processFile(ctx context.Context, path string) Result {
	cfg := r.Cfg
	flog := r.Log.With("file", r.displayName(path))

	plan := planner.BuildPlan(cfg, path)
	if plan.Action == planner.ActionSkip {
		flog.Debug("Skip: %s", plan.SkipReason)
		return Result{Outcome: OutcomeSkipped}
	}

	if ctx.Err() != nil {
		return Result{Outcome: OutcomeCancelled}
	}

	if cfg.DryRun {
		flog.Info("[DRY] Would retime %s at %s", plan.Format, display.FormatSpeed(plan.Speed))
		return Result{Outcome: OutcomeDone}
	}

	var inSize int64
	if fi, err := os.Stat(path); err == nil {
		inSize = fi.Size()
	}

	start := time.Now()
	if err := r.Transform.Apply(ctx, path, plan.Speed); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			flog.Debug("Interrupted")
			return Result{Outcome: OutcomeCancelled}
		}
		flog.Error("%v", err)
		return Result{Outcome: OutcomeFailed, Err: err}
	}

	var outSize int64
	if fi, err := os.Stat(path); err == nil {
		outSize = fi.Size()
	}
	flog.Debug("Retimed %s in %s (%s -> %s)", plan.Format,
		display.FormatElapsed(time.Since(start)),
		display.FormatBytes(inSize), display.FormatBytes(outSize))
	return Result{Outcome: OutcomeDone, InputBytes: inSize, OutputBytes: outSize}
}

// displayName returns path relative to the input folder for log output.
func (r *Runner) displayName(path string) string {
	if rel, err := filepath.Rel(r.Cfg.InputDir, path); err == nil {
		return rel
	}
	return path
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, total int) {
	log.Info("Found %d files in %s", total, cfg.InputDir)
	log.Info("Speed: %s, formats: %s, workers: %d",
		display.FormatSpeed(cfg.Speed), cfg.Formats, min(cfg.EffectiveWorkers(), max(total, 1)))
	if cfg.DryRun {
		log.Warn("DRY RUN: no files will be modified")
	}
}

func logSummary(cfg *config.Config, log *logging.Logger, stats *RunStats, elapsed time.Duration) {
	c := stats.Snapshot()
	log.Info("==============================")
	log.Info("Done: %d processed, %d skipped, %d failed, %d cancelled (of %d) in %s",
		c.Processed, c.Skipped, c.Failed, c.Cancelled, c.Total, display.FormatElapsed(elapsed))

	if c.Cancelled > 0 {
		log.Warn("Interrupted: %d files were not retimed.", c.Cancelled)
	}
	if c.Failed > 0 {
		log.Warn("Finished with %d errors.", c.Failed)
	}
	if c.Skipped > 0 {
		log.Info("Skipped %d files.", c.Skipped)
	}

	if cfg.DryRun || stats.InputBytes.Load() == 0 {
		return
	}
	delta := stats.SizeDelta()
	if delta >= 0 {
		log.Success("  Size: %s -> %s (%s smaller)",
			display.FormatBytes(stats.InputBytes.Load()),
			display.FormatBytes(stats.OutputBytes.Load()),
			display.FormatBytes(delta))
	} else {
		log.Info("  Size: %s -> %s (%s larger)",
			display.FormatBytes(stats.InputBytes.Load()),
			display.FormatBytes(stats.OutputBytes.Load()),
			display.FormatBytes(-delta))
	}
}
