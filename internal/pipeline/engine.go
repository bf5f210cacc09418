package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/retempo/internal/config"
	"github.com/backmassage/retempo/internal/term"
)

// Outcome is the disposition of one file.
type Outcome int

const (
	OutcomeDone      Outcome = iota // Transform succeeded (or would have, in a dry run).
	OutcomeFailed                   // Transform attempted and failed.
	OutcomeSkipped                  // Not selected for transformation.
	OutcomeCancelled                // Not attempted, or interrupted, due to cancellation.
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is what a FileFunc reports for one file.
type Result struct {
	Outcome     Outcome
	Err         error // Set with OutcomeFailed.
	InputBytes  int64 // Set with OutcomeDone when sizes are known.
	OutputBytes int64
}

// FileFunc handles one file. It is called concurrently from every worker.
type FileFunc func(ctx context.Context, path string) Result

// Tracker receives progress notifications from the engine. Implementations
// must be safe for concurrent use.
type Tracker interface {
	// Advance is called exactly once per file with that file's outcome.
	Advance(o Outcome)
	// Finish is called once, after every worker has returned.
	Finish()
}

// Engine distributes files over a fixed pool of workers.
type Engine struct {
	Workers int     // Pool size; <= 0 means one per CPU. Never more than the file count.
	Tracker Tracker // Optional.
}

// Run hands every file in files to exactly one worker, which calls fn, and
// returns the aggregated counters once all workers have joined. Every file
// is dequeued even after ctx is cancelled; fn decides what a cancelled
// file's outcome is. Processing order is not guaranteed.
func (e *Engine) Run(ctx context.Context, files []string, fn FileFunc) *RunStats {
	stats := &RunStats{}
	stats.Total.Store(int64(len(files)))

	tracker := e.Tracker
	if tracker == nil {
		tracker = NopTracker{}
	}
	defer tracker.Finish()

	if len(files) == 0 {
		return stats
	}

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(files))

	jobs := make(chan string)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for path := range jobs {
				res := fn(ctx, path)
				stats.record(res, path)
				tracker.Advance(res.Outcome)
			}
			return nil
		})
	}

	for _, path := range files {
		jobs <- path
	}
	close(jobs)
	_ = g.Wait() // workers never return an error
	return stats
}

// NopTracker discards progress notifications.
type NopTracker struct{}

func (NopTracker) Advance(Outcome) {}
func (NopTracker) Finish()        {}

// barTracker renders a progress bar: elapsed time, n/total and ETA.
type barTracker struct {
	bar       *progressbar.ProgressBar
	cancelled atomic.Int64
}

// NewBarTracker returns a Tracker drawing a progress bar for total files on
// w. When the bar fills it prints "Processing complete!", or an interrupted
// notice if any file was cancelled.
func NewBarTracker(w io.Writer, total int) Tracker {
	t := &barTracker{}
	t.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Retiming"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "#",
			SaucerHead:    ">",
			SaucerPadding: "-",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
			if n := t.cancelled.Load(); n > 0 {
				fmt.Fprintf(w, "Interrupted: %d of %d files not processed.\n", n, total)
				return
			}
			fmt.Fprintln(w, "Processing complete!")
		}),
	)
	return t
}

// Advance counts a cancellation before moving the bar, so the completion
// callback fired by the last Add sees every cancelled file.
func (t *barTracker) Advance(o Outcome) {
	if o == OutcomeCancelled {
		t.cancelled.Add(1)
	}
	_ = t.bar.Add(1)
}
func (t *barTracker) Finish() { _ = t.bar.Finish() }

// NewTracker picks the tracker for a run of total files: a progress bar on
// stderr when it is a terminal and progress is enabled, otherwise nothing.
func NewTracker(cfg *config.Config, total int) Tracker {
	if cfg.NoProgress || total == 0 || !term.IsTerminal(os.Stderr) {
		return NopTracker{}
	}
	return NewBarTracker(os.Stderr, total)
}
