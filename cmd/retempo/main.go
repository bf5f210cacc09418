// Command retempo is the entrypoint for the retempo batch audio speed changer.
// It parses flags, validates config and paths, and either runs the system
// check (--check), the analysis table (--analyze), or the retiming pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/backmassage/retempo/internal/check"
	"github.com/backmassage/retempo/internal/config"
	"github.com/backmassage/retempo/internal/display"
	"github.com/backmassage/retempo/internal/logging"
	"github.com/backmassage/retempo/internal/pipeline"
)

// version is set at build time via -ldflags.
var version = "1.0.0-dev"

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// 1. Load config from defaults, config file and CLI flags; exit on parse or validation error.
	cfg := config.DefaultConfig()
	if err := config.ParseFlags(&cfg, args, version); err != nil {
		fmt.Fprintf(os.Stderr, "retempo: %v\n", err)
		if errors.Is(err, config.ErrNoInput) {
			fmt.Fprintln(os.Stderr, "usage: retempo [OPTIONS] <folder>  (see --help)")
		}
		return exitFailure
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "retempo: %v\n", err)
		return exitFailure
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "retempo: %v\n", err)
		return exitFailure
	}
	defer log.Close()

	display.PrintBanner(os.Stderr)

	// 2. If the user asked for a system check, run it and exit.
	if cfg.CheckOnly {
		if problems := check.RunCheck(&cfg, log); problems > 0 {
			log.Warn("%d problem(s) found", problems)
		}
		return exitOK
	}

	// 3. The input must be an existing folder.
	if err := config.ValidateInput(cfg.InputDir); err != nil {
		log.Error("%v", err)
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Analysis mode only reads.
	if cfg.AnalyzeOnly {
		if err := pipeline.Analyze(ctx, &cfg, log, os.Stdout); err != nil {
			if ctx.Err() != nil {
				return exitInterrupted
			}
			log.Error("Analysis failed: %v", err)
			return exitFailure
		}
		return exitOK
	}

	log.Info("=== retempo v%s ===", version)
	log.Info("In:    %s", cfg.InputDir)
	log.Info("Speed: %s", display.FormatSpeed(cfg.Speed))
	if cfg.ConfigFile != "" {
		log.Debug("Config file: %s", cfg.ConfigFile)
	}

	// 5. Ensure ffmpeg and its atempo filter are available; fail fast otherwise.
	if !cfg.DryRun {
		if err := check.CheckDeps(&cfg); err != nil {
			log.Error("%v", err)
			return exitFailure
		}
	}

	// 6. Run the pipeline.
	started := time.Now()
	stats, err := pipeline.Run(ctx, &cfg, log)
	if err != nil {
		log.Error("File discovery failed: %v", err)
		return exitFailure
	}

	if cfg.ReportFile != "" {
		report := pipeline.NewReport(&cfg, stats, started, time.Now())
		if err := pipeline.WriteReport(cfg.ReportFile, report); err != nil {
			log.Error("Cannot write report: %v", err)
		} else {
			log.Info("Report written to %s", cfg.ReportFile)
		}
	}

	switch {
	case ctx.Err() != nil:
		return exitInterrupted
	case stats.Failed.Load() > 0:
		return exitFailure
	default:
		return exitOK
	}
}
