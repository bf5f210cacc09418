package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/renameio/v2"

	"github.com/backmassage/retempo/internal/config"
)

// Report is the JSON document written by --report.
type Report struct {
	RunID    string    `json:"run_id"`
	Root     string    `json:"root"`
	Speed    float64   `json:"speed"`
	Formats  string    `json:"formats"`
	DryRun   bool      `json:"dry_run"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Counts
	Failures []Failure `json:"failures"`
}

// NewReport captures a finished run.
func NewReport(cfg *config.Config, stats *RunStats, started, finished time.Time) *Report {
	return &Report{
		RunID:    cfg.RunID,
		Root:     cfg.InputDir,
		Speed:    cfg.Speed,
		Formats:  cfg.Formats.String(),
		DryRun:   cfg.DryRun,
		Started:  started.UTC(),
		Finished: finished.UTC(),
		Counts:   stats.Snapshot(),
		Failures: stats.Failures(),
	}
}

// WriteReport writes r to path atomically: readers see either the previous
// file or the complete new one.
func WriteReport(path string, r *Report) error {
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	enc := json.NewEncoder(pendingFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("commit report %s: %w", path, err)
	}
	return nil
}
