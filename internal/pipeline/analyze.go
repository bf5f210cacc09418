package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/retempo/internal/audio"
	"github.com/backmassage/retempo/internal/config"
	"github.com/backmassage/retempo/internal/display"
	"github.com/backmassage/retempo/internal/logging"
	"github.com/backmassage/retempo/internal/planner"
	"github.com/backmassage/retempo/internal/probe"
	"github.com/backmassage/retempo/internal/term"
)

// fileRow holds the per-file data for the analysis table.
type fileRow struct {
	Name     string
	Format   audio.Format
	Detected bool
	Ext      string
	Action   planner.Action
	Title    string // "Artist – Title"
	Size     int64
}

// formatTotal aggregates rows of one detected format.
type formatTotal struct {
	Files int
	Bytes int64
}

// Analyze discovers files under cfg.InputDir, classifies each one and reads
// its tags, and prints a table of what a real run would do to w. Nothing is
// written to disk.
func Analyze(ctx context.Context, cfg *config.Config, log *logging.Logger, w io.Writer) error {
	files, err := Discover(cfg.InputDir, func(path string, err error) {
		log.Debug("Skipping unreadable entry %s: %v", path, err)
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Warn("No files found in %s", cfg.InputDir)
		return nil
	}

	total := len(files)
	log.Info("Analyzing %d files in %s …", total, cfg.InputDir)

	isTTY := term.IsTerminalWriter(w)
	rows := make([]fileRow, 0, total)

	for i, path := range files {
		if ctx.Err() != nil {
			if isTTY {
				clearProgress(w)
			}
			log.Warn("Interrupted")
			return ctx.Err()
		}

		name := path
		if rel, err := filepath.Rel(cfg.InputDir, path); err == nil {
			name = rel
		}
		printProgress(w, isTTY, i+1, total, filepath.Base(path))

		f, ok := probe.Detect(path)
		plan := planner.Decide(cfg, path, f, ok)
		row := fileRow{
			Name:     name,
			Format:   plan.Format,
			Detected: plan.Detected,
			Ext:      strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")),
			Action:   plan.Action,
		}
		if fi, err := os.Stat(path); err == nil {
			row.Size = fi.Size()
		}
		if ok {
			tags, err := probe.ReadTags(path)
			if err != nil {
				log.Debug("No embedded tags in %s: %v", name, err)
			}
			row.Title = tags.DisplayName()
		}
		rows = append(rows, row)
	}

	if isTTY {
		clearProgress(w)
	}

	printAnalysisTable(w, rows)
	printAnalysisSummary(log, cfg, rows)
	return nil
}

func printAnalysisTable(w io.Writer, rows []fileRow) {
	nameW := len("File")
	fmtW := len("Format")
	extW := len("Ext")
	actW := len("Action")

	for _, r := range rows {
		nameW = max(nameW, display.Width(r.Name))
		extW = max(extW, display.Width(r.Ext))
	}
	nameW = min(nameW, 50)

	header := fmt.Sprintf("  %-*s  %-*s  %-*s  %-*s  %s",
		nameW, "File",
		fmtW, "Format",
		extW, "Ext",
		actW, "Action",
		"Artist – Title",
	)
	separator := "  " + strings.Repeat("─", display.Width(header)-2)

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, separator)

	for _, r := range rows {
		detected := "?"
		if r.Detected {
			detected = r.Format.String()
		}

		// Pad the plain text first, then wrap in ANSI color, so escape
		// bytes are not counted as visible width. Names are padded by rune
		// count so non-ASCII rows stay aligned.
		actCell := colorPad(r.Action.String(), actW, r.Action)

		fmt.Fprintf(w, "  %s  %-*s  %s  %s  %s\n",
			display.PadRight(display.Truncate(r.Name, nameW), nameW),
			fmtW, detected,
			display.PadRight(r.Ext, extW),
			actCell,
			r.Title,
		)
	}
	fmt.Fprintln(w)
}

func printAnalysisSummary(log *logging.Logger, cfg *config.Config, rows []fileRow) {
	totals := make(map[audio.Format]*formatTotal)
	var retime, unknown int
	var retimeBytes int64
	for _, r := range rows {
		if r.Action == planner.ActionRetime {
			retime++
			retimeBytes += r.Size
		}
		if !r.Detected {
			unknown++
			continue
		}
		t := totals[r.Format]
		if t == nil {
			t = &formatTotal{}
			totals[r.Format] = t
		}
		t.Files++
		t.Bytes += r.Size
	}

	log.Info("Analyzed %d files (selection: %s)", len(rows), cfg.Formats)
	for _, f := range audio.All.Formats() {
		if t := totals[f]; t != nil {
			log.Info("  %-5s %4d files  %s", f, t.Files, display.FormatBytes(t.Bytes))
		}
	}
	if unknown > 0 {
		log.Info("  %-5s %4d files", "?", unknown)
	}
	if retime > 0 {
		log.Success("  %d files (%s) would be retimed", retime, display.FormatBytes(retimeBytes))
	} else {
		log.Warn("  No files match the selection")
	}
}

// colorPad pads a plain string to width, then wraps it in ANSI color.
func colorPad(s string, width int, a planner.Action) string {
	padded := fmt.Sprintf("%-*s", width, s)
	if a == planner.ActionRetime {
		return term.Green + padded + term.NC
	}
	return term.Dim + padded + term.NC
}

// printProgress shows a live counter. On a TTY it writes an inline
// \r-overwritten line; otherwise it is a no-op.
func printProgress(w io.Writer, isTTY bool, current, total int, name string) {
	if !isTTY {
		return
	}
	pct := current * 100 / total
	status := fmt.Sprintf("  Reading [%d/%d] %d%% %s", current, total, pct, display.Truncate(name, 40))

	// Pad to 80 chars to overwrite previous longer lines, then \r.
	status = display.PadRight(status, 80)
	fmt.Fprintf(w, "\r%s", status)
}

// clearProgress erases the inline progress line on a TTY.
func clearProgress(w io.Writer) {
	fmt.Fprintf(w, "\r%s\r", strings.Repeat(" ", 80))
}
