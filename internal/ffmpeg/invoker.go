package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/backmassage/retempo/internal/logging"
	"github.com/backmassage/retempo/internal/naming"
)

// Invoker retimes single files in place through the transcoder. It holds no
// per-file state and is safe for concurrent use.
type Invoker struct {
	Bin    string          // Transcoder binary, resolved through PATH.
	Marker string          // Temp artifact prefix, e.g. "temp_1a2b3c4d_".
	Log    *logging.Logger // Receives cleanup warnings and, at debug level, transcoder stderr.
}

// Apply retimes path by speed. The transcoder writes a temp artifact next to
// path, which replaces path only after a clean exit. On any failure before
// that point the original is left byte-identical and the temp artifact is
// removed. speed is passed through unchecked.
//
// When ctx is cancelled mid-run the transcoder is interrupted and Apply
// returns an error wrapping ctx.Err().
func (inv *Invoker) Apply(ctx context.Context, path string, speed float64) error {
	temp := naming.TempPath(path, inv.Marker)
	if _, err := os.Lstat(temp); err == nil {
		return fmt.Errorf("%w: %s", ErrTempExists, temp)
	}

	args := Build(inv.Bin, path, temp, speed)
	inv.log().Debug("exec: %s", strings.Join(args, " "))

	res := Execute(ctx, args)
	if res.Stderr != "" && inv.log().DebugEnabled() {
		for _, line := range strings.Split(strings.TrimSpace(res.Stderr), "\n") {
			inv.log().Debug("ffmpeg: %s", line)
		}
	}

	if res.Err != nil {
		inv.discard(temp)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", path, ctxErr)
		}
		if !res.Started {
			return fmt.Errorf("%w %q: %w", ErrLaunch, inv.Bin, res.Err)
		}
		var exitErr *exec.ExitError
		if errors.As(res.Err, &exitErr) {
			return &ExitError{
				Path:   path,
				Code:   exitErr.ExitCode(),
				Stderr: tail(res.Stderr),
				Hint:   Classify(res.Stderr),
			}
		}
		// Wait failed for another reason (e.g. stderr copy).
		return fmt.Errorf("ffmpeg for %s: %w", path, res.Err)
	}

	if err := os.Rename(temp, path); err != nil {
		return &CommitError{Temp: temp, Path: path, Err: err}
	}
	return nil
}

// discard removes a temp artifact; failure to do so is only logged.
func (inv *Invoker) discard(temp string) {
	err := os.Remove(temp)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return
	}
	inv.log().Warn("could not remove temp file %s: %v", temp, err)
}

func (inv *Invoker) log() *logging.Logger {
	if inv.Log == nil {
		return logging.Nop()
	}
	return inv.Log
}
