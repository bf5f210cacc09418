package ffmpeg

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"time"
)

// cancelGrace is how long an interrupted transcoder gets to exit before it
// is killed.
const cancelGrace = 10 * time.Second

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	Stderr  string
	Err     error
	Started bool // False when the process could not be launched.
}

// Execute runs args (binary first) and captures stderr. Cancelling ctx sends
// the process an interrupt so it can finish writing, then kills it after
// cancelGrace.
func Execute(ctx context.Context, args []string) ExecResult {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = cancelGrace

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Start(); err != nil {
		return ExecResult{Err: err}
	}
	err := cmd.Wait()
	return ExecResult{
		Stderr:  stderrBuf.String(),
		Err:     err,
		Started: true,
	}
}
