// Package ffmpeg runs the external transcoder that retimes one file.
//
// Build assembles the argument vector, Execute runs it and captures stderr,
// and Invoker.Apply wraps both in the temp-artifact protocol: write a
// sibling temp file, then rename it over the original on success or remove
// it on failure. Failures are typed (ErrLaunch, ErrTempExists, *ExitError,
// *CommitError) so callers can tell them apart with errors.Is/As.
package ffmpeg
