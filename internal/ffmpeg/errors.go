package ffmpeg

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Sentinel errors.
var (
	// ErrLaunch means the transcoder could not be started at all.
	ErrLaunch = errors.New("could not launch ffmpeg")
	// ErrTempExists means the temp artifact path is already taken; the file
	// there is left alone and the transcoder is not run.
	ErrTempExists = errors.New("temp file already exists")
)

// ExitError reports a transcoder run that ended with a non-zero status.
// The original file is untouched.
type ExitError struct {
	Path   string
	Code   int    // -1 when the process was killed by a signal.
	Stderr string // Last few lines of stderr.
	Hint   string // Short classification of Stderr; may be empty.
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("ffmpeg exited with status %d for %s", e.Code, e.Path)
	switch {
	case e.Hint != "":
		return msg + ": " + e.Hint
	case e.Stderr != "":
		return msg + ": " + lastLine(e.Stderr)
	}
	return msg
}

// CommitError reports a successful transcode whose temp artifact could not
// be renamed over the original. The temp artifact may remain on disk.
type CommitError struct {
	Temp string
	Path string
	Err  error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("replace %s with %s: %v", e.Path, e.Temp, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// Pre-compiled regexes for classifying ffmpeg stderr. Checked in order; the
// first match wins.
var stderrHints = []struct {
	re   *regexp.Regexp
	hint string
}{
	{regexp.MustCompile(`(?i)atempo.*(out of range|not within|invalid)|Value [0-9.e+-]+ for parameter 'tempo' out of range`),
		"speed is outside the range the atempo filter accepts"},
	{regexp.MustCompile(`(?i)Invalid data found when processing input|could not find codec parameters|moov atom not found`),
		"input is not a readable audio file"},
	{regexp.MustCompile(`(?i)Unknown encoder|Encoder not found|Automatic encoder selection failed|Requested output format .* is not a suitable output format`),
		"ffmpeg build lacks an encoder for this format"},
	{regexp.MustCompile(`(?i)Permission denied|Read-only file system`),
		"permission denied"},
	{regexp.MustCompile(`(?i)No space left on device|Disk quota exceeded`),
		"disk full"},
}

// Classify returns a short hint for a failed run's stderr, or "" when no
// known pattern matches.
func Classify(stderr string) string {
	for _, h := range stderrHints {
		if h.re.MatchString(stderr) {
			return h.hint
		}
	}
	return ""
}

// maxTailLines bounds the stderr kept on an ExitError.
const maxTailLines = 8

// tail returns the last maxTailLines lines of s.
func tail(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > maxTailLines {
		lines = lines[len(lines)-maxTailLines:]
	}
	return strings.Join(lines, "\n")
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
