package ffmpeg

import "strconv"

// Build constructs the complete argument slice, binary first, that retimes
// in by speed and writes the result to out. Video streams (cover art) are
// dropped; the output container follows the extension of out.
func Build(bin, in, out string, speed float64) []string {
	return []string{
		bin,
		"-hide_banner", "-nostdin", "-y",
		"-loglevel", "error",
		"-i", in,
		"-filter:a", "atempo=" + FormatSpeed(speed),
		"-vn",
		out,
	}
}

// FormatSpeed renders speed in its shortest decimal form ("1.5", "2").
func FormatSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'f', -1, 64)
}
