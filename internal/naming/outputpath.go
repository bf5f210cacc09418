package naming

import "path/filepath"

// TempPath returns the temp artifact path for path: the same directory, with
// marker prepended to the base name. The extension is kept so the
// transcoder can pick the output muxer from it.
//
//	TempPath("/music/a/song.mp3", "temp_1a2b3c4d_") == "/music/a/temp_1a2b3c4d_song.mp3"
func TempPath(path, marker string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, marker+base)
}
