package probe

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/backmassage/retempo/internal/audio"
)

// headerLen is the number of leading bytes read for signature matching.
// A file shorter than this is classified by extension only.
const headerLen = 12

var (
	sigOgg  = []byte("OggS")
	sigID3  = []byte("ID3")
	sigRIFF = []byte("RIFF")
	sigWAVE = []byte("WAVE")
	sigFLAC = []byte("fLaC")
	sigASF  = []byte{0x30, 0x26, 0xB2, 0x75}
)

var extFormats = map[string]audio.Format{
	"ogg":  audio.OGG,
	"mp3":  audio.MP3,
	"wav":  audio.WAV,
	"flac": audio.FLAC,
	"m4a":  audio.AAC,
	"aac":  audio.AAC,
	"opus": audio.OPUS,
	"alac": audio.ALAC,
	"wma":  audio.WMA,
}

// Detect classifies the file at path. The second result is false when the
// format is unknown. Read errors are not reported; an unreadable file is
// classified by its extension alone.
func Detect(path string) (audio.Format, bool) {
	return DetectHeader(readHeader(path), path)
}

// readHeader returns the first headerLen bytes of path, or nil when the file
// cannot be opened or is too short.
func readHeader(path string) []byte {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	buf := make([]byte, headerLen)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil
	}
	return buf
}

// DetectHeader is the pure matcher behind [Detect]: signatures in header
// win over the extension of path. A header shorter than 12 bytes never
// matches a signature.
func DetectHeader(header []byte, path string) (audio.Format, bool) {
	if f, ok := matchSignature(header); ok {
		return f, true
	}
	return matchExtension(path)
}

func matchSignature(h []byte) (audio.Format, bool) {
	if len(h) < headerLen {
		return 0, false
	}
	switch {
	case bytes.HasPrefix(h, sigOgg):
		return audio.OGG, true
	case bytes.HasPrefix(h, sigID3), isMPEGFrameSync(h):
		return audio.MP3, true
	case bytes.HasPrefix(h, sigRIFF) && bytes.Equal(h[8:12], sigWAVE):
		return audio.WAV, true
	case bytes.HasPrefix(h, sigFLAC):
		return audio.FLAC, true
	case bytes.HasPrefix(h, sigASF):
		return audio.WMA, true
	}
	return 0, false
}

// isMPEGFrameSync matches an MPEG audio frame header carrying Layer III
// (0xFF followed by 0xF2, 0xF3, 0xFA or 0xFB).
func isMPEGFrameSync(h []byte) bool {
	return h[0] == 0xFF && h[1]&0xF6 == 0xF2
}

func matchExtension(path string) (audio.Format, bool) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return 0, false
	}
	f, ok := extFormats[ext]
	return f, ok
}
