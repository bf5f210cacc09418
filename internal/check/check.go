// Package check provides system diagnostics (--check mode) and pre-pipeline
// dependency validation (CheckDeps) for ffmpeg, its atempo filter, and the
// per-format audio encoders.
package check

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/backmassage/retempo/internal/audio"
	"github.com/backmassage/retempo/internal/config"
)

// Sentinel errors returned by CheckDeps when a requirement is missing.
var (
	ErrFfmpegNotFound = errors.New("ffmpeg not found on PATH")
	ErrNoAtempo       = errors.New("ffmpeg has no atempo audio filter")
)

// Logger is the minimal logging interface needed by RunCheck.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(string, ...interface{})
}

// Encoders maps each format to the ffmpeg encoder used when writing it.
var Encoders = map[audio.Format]string{
	audio.OGG:  "libvorbis",
	audio.MP3:  "libmp3lame",
	audio.WAV:  "pcm_s16le",
	audio.FLAC: "flac",
	audio.AAC:  "aac",
	audio.OPUS: "libopus",
	audio.ALAC: "alac",
	audio.WMA:  "wmav2",
}

// RunCheck runs the interactive --check flow: prints the ffmpeg version,
// whether atempo is available, and encoder availability per format. It
// returns the number of problems found; it does not stop on failure.
func RunCheck(cfg *config.Config, log Logger) int {
	log.Info("=== System Check ===")
	bin := cfg.FFmpegPath

	if !checkFfmpeg(bin, log) {
		return 1
	}
	problems := 0
	if !checkAtempo(bin, log) {
		problems++
	}
	problems += checkEncoders(bin, cfg.Formats, log)
	return problems
}

// checkFfmpeg verifies ffmpeg is on PATH and logs its version string.
func checkFfmpeg(bin string, log Logger) bool {
	path, err := exec.LookPath(bin)
	if err != nil {
		log.Error("ffmpeg not found (%s)", bin)
		return false
	}
	log.Debug("ffmpeg binary: %s", path)
	out, err := exec.Command(bin, "-version").Output()
	if err != nil {
		log.Warn("ffmpeg found but -version failed: %v", err)
		return true
	}
	firstLine := strings.TrimSpace(string(out))
	if idx := strings.Index(firstLine, "\n"); idx > 0 {
		firstLine = firstLine[:idx]
	}
	log.Success("ffmpeg: %s", firstLine)
	return true
}

func checkAtempo(bin string, log Logger) bool {
	ok, err := hasAtempo(bin)
	switch {
	case err != nil:
		log.Warn("Could not list filters: %v", err)
		return false
	case ok:
		log.Success("atempo filter available")
		return true
	default:
		log.Error("atempo filter missing; this ffmpeg build cannot change speed")
		return false
	}
}

// checkEncoders reports, for each selected format, whether its encoder is
// compiled into ffmpeg. Returns the number of missing encoders.
func checkEncoders(bin string, formats audio.Set, log Logger) int {
	log.Info("Audio encoders:")
	out, err := exec.Command(bin, "-hide_banner", "-encoders").Output()
	if err != nil {
		log.Warn("Could not list encoders: %v", err)
		return 1
	}
	available := listedNames(string(out))

	missing := 0
	for _, f := range formats.Formats() {
		enc := Encoders[f]
		if available[enc] {
			log.Success("  %-5s %s", f, enc)
		} else {
			log.Warn("  %-5s %s not available; %s files will fail", f, enc, f)
			missing++
		}
	}
	return missing
}

// CheckDeps is the pre-pipeline validation: it verifies that the transcoder
// is on PATH and ships the atempo filter. Returns a sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.FFmpegPath); err != nil {
		return fmt.Errorf("%w (%s)", ErrFfmpegNotFound, cfg.FFmpegPath)
	}
	ok, err := hasAtempo(cfg.FFmpegPath)
	if err != nil {
		return fmt.Errorf("list ffmpeg filters: %w", err)
	}
	if !ok {
		return ErrNoAtempo
	}
	return nil
}

// --- internal helpers ---

func hasAtempo(bin string) (bool, error) {
	out, err := exec.Command(bin, "-hide_banner", "-filters").Output()
	if err != nil {
		return false, err
	}
	return listedNames(string(out))["atempo"], nil
}

// listedNames extracts the name column from ffmpeg's -filters/-encoders
// listings, where each entry line is "<flags> <name> <description>".
func listedNames(out string) map[string]bool {
	names := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		names[fields[1]] = true
	}
	return names
}
