// Package config holds runtime configuration: defaults, an optional YAML
// config file, CLI flag parsing, and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/backmassage/retempo/internal/audio"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stderr is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// DefaultTempPrefix is the fixed marker every temp artifact name starts with.
const DefaultTempPrefix = "temp_"

// Sentinel validation errors.
var (
	ErrSpeed        = errors.New("speed multiplier must be greater than zero")
	ErrWorkers      = errors.New("jobs must not be negative")
	ErrNoInput      = errors.New("need exactly one input folder")
	ErrInputMissing = errors.New("the specified folder does not exist")
	ErrInputNotDir  = errors.New("please specify a folder path")
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then by an optional config file ([LoadFile]), then by [ParseFlags], and is
// finally checked by [Config.Validate] before being passed (by pointer) to
// the packages that need it.
type Config struct {
	// Input (set from the positional arg).
	InputDir string

	// Transform.
	Speed      float64   // Tempo multiplier handed to atempo. Required.
	FormatList string    // Raw --formats value. Default: "all".
	Formats    audio.Set // Derived by Validate from FormatList.
	Workers    int       // Default: 0 (one worker per CPU).
	FFmpegPath string    // Default: "ffmpeg".
	TempPrefix string    // Fixed: "temp_".
	RunID      string    // Derived: short UUID making temp names unique per run.

	// Behavior flags.
	DryRun      bool
	AnalyzeOnly bool // Print a classification table and exit.
	CheckOnly   bool // Run --check diagnostics and exit.
	ReportFile  string

	// Display and logging.
	Verbose    bool
	NoProgress bool
	ColorMode  ColorMode // Default: "auto".
	LogFile    string    // Optional JSON log file path.
	ConfigFile string    // Optional YAML config file path.
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		FormatList: "all",
		Formats:    audio.DefaultSet,
		FFmpegPath: "ffmpeg",
		TempPrefix: DefaultTempPrefix,
		RunID:      NewRunID(),
		ColorMode:  ColorAuto,
	}
}

// NewRunID returns an 8-character token unique to one run.
func NewRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// TempMarker is the full prefix prepended to a file name to form its temp
// artifact name, e.g. "temp_1a2b3c4d_".
func (c *Config) TempMarker() string {
	if c.RunID == "" {
		return c.TempPrefix
	}
	return c.TempPrefix + c.RunID + "_"
}

// EffectiveWorkers resolves Workers to a concrete pool size.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

// Validate checks the color mode and parses FormatList into Formats, in
// every mode. An unknown or empty format selection is an error here, before
// any file is discovered. Outside CheckOnly mode it also checks the speed
// multiplier and worker count and requires the input folder to be set.
func (c *Config) Validate() error {
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return fmt.Errorf("invalid color mode %q (use 'auto', 'always' or 'never')", c.ColorMode)
	}

	set, err := audio.ParseSet(c.FormatList)
	if err != nil {
		return err
	}
	c.Formats = set

	if c.CheckOnly {
		return nil
	}

	if c.Workers < 0 {
		return ErrWorkers
	}
	if c.InputDir == "" {
		return ErrNoInput
	}
	// Analysis never runs the engine, so the speed is not needed there.
	if c.AnalyzeOnly {
		return nil
	}
	if !(c.Speed > 0) {
		return ErrSpeed
	}
	return nil
}

// ValidateInput checks that path exists and is a directory.
func ValidateInput(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputMissing, path)
		}
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInputNotDir, path)
	}
	return nil
}
