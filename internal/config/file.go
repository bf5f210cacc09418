package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the environment variable consulted when --config is absent.
const EnvConfigFile = "RETEMPO_CONFIG"

// fileConfig mirrors the YAML config file. Pointer fields distinguish
// "absent" from the zero value so only keys present in the file override
// defaults.
type fileConfig struct {
	Speed    *float64 `yaml:"speed"`
	Formats  *string  `yaml:"formats"`
	Jobs     *int     `yaml:"jobs"`
	FFmpeg   *string  `yaml:"ffmpeg"`
	Color    *string  `yaml:"color"`
	Verbose  *bool    `yaml:"verbose"`
	Progress *bool    `yaml:"progress"`
	Log      *string  `yaml:"log"`
	Report   *string  `yaml:"report"`
}

// LoadFile reads a YAML config file into cfg. Unknown keys are rejected so
// typos surface instead of being silently ignored.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Speed != nil {
		cfg.Speed = *fc.Speed
	}
	if fc.Formats != nil {
		cfg.FormatList = *fc.Formats
	}
	if fc.Jobs != nil {
		cfg.Workers = *fc.Jobs
	}
	if fc.FFmpeg != nil {
		cfg.FFmpegPath = *fc.FFmpeg
	}
	if fc.Color != nil {
		cfg.ColorMode = ColorMode(*fc.Color)
	}
	if fc.Verbose != nil {
		cfg.Verbose = *fc.Verbose
	}
	if fc.Progress != nil {
		cfg.NoProgress = !*fc.Progress
	}
	if fc.Log != nil {
		cfg.LogFile = *fc.Log
	}
	if fc.Report != nil {
		cfg.ReportFile = *fc.Report
	}
	cfg.ConfigFile = path
	return nil
}
