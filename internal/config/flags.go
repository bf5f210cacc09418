package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into transform, behavior, display, and utility.
// Negated flags (e.g. --no-color) are applied after Parse so Config defaults hold unless set.

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseFlags parses args (normally os.Args[1:]) into cfg. A config file named
// by --config or $RETEMPO_CONFIG is loaded first so flags override it. On
// --help or --version it prints and exits. On error it returns non-nil (e.g.
// unknown flag, missing positional arg).
func ParseFlags(cfg *Config, args []string, version string) error {
	path := configFileArg(args)
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return err
		}
	}

	fs := flag.NewFlagSet("retempo", flag.ContinueOnError)
	fs.Usage = func() { printUsage(version) }

	var negated negatedFlags

	defineTransformFlags(fs, cfg)
	defineBehaviorFlags(fs, cfg)
	defineDisplayFlags(fs, cfg, &negated)
	defineUtilityFlags(fs, cfg, &negated)

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}

	applyNegatedFlags(cfg, &negated)

	if negated.showHelp {
		printUsage(version)
		os.Exit(0)
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "retempo v"+version)
		os.Exit(0)
	}

	return parsePositionalArgs(positional, cfg)
}

// parseInterspersed parses args allowing flags after positional arguments
// ("retempo /music -s 1.5"). flag.Parse stops at the first non-flag, so the
// positional is set aside and parsing resumes after it. Everything after a
// "--" terminator is positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// negatedFlags holds boolean flags that are applied after Parse.
// These either invert a default (e.g. noColor -> ColorMode=never) or trigger exit (showHelp, showVersion).
type negatedFlags struct {
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// defineTransformFlags registers -s/--speed, -f/--formats, -j/--jobs, --ffmpeg.
func defineTransformFlags(fs *flag.FlagSet, cfg *Config) {
	fs.Var(&speedValue{&cfg.Speed}, "speed", "Audio speed multiplier (e.g. 1.5)")
	fs.Var(&speedValue{&cfg.Speed}, "s", "Same as --speed")
	fs.StringVar(&cfg.FormatList, "formats", cfg.FormatList, "Formats to process, comma separated, or 'all'")
	fs.StringVar(&cfg.FormatList, "f", cfg.FormatList, "Same as --formats")
	fs.IntVar(&cfg.Workers, "jobs", cfg.Workers, "Parallel workers (0 = one per CPU)")
	fs.IntVar(&cfg.Workers, "j", cfg.Workers, "Same as --jobs")
	fs.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "Transcoder binary")
}

// defineBehaviorFlags registers dry-run, analyze, report.
func defineBehaviorFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Preview only; do not run the transcoder")
	fs.BoolVar(&cfg.DryRun, "d", cfg.DryRun, "Same as --dry-run")
	fs.BoolVar(&cfg.AnalyzeOnly, "analyze", false, "Print detected formats and tags, then exit")
	fs.BoolVar(&cfg.AnalyzeOnly, "a", false, "Same as --analyze")
	fs.StringVar(&cfg.ReportFile, "report", cfg.ReportFile, "Write a JSON run report to this path")
}

// defineDisplayFlags registers --color, --no-color, --no-progress, verbose, --check, --log, --config.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.NoProgress, "no-progress", cfg.NoProgress, "Hide the progress bar")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Same as --verbose")
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "Append JSON logs to file")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "Same as --log")
	// Already consumed by configFileArg; registered so Parse accepts it.
	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML config file")
}

// defineUtilityFlags registers --version and --help (exit after printing).
func defineUtilityFlags(fs *flag.FlagSet, _ *Config, n *negatedFlags) {
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated and override flag values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets InputDir from the single positional arg when not in CheckOnly mode.
func parsePositionalArgs(args []string, cfg *Config) error {
	if cfg.CheckOnly {
		return nil
	}
	if len(args) != 1 {
		return ErrNoInput
	}
	cfg.InputDir = NormalizeDirArg(args[0])
	return nil
}

// configFileArg scans args for --config/-config before the real parse so the
// file can seed defaults that flags then override.
func configFileArg(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		name := strings.TrimLeft(a, "-")
		if len(name) == len(a) {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// printUsage writes the help text to stderr. Column-aligned for readability.
func printUsage(version string) {
	const col1 = 28 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "retempo v" + version + " - batch audio speed changer"},
		{"", ""},
		{"  retempo [OPTIONS] <folder> [OPTIONS]", ""},
		{"", ""},
		{"Transform", ""},
		{"  -s, --speed <x>", "Speed multiplier, e.g. 1.25 (required)"},
		{"  -f, --formats <list>", "ogg,mp3,wav,flac,aac,opus,alac,wma or all (default: all)"},
		{"  -j, --jobs <n>", "Parallel workers (default: one per CPU)"},
		{"  --ffmpeg <path>", "Transcoder binary (default: ffmpeg)"},
		{"", ""},
		{"Behavior", ""},
		{"  -d, --dry-run", "Preview only; do not run the transcoder"},
		{"  -a, --analyze", "Print detected formats and tags, then exit"},
		{"  --report <path>", "Write a JSON run report"},
		{"", ""},
		{"Display", ""},
		{"  --no-progress", "Hide the progress bar"},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  --config <path>", "YAML config file (or $" + EnvConfigFile + ")"},
		{"  -l, --log <path>", "Append JSON logs to file"},
		{"  -c, --check", "System diagnostics (ffmpeg, atempo, encoders)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(os.Stderr, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(os.Stderr, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(os.Stderr, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// speedValue adapts the float speed multiplier to flag.Var so a malformed
// value reports a clear message instead of strconv's.
type speedValue struct{ p *float64 }

func (s *speedValue) String() string {
	if s.p == nil || *s.p == 0 {
		return ""
	}
	return strconv.FormatFloat(*s.p, 'f', -1, 64)
}

func (s *speedValue) Set(v string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("invalid speed %q (use a number such as 1.5)", v)
	}
	*s.p = f
	return nil
}
