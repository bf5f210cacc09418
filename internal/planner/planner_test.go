package planner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/backmassage/retempo/internal/audio"
	"github.com/backmassage/retempo/internal/config"
)

func defaultCfg() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Speed = 1.5
	return &cfg
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		formats    audio.Set
		format     audio.Format
		detected   bool
		wantAction Action
		wantReason string
	}{
		{"selected", audio.All, audio.OGG, true, ActionRetime, ""},
		{"subset hit", audio.SetOf(audio.MP3), audio.MP3, true, ActionRetime, ""},
		{"excluded", audio.SetOf(audio.OGG), audio.MP3, true, ActionSkip, ReasonExcluded},
		{"undetected", audio.All, 0, false, ActionSkip, ReasonUndetected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultCfg()
			cfg.Formats = tt.formats
			plan := Decide(cfg, "/m/x", tt.format, tt.detected)
			if plan.Action != tt.wantAction {
				t.Errorf("Action = %v, want %v", plan.Action, tt.wantAction)
			}
			if plan.SkipReason != tt.wantReason {
				t.Errorf("SkipReason = %q, want %q", plan.SkipReason, tt.wantReason)
			}
			if plan.Speed != 1.5 || plan.InputPath != "/m/x" {
				t.Errorf("plan carries speed=%v path=%q", plan.Speed, plan.InputPath)
			}
		})
	}
}

func TestBuildPlan_ClassifiesFile(t *testing.T) {
	dir := t.TempDir()
	ogg := filepath.Join(dir, "a.dat")
	if err := os.WriteFile(ogg, append([]byte("OggS"), make([]byte, 20)...), 0o644); err != nil {
		t.Fatal(err)
	}
	txt := filepath.Join(dir, "b.txt")
	if err := os.WriteFile(txt, []byte("plain text, nothing else"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := defaultCfg()
	cfg.Formats = audio.SetOf(audio.OGG)

	plan := BuildPlan(cfg, ogg)
	if plan.Action != ActionRetime || plan.Format != audio.OGG || !plan.Detected {
		t.Errorf("ogg plan = %+v", plan)
	}
	plan = BuildPlan(cfg, txt)
	if plan.Action != ActionSkip || plan.Detected {
		t.Errorf("txt plan = %+v", plan)
	}
}

func TestAction_String(t *testing.T) {
	if ActionRetime.String() != "retime" || ActionSkip.String() != "skip" {
		t.Errorf("Action strings: %q %q", ActionRetime, ActionSkip)
	}
}
