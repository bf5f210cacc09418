package planner

import (
	"github.com/backmassage/retempo/internal/audio"
	"github.com/backmassage/retempo/internal/config"
	"github.com/backmassage/retempo/internal/probe"
)

// BuildPlan classifies path and filters it through the configured format
// selection. This is the decision the pipeline makes for every file.
func BuildPlan(cfg *config.Config, path string) *FilePlan {
	f, ok := probe.Detect(path)
	return Decide(cfg, path, f, ok)
}

// Decide builds the plan for a file that has already been classified.
// Undetected and unselected files get ActionSkip with a reason; everything
// else is retimed at cfg.Speed.
func Decide(cfg *config.Config, path string, f audio.Format, detected bool) *FilePlan {
	plan := &FilePlan{
		InputPath: path,
		Speed:     cfg.Speed,
		Format:    f,
		Detected:  detected,
	}

	switch {
	case !detected:
		plan.Action = ActionSkip
		plan.SkipReason = ReasonUndetected
		plan.Format = 0
	case !cfg.Formats.Contains(f):
		plan.Action = ActionSkip
		plan.SkipReason = ReasonExcluded
	default:
		plan.Action = ActionRetime
	}
	return plan
}
