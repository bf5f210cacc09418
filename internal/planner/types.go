package planner

import "github.com/backmassage/retempo/internal/audio"

// Action describes the per-file processing decision.
type Action int

const (
	ActionRetime Action = iota
	ActionSkip
)

// String returns the label used in analysis output.
func (a Action) String() string {
	switch a {
	case ActionRetime:
		return "retime"
	case ActionSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Skip reasons.
const (
	ReasonUndetected = "format not recognised"
	ReasonExcluded   = "format not selected"
)

// FilePlan holds the decision for a single file. It is produced by
// BuildPlan and consumed by the pipeline worker.
type FilePlan struct {
	Action     Action
	SkipReason string

	Format   audio.Format // Zero when Detected is false.
	Detected bool

	InputPath string
	Speed     float64
}
