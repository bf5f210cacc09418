// Package planner decides, per discovered file, whether it is retimed or
// skipped, and builds the FilePlan the pipeline acts on.
package planner
