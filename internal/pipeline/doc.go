// Package pipeline orchestrates file discovery, parallel per-file
// processing, and batch summary reporting.
//
// Run is the batch entry point: Discover walks the input folder, the Engine
// fans the files out to a fixed pool of workers, each worker plans the file
// (classify, then filter by the format selection) and hands accepted files
// to a Transformer. Counters are aggregated in RunStats and summarised at
// the end. Analyze is the read-only variant behind --analyze, and
// WriteReport persists a finished run as JSON.
package pipeline
