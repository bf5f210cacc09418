// Package probe inspects audio files without modifying them.
//
// [Detect] classifies a file by its leading magic bytes, falling back to the
// file extension; it never fails, reporting anything it cannot place as
// unknown. [ReadTags] reads embedded metadata for the analysis table and is
// never consulted for classification.
package probe
