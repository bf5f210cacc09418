// Package audio defines the closed set of audio formats retempo can retime
// and the bitset used to select among them.
package audio

import (
	"errors"
	"fmt"
	"strings"
)

// Format is a single supported audio format. Each value occupies one bit so
// formats combine into a [Set].
type Format uint32

const (
	OGG  Format = 1 << iota // Ogg Vorbis.
	MP3                     // MPEG-1/2 Audio Layer III.
	WAV                     // RIFF WAVE.
	FLAC                    // Free Lossless Audio Codec.
	AAC                     // Advanced Audio Coding (usually .m4a).
	OPUS                    // Opus (Ogg or WebM container).
	ALAC                    // Apple Lossless.
	WMA                     // Windows Media Audio (ASF container).
)

// formats lists every Format in canonical order. Names and Set.Formats
// iterate it so output order never depends on map iteration.
var formats = [...]struct {
	f    Format
	name string
}{
	{OGG, "ogg"},
	{MP3, "mp3"},
	{WAV, "wav"},
	{FLAC, "flac"},
	{AAC, "aac"},
	{OPUS, "opus"},
	{ALAC, "alac"},
	{WMA, "wma"},
}

// String returns the lowercase selector name ("ogg", "mp3", ...), or
// "unknown" for zero and combined values.
func (f Format) String() string {
	for _, e := range formats {
		if e.f == f {
			return e.name
		}
	}
	return "unknown"
}

// Valid reports whether f is exactly one known format.
func (f Format) Valid() bool {
	return f.String() != "unknown"
}

// Names returns the accepted selector tokens in canonical order, without "all".
func Names() []string {
	out := make([]string, len(formats))
	for i, e := range formats {
		out[i] = e.name
	}
	return out
}

// Lookup maps a case-insensitive format name to its Format.
func Lookup(name string) (Format, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, e := range formats {
		if e.name == name {
			return e.f, true
		}
	}
	return 0, false
}

// Set is a bitmask of formats used as an inclusion filter.
type Set uint32

const (
	// All contains every supported format.
	All Set = Set(OGG | MP3 | WAV | FLAC | AAC | OPUS | ALAC | WMA)

	// DefaultSet is the selection used when the user names none. It equals
	// All today but is kept as its own constant.
	DefaultSet Set = Set(OGG | MP3 | WAV | FLAC | AAC | OPUS | ALAC | WMA)
)

// SetOf builds a Set from individual formats.
func SetOf(fs ...Format) Set {
	var s Set
	for _, f := range fs {
		s |= Set(f)
	}
	return s
}

// Union returns the formats present in either s or o.
func (s Set) Union(o Set) Set { return s | o }

// Contains reports whether f is a member of s. The zero Format is never a member.
func (s Set) Contains(f Format) bool {
	return f != 0 && Set(f)&s == Set(f)
}

// IsEmpty reports whether s selects nothing.
func (s Set) IsEmpty() bool { return s&All == 0 }

// Formats returns the members of s in canonical order.
func (s Set) Formats() []Format {
	var out []Format
	for _, e := range formats {
		if s.Contains(e.f) {
			out = append(out, e.f)
		}
	}
	return out
}

// String renders s as a comma-separated selector ("ogg,mp3"), "all" when
// every format is present, or "none" for the empty set.
func (s Set) String() string {
	if s&All == All {
		return "all"
	}
	members := s.Formats()
	if len(members) == 0 {
		return "none"
	}
	names := make([]string, len(members))
	for i, f := range members {
		names[i] = f.String()
	}
	return strings.Join(names, ",")
}

// ErrEmptySelection is returned when a selection resolves to no formats.
var ErrEmptySelection = errors.New("no valid audio formats selected for processing")

// UnknownFormatError reports a selector token that names no known format.
type UnknownFormatError struct {
	Token string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q (supported formats: %s, all)",
		e.Token, strings.Join(Names(), ", "))
}

// ParseSet parses a comma-separated, case-insensitive format list such as
// "ogg,MP3" into a Set. The token "all" selects every format. Unknown or
// empty tokens yield an *UnknownFormatError; a selection that resolves to
// nothing yields ErrEmptySelection.
func ParseSet(s string) (Set, error) {
	var set Set
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "all" {
			set = set.Union(All)
			continue
		}
		f, ok := Lookup(tok)
		if !ok {
			return 0, &UnknownFormatError{Token: tok}
		}
		set = set.Union(SetOf(f))
	}
	if set.IsEmpty() {
		return 0, ErrEmptySelection
	}
	return set, nil
}
