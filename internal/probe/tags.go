package probe

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Tags is the subset of embedded metadata shown by the analysis table.
type Tags struct {
	Title     string
	Artist    string
	Album     string
	Track     int
	Container string // Tag container ("ID3v2.3", "VORBIS", "MP4", ...); empty when none was read.
	FromPath  bool   // True when any field was filled in from the path layout.
}

// ReadTags reads embedded tags from path. It always returns usable Tags:
// fields missing from the file (or all of them, when the file has no
// readable tags) are derived from an Artist/Album/Track path layout. The
// error reports why embedded tags could not be read.
func ReadTags(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return tagsFromPath(path), err
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return tagsFromPath(path), err
	}

	t := &Tags{
		Title:     meta.Title(),
		Artist:    meta.Artist(),
		Album:     meta.Album(),
		Container: string(meta.Format()),
	}
	t.Track, _ = meta.Track()

	if t.Title == "" || t.Artist == "" || t.Album == "" {
		fb := tagsFromPath(path)
		if t.Title == "" {
			t.Title, t.FromPath = fb.Title, true
		}
		if t.Artist == "" && fb.Artist != "" {
			t.Artist, t.FromPath = fb.Artist, true
		}
		if t.Album == "" && fb.Album != "" {
			t.Album, t.FromPath = fb.Album, true
		}
	}
	return t, nil
}

// tagsFromPath derives tags from ".../Artist/Album/Track.ext".
func tagsFromPath(path string) *Tags {
	parts := strings.Split(filepath.ToSlash(path), "/")
	base := filepath.Base(path)

	t := &Tags{
		Title:    strings.TrimSuffix(base, filepath.Ext(base)),
		FromPath: true,
	}
	if len(parts) >= 3 {
		t.Artist = parts[len(parts)-3]
	}
	if len(parts) >= 2 {
		t.Album = parts[len(parts)-2]
	}
	return t
}

// DisplayName renders "Artist – Title", or just the title when the artist
// is unknown.
func (t *Tags) DisplayName() string {
	if t == nil {
		return ""
	}
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " – " + t.Title
}
