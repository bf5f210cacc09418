package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/backmassage/retempo/internal/audio"
	"github.com/backmassage/retempo/internal/config"
	"github.com/backmassage/retempo/internal/logging"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Discover tests ---

func TestDiscover_RecursiveAndSorted(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.mp3")
	touch(t, dir, "a.txt")
	touch(t, filepath.Join(dir, "Artist", "Album 02"), "01.flac")
	touch(t, filepath.Join(dir, "Artist", "Album 01"), "02.ogg")
	touch(t, filepath.Join(dir, "Artist", "Album 01"), "01.ogg")

	files, err := Discover(dir, nil)
	require.NoError(t, err)

	want := []string{
		filepath.Join(dir, "Artist", "Album 01", "01.ogg"),
		filepath.Join(dir, "Artist", "Album 01", "02.ogg"),
		filepath.Join(dir, "Artist", "Album 02", "01.flac"),
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.mp3"),
	}
	if diff := cmp.Diff(want, files); diff != "" {
		t.Errorf("Discover mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_EmptyDir(t *testing.T) {
	files, err := Discover(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)
}

func TestDiscover_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	outside := t.TempDir()
	touch(t, dir, "real.mp3")
	touch(t, outside, "target.ogg")
	touch(t, filepath.Join(outside, "sub"), "hidden.flac")

	require.NoError(t, os.Symlink(filepath.Join(outside, "target.ogg"), filepath.Join(dir, "link.ogg")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "sub"), filepath.Join(dir, "linkdir")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "nothing"), filepath.Join(dir, "dangling.mp3")))

	var skipped []string
	files, err := Discover(dir, func(path string, err error) { skipped = append(skipped, filepath.Base(path)) })
	require.NoError(t, err)

	assert.Equal(t, []string{"link.ogg", "real.mp3"}, basenames(files),
		"file symlinks are kept, directory symlinks are not followed")
	assert.Equal(t, []string{"dangling.mp3"}, skipped)
}

func TestDiscover_SymlinkedRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	real := t.TempDir()
	touch(t, real, "song.mp3")
	link := filepath.Join(t.TempDir(), "library")
	require.NoError(t, os.Symlink(real, link))

	files, err := Discover(link, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(link, "song.mp3")}, files)
}

func TestDiscover_UnreadableSubdir(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	dir := t.TempDir()
	touch(t, dir, "ok.mp3")
	locked := filepath.Join(dir, "locked")
	touch(t, locked, "secret.mp3")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	var skipped []string
	files, err := Discover(dir, func(path string, err error) { skipped = append(skipped, path) })
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.mp3"}, basenames(files))
	assert.Equal(t, []string{locked}, skipped)
}

// --- RunStats tests ---

func TestRunStats_Record(t *testing.T) {
	var s RunStats
	s.record(Result{Outcome: OutcomeDone, InputBytes: 1000, OutputBytes: 600}, "a")
	s.record(Result{Outcome: OutcomeFailed, Err: errors.New("boom")}, "b")
	s.record(Result{Outcome: OutcomeSkipped}, "c")
	s.record(Result{Outcome: OutcomeCancelled}, "d")

	assert.Equal(t, Counts{Processed: 2, Skipped: 1, Failed: 1, Cancelled: 1}, s.Snapshot())
	assert.Equal(t, []Failure{{Path: "b", Error: "boom"}}, s.Failures())
	assert.Equal(t, int64(400), s.SizeDelta())
}

// --- Engine tests ---

type countingTracker struct {
	advanced atomic.Int64
	finished atomic.Int64
}

func (c *countingTracker) Advance(Outcome) { c.advanced.Add(1) }
func (c *countingTracker) Finish()        { c.finished.Add(1) }

func pathsN(n int) []string {
	files := make([]string, n)
	for i := range files {
		files[i] = fmt.Sprintf("/music/%03d.mp3", i)
	}
	return files
}

// outcomeByIndex gives a deterministic mix of outcomes per path.
func outcomeByIndex(_ context.Context, path string) Result {
	var i int
	fmt.Sscanf(filepath.Base(path), "%d.mp3", &i)
	switch i % 4 {
	case 0:
		return Result{Outcome: OutcomeSkipped}
	case 1:
		return Result{Outcome: OutcomeFailed, Err: errors.New("bad")}
	default:
		return Result{Outcome: OutcomeDone}
	}
}

func TestEngine_CountersAddUp(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			tracker := &countingTracker{}
			e := &Engine{Workers: 8, Tracker: tracker}
			stats := e.Run(context.Background(), pathsN(n), outcomeByIndex)

			c := stats.Snapshot()
			assert.Equal(t, int64(n), c.Total)
			assert.Equal(t, c.Total, c.Processed+c.Skipped, "processed+skipped must equal total")
			assert.LessOrEqual(t, c.Failed, c.Processed)
			assert.Zero(t, c.Cancelled)
			assert.Equal(t, int64(n), tracker.advanced.Load(), "Advance once per file")
			assert.Equal(t, int64(1), tracker.finished.Load(), "Finish exactly once")
		})
	}
}

func TestEngine_PoolMatchesSingleWorker(t *testing.T) {
	files := pathsN(57)
	single := (&Engine{Workers: 1}).Run(context.Background(), files, outcomeByIndex)
	pool := (&Engine{Workers: 6}).Run(context.Background(), files, outcomeByIndex)

	assert.Equal(t, single.Snapshot(), pool.Snapshot())

	sortFailures := func(f []Failure) []Failure {
		sort.Slice(f, func(i, j int) bool { return f[i].Path < f[j].Path })
		return f
	}
	assert.Equal(t, sortFailures(single.Failures()), sortFailures(pool.Failures()))
}

func TestEngine_EachFileExactlyOnce(t *testing.T) {
	files := pathsN(200)
	var mu sync.Mutex
	seen := make(map[string]int)
	(&Engine{Workers: 16}).Run(context.Background(), files, func(_ context.Context, path string) Result {
		mu.Lock()
		seen[path]++
		mu.Unlock()
		return Result{Outcome: OutcomeDone}
	})
	require.Len(t, seen, len(files))
	for p, n := range seen {
		assert.Equal(t, 1, n, p)
	}
}

func TestEngine_BoundedConcurrency(t *testing.T) {
	var cur, peak atomic.Int64
	fn := func(context.Context, string) Result {
		n := cur.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		cur.Add(-1)
		return Result{Outcome: OutcomeDone}
	}
	(&Engine{Workers: 3}).Run(context.Background(), pathsN(30), fn)
	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestEngine_CancelledContextStillDrains(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tracker := &countingTracker{}
	stats := (&Engine{Workers: 4, Tracker: tracker}).Run(ctx, pathsN(20), func(ctx context.Context, _ string) Result {
		if ctx.Err() != nil {
			return Result{Outcome: OutcomeCancelled}
		}
		return Result{Outcome: OutcomeDone}
	})
	assert.Equal(t, int64(20), stats.Cancelled.Load())
	assert.Equal(t, int64(20), tracker.advanced.Load())
}

func TestBarTracker(t *testing.T) {
	var buf bytes.Buffer
	tr := NewBarTracker(&buf, 3)
	for i := 0; i < 3; i++ {
		tr.Advance(OutcomeDone)
	}
	tr.Finish()
	assert.Contains(t, buf.String(), "Processing complete!")
	assert.Equal(t, 1, strings.Count(buf.String(), "Processing complete!"))
}

func TestBarTracker_InterruptedRun(t *testing.T) {
	var buf bytes.Buffer
	tr := NewBarTracker(&buf, 4)
	tr.Advance(OutcomeDone)
	tr.Advance(OutcomeSkipped)
	tr.Advance(OutcomeCancelled)
	tr.Advance(OutcomeCancelled)
	tr.Finish()
	assert.NotContains(t, buf.String(), "Processing complete!")
	assert.Contains(t, buf.String(), "Interrupted: 2 of 4 files not processed.")
}

func TestNewTracker_Disabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.NoProgress = true
	assert.Equal(t, NopTracker{}, NewTracker(&cfg, 10))
}

// --- Runner tests ---

// fakeTransformer records calls and replaces content with "retimed".
type fakeTransformer struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (f *fakeTransformer) Apply(_ context.Context, path string, _ float64) error {
	f.mu.Lock()
	f.calls = append(f.calls, filepath.Base(path))
	err := f.fail[filepath.Base(path)]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte("retimed"), 0o644)
}

func newRunner(t *testing.T, dir, formats string, tr Transformer) *Runner {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.InputDir = dir
	cfg.Speed = 1.5
	cfg.FormatList = formats
	cfg.Workers = 4
	cfg.ColorMode = config.ColorNever
	require.NoError(t, cfg.Validate())
	return &Runner{
		Cfg:        &cfg,
		Log:        logging.Nop(),
		Transform:  tr,
		NewTracker: func(*config.Config, int) Tracker { return NopTracker{} },
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func header(sig string) []byte {
	return append([]byte(sig), make([]byte, 32)...)
}

func TestRunner_SelectionScenario(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ogg"), header("OggS"))
	writeFile(t, filepath.Join(dir, "b.txt"), []byte("just some notes, nothing else"))
	writeFile(t, filepath.Join(dir, "c.dat"), header("ID3\x03"))

	tr := &fakeTransformer{}
	stats, err := newRunner(t, dir, "ogg", tr).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Counts{Total: 3, Processed: 1, Skipped: 2}, stats.Snapshot())
	assert.Equal(t, []string{"a.ogg"}, tr.calls)

	got, _ := os.ReadFile(filepath.Join(dir, "c.dat"))
	assert.Equal(t, header("ID3\x03"), got, "unselected file must be untouched")
}

func TestRunner_FailuresAreCounted(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"1.mp3", "2.mp3", "3.flac"} {
		writeFile(t, filepath.Join(dir, name), []byte("x"))
	}
	tr := &fakeTransformer{fail: map[string]error{"2.mp3": errors.New("ffmpeg exited with status 1")}}

	stats, err := newRunner(t, dir, "all", tr).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Counts{Total: 3, Processed: 3, Failed: 1}, stats.Snapshot())
	require.Len(t, stats.Failures(), 1)
	assert.Equal(t, filepath.Join(dir, "2.mp3"), stats.Failures()[0].Path)
	assert.Len(t, tr.calls, 3, "a failure must not stop the run")
}

func TestRunner_DryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"), []byte("x"))
	writeFile(t, filepath.Join(dir, "b.wav"), header("RIFF\x00\x00\x00\x00WAVE"))

	tr := &fakeTransformer{}
	r := newRunner(t, dir, "all", tr)
	r.Cfg.DryRun = true
	stats, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.Processed.Load(), "dry-run counts as processed")
	assert.Empty(t, tr.calls)
}

func TestRunner_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"), []byte("x"))
	writeFile(t, filepath.Join(dir, "b.txt"), []byte("y"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := &fakeTransformer{}
	stats, err := newRunner(t, dir, "all", tr).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, Counts{Total: 2, Skipped: 1, Cancelled: 1}, stats.Snapshot())
	assert.Empty(t, tr.calls)
}

func TestRunner_InterruptedTransformIsCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.mp3"), []byte("x"))

	tr := &fakeTransformer{fail: map[string]error{"a.mp3": fmt.Errorf("a.mp3: %w", context.Canceled)}}
	stats, err := newRunner(t, dir, "all", tr).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 1, Cancelled: 1}, stats.Snapshot())
}

func TestRunner_MissingRoot(t *testing.T) {
	r := newRunner(t, t.TempDir(), "all", &fakeTransformer{})
	r.Cfg.InputDir = filepath.Join(r.Cfg.InputDir, "gone")
	_, err := r.Run(context.Background())
	assert.Error(t, err)
}

// TestRun_RealFFmpeg runs the full pipeline against the real transcoder.
func TestRun_RealFFmpeg(t *testing.T) {
	bin, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "tone.wav")
	gen := exec.Command(bin, "-hide_banner", "-nostdin", "-loglevel", "error",
		"-f", "lavfi", "-i", "sine=frequency=440:duration=1", src)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Skipf("cannot generate test tone: %v: %s", err, out)
	}
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("not audio"))

	cfg := config.DefaultConfig()
	cfg.InputDir = dir
	cfg.Speed = 2
	cfg.NoProgress = true
	cfg.FFmpegPath = bin
	require.NoError(t, cfg.Validate())

	stats, err := Run(context.Background(), &cfg, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 2, Processed: 1, Skipped: 1}, stats.Snapshot())
	assert.Positive(t, stats.SizeDelta())
}

// --- Analyze tests ---

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Band", "Record", "a.ogg"), header("OggS"))
	writeFile(t, filepath.Join(dir, "b.txt"), []byte("plain text"))
	writeFile(t, filepath.Join(dir, "c.dat"), header("ID3\x03"))

	cfg := config.DefaultConfig()
	cfg.InputDir = dir
	cfg.FormatList = "ogg"
	cfg.AnalyzeOnly = true
	require.NoError(t, cfg.Validate())

	var out bytes.Buffer
	require.NoError(t, Analyze(context.Background(), &cfg, logging.Nop(), &out))

	table := out.String()
	assert.Contains(t, table, "Artist – Title")
	assert.Contains(t, table, "Band – a", "path layout fills in missing tags")
	assert.Regexp(t, `b\.txt\s+\?\s+txt\s+skip`, table)
	assert.Regexp(t, `c\.dat\s+mp3\s+dat\s+skip`, table)
	assert.Regexp(t, `a\.ogg\s+ogg\s+ogg\s+retime`, table)

	for _, name := range []string{"b.txt", "c.dat"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
	}
}

func TestAnalyze_NonASCIINamesStayAligned(t *testing.T) {
	dir := t.TempDir()
	names := []string{"Björk.ogg", "abcde.ogg", strings.Repeat("é", 60) + ".ogg"}
	for _, name := range names {
		writeFile(t, filepath.Join(dir, name), header("OggS"))
	}

	cfg := config.DefaultConfig()
	cfg.InputDir = dir
	cfg.FormatList = "ogg"
	cfg.AnalyzeOnly = true
	require.NoError(t, cfg.Validate())

	var out bytes.Buffer
	require.NoError(t, Analyze(context.Background(), &cfg, logging.Nop(), &out))
	table := out.String()
	require.True(t, utf8.ValidString(table), "table must be valid UTF-8")

	// The format column starts at the same rune offset on every row.
	var cols []int
	for _, line := range strings.Split(table, "\n") {
		idx := strings.Index(line, " ogg ")
		if idx < 0 {
			continue
		}
		cols = append(cols, utf8.RuneCountInString(line[:idx]))
	}
	require.Len(t, cols, len(names))
	for _, c := range cols[1:] {
		assert.Equal(t, cols[0], c)
	}
	assert.Contains(t, table, strings.Repeat("é", 49)+"…")
}

// --- Report tests ---

func TestWriteReport(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.InputDir = "/music"
	cfg.Speed = 1.25
	cfg.Formats = audio.SetOf(audio.OGG, audio.MP3)

	stats := &RunStats{}
	stats.Total.Store(3)
	stats.record(Result{Outcome: OutcomeDone}, "/music/a.ogg")
	stats.record(Result{Outcome: OutcomeFailed, Err: errors.New("disk full")}, "/music/b.mp3")
	stats.record(Result{Outcome: OutcomeSkipped}, "/music/c.txt")

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteReport(path, NewReport(&cfg, stats, started, started.Add(time.Minute))))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, cfg.RunID, got["run_id"])
	assert.Equal(t, "/music", got["root"])
	assert.Equal(t, 1.25, got["speed"])
	assert.Equal(t, "ogg,mp3", got["formats"])
	assert.Equal(t, float64(3), got["total"])
	assert.Equal(t, float64(2), got["processed"])
	assert.Equal(t, float64(1), got["failed"])
	assert.Equal(t, "2026-01-02T03:04:05Z", got["started"])
	assert.Equal(t, []any{map[string]any{"path": "/music/b.mp3", "error": "disk full"}}, got["failures"])

	// No pending temp files left next to the report.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

// --- Helpers ---

func touch(t *testing.T, dir, name string) {
	t.Helper()
	writeFile(t, filepath.Join(dir, name), nil)
}

func basenames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}
