package watcher

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pescuma/minwatch/lib/consoles"
	"github.com/pescuma/minwatch/lib/history"
	"github.com/pescuma/minwatch/lib/model"
	"github.com/pescuma/minwatch/lib/stages"
)

const testTick = 5 * time.Millisecond

type events struct {
	mutex sync.Mutex
	all   []stages.Event
}

func (e *events) listen(ev stages.Event) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.all = append(e.all, ev)
}

func (e *events) count(kind stages.EventKind) int {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	result := 0
	for _, ev := range e.all {
		if ev.Kind == kind {
			result++
		}
	}
	return result
}

func newTestWatcher(t *testing.T) (*Watcher, *events) {
	w, err := New(consoles.NewConsole(io.Discard, false), &Options{Tick: testTick})
	require.NoError(t, err)

	evs := &events{}
	w.Subscribe(evs.listen)
	w.Start()

	t.Cleanup(w.Stop)

	return w, evs
}

func write(t *testing.T, w *Watcher, path string, content string) {
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	w.NotifyPossibleChange()
}

func waitHistory(t *testing.T, w *Watcher, size int) {
	require.Eventually(t, func() bool { return len(w.History()) == size }, 2*time.Second, testTick)
}

func TestWatchAndChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\n"), 0o600))

	w, evs := newTestWatcher(t)
	require.NoError(t, w.WatchFile(path))

	waitHistory(t, w, 1)

	h1 := model.ComputeFingerprint([]byte("a\nb\nc\n"))
	latest, ok := w.Latest()
	assert.True(t, ok)
	assert.Equal(t, h1, latest)
	assert.Equal(t, 1, evs.count(stages.FileLoaded))

	write(t, w, path, "a\nb\nd\n")
	waitHistory(t, w, 2)

	h2 := model.ComputeFingerprint([]byte("a\nb\nd\n"))
	hs := w.History()
	assert.Equal(t, h1, hs[0].Fingerprint)
	assert.Equal(t, h2, hs[1].Fingerprint)

	sources := w.Sources()
	assert.Equal(t, "a\nb\nc\n", sources[h1])
	assert.Equal(t, "a\nb\nd\n", sources[h2])

	rev, ok := w.LatestRevision()
	assert.True(t, ok)
	assert.Equal(t, h2, rev.Fingerprint)
	assert.Equal(t, "a\nb\nd\n", rev.Source)
}

func TestIdenticalWritesAreSuppressed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	w, evs := newTestWatcher(t)
	require.NoError(t, w.WatchFile(path))
	waitHistory(t, w, 1)

	before := evs.count(stages.Updated)
	write(t, w, path, "x")
	write(t, w, path, "x")

	require.Eventually(t, func() bool { return evs.count(stages.Updated) >= before+2 }, 2*time.Second, testTick)

	assert.Len(t, w.History(), 1)
	assert.Equal(t, 1, evs.count(stages.Changed))
}

func TestRecurringContentIsStoredOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))

	w, _ := newTestWatcher(t)
	require.NoError(t, w.WatchFile(path))
	waitHistory(t, w, 1)

	write(t, w, path, "two")
	waitHistory(t, w, 2)

	write(t, w, path, "one")
	waitHistory(t, w, 3)

	hs := w.History()
	assert.Equal(t, hs[0].Fingerprint, hs[2].Fingerprint)
	assert.Len(t, w.Sources(), 2)
}

func TestResetClearsState(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))

	w, evs := newTestWatcher(t)
	require.NoError(t, w.WatchFile(path))
	waitHistory(t, w, 1)

	resets := evs.count(stages.Resetted)
	w.Reset()

	require.Eventually(t, func() bool { return evs.count(stages.Resetted) == resets+1 }, 2*time.Second, testTick)

	assert.Empty(t, w.History())
	assert.Empty(t, w.Sources())
	_, ok := w.Latest()
	assert.False(t, ok)
	assert.Equal(t, path, w.Path())
}

func TestWatchOtherFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := filepath.Join(dir, "first.frag")
	second := filepath.Join(dir, "second.frag")
	require.NoError(t, os.WriteFile(first, []byte("first"), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("second"), 0o600))

	w, evs := newTestWatcher(t)
	require.NoError(t, w.WatchFile(first))
	waitHistory(t, w, 1)

	require.NoError(t, w.WatchFile(second))
	require.Eventually(t, func() bool { return evs.count(stages.FileLoaded) == 2 }, 2*time.Second, testTick)
	waitHistory(t, w, 1)

	rev, ok := w.LatestRevision()
	assert.True(t, ok)
	assert.Equal(t, "second", rev.Source)
	assert.Len(t, w.Sources(), 1)
}

func TestResubscribesWhenSubscriptionIsLost(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))

	w, _ := newTestWatcher(t)
	require.NoError(t, w.WatchFile(path))
	waitHistory(t, w, 1)

	require.NoError(t, w.fs.Remove(filepath.Dir(path)))

	require.Eventually(t, func() bool { return len(w.fs.WatchList()) == 1 }, 2*time.Second, testTick)
}

type logBuffer struct {
	mutex sync.Mutex
	buf   bytes.Buffer
}

func (l *logBuffer) Write(p []byte) (int, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.buf.Write(p)
}

func (l *logBuffer) count(text string) int {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return strings.Count(l.buf.String(), text)
}

func TestLostSubscriptionIsLoggedOnce(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "shaders")
	require.NoError(t, os.Mkdir(dir, 0o700))
	path := filepath.Join(dir, "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))

	log := &logBuffer{}
	w, err := New(consoles.NewConsole(log, false), &Options{Tick: testTick})
	require.NoError(t, err)
	w.Start()
	t.Cleanup(w.Stop)

	require.NoError(t, w.WatchFile(path))
	waitHistory(t, w, 1)

	require.NoError(t, os.RemoveAll(dir))
	_ = w.fs.Remove(dir)

	require.Eventually(t, func() bool { return log.count("Lost the subscription") == 1 }, 2*time.Second, testTick)

	time.Sleep(40 * testTick)

	assert.Equal(t, 1, log.count("Lost the subscription"))
	assert.Equal(t, 1, log.count("Could not watch"))

	require.NoError(t, os.Mkdir(dir, 0o700))
	require.NoError(t, os.WriteFile(path, []byte("two"), 0o600))

	waitHistory(t, w, 2)
	assert.Equal(t, 1, log.count("Subscribed again"))
}

func TestPathIsTheRequestedFileRightAfterWatchFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.frag")
	b := filepath.Join(dir, "b.frag")
	require.NoError(t, os.WriteFile(a, []byte("a"), 0o600))
	require.NoError(t, os.WriteFile(b, []byte("b"), 0o600))

	w, _ := newTestWatcher(t)
	require.NoError(t, w.WatchFile(a))
	assert.Equal(t, a, w.Path())
	waitHistory(t, w, 1)

	require.NoError(t, w.WatchFile(b))
	assert.Equal(t, b, w.Path())

	require.Eventually(t, func() bool {
		rev, ok := w.LatestRevision()
		return ok && rev.Source == "b"
	}, 2*time.Second, testTick)
	assert.Equal(t, b, w.Path())
}

func TestExportHistory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "shader.frag")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o600))

	w, evs := newTestWatcher(t)
	require.NoError(t, w.WatchFile(path))
	waitHistory(t, w, 1)
	write(t, w, path, "two")
	waitHistory(t, w, 2)

	out := filepath.Join(dir, "history.json")
	require.NoError(t, w.ExportHistory(out))
	assert.Equal(t, 1, evs.count(stages.HistoryExported))

	doc, err := history.Load(out)
	require.NoError(t, err)
	assert.Len(t, doc.History, 2)
	assert.Len(t, doc.Versions, 2)
	assert.NoError(t, doc.Validate())
}
