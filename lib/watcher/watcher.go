// Package watcher observes one file and keeps the content addressed history of its revisions.
package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/pescuma/minwatch/lib/consoles"
	"github.com/pescuma/minwatch/lib/history"
	"github.com/pescuma/minwatch/lib/model"
	"github.com/pescuma/minwatch/lib/stages"
)

const StageName = "watcher"

type recheck struct{}

type Options struct {
	Tick time.Duration
}

type Watcher struct {
	console consoles.Console
	runner  *stages.Runner[recheck]
	fs      *fsnotify.Watcher
	now     func() time.Time

	mutex       sync.RWMutex
	path        string
	pendingPath string
	switching   bool
	versions    *model.Store[string]
	history     []model.HistoryEntry
	latest      model.Fingerprint

	// lost is only touched by the loop goroutine.
	lost bool

	forwardOnce sync.Once
}

func New(console consoles.Console, opts *Options) (*Watcher, error) {
	if opts == nil {
		opts = &Options{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "could not create file system watcher")
	}

	w := &Watcher{
		console:  console.WithPrefix("%v: ", StageName),
		fs:       fsw,
		now:      time.Now,
		versions: model.NewStore[string](),
	}

	w.runner = stages.NewRunner[recheck](StageName, w.console, opts.Tick, stages.Handler[recheck]{
		Process: w.process,
		Reset:   w.reset,
		Tick:    w.checkSubscription,
	})

	return w, nil
}

func (w *Watcher) Start() {
	w.forwardOnce.Do(func() {
		go w.forward()
	})
	w.runner.Start()
}

func (w *Watcher) RequestStop() {
	w.runner.RequestStop()
}

// Stop stops the loop, waits for it and releases the file system subscription.
func (w *Watcher) Stop() {
	w.runner.Stop()
	_ = w.fs.Close()
}

func (w *Watcher) Wait() {
	w.runner.Wait()
}

func (w *Watcher) Reset() {
	w.runner.RequestReset()
}

func (w *Watcher) Subscribe(l stages.Listener) func() {
	return w.runner.Subscribe(l)
}

// WatchFile switches to a new file. All the state is cleared first, as in a reset.
func (w *Watcher) WatchFile(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrapf(err, "invalid path %v", path)
	}

	w.mutex.Lock()
	w.pendingPath = path
	w.switching = true
	w.mutex.Unlock()

	w.runner.RequestReset()

	return nil
}

// NotifyPossibleChange queues a re-check of the file. Extra re-checks are harmless.
func (w *Watcher) NotifyPossibleChange() {
	w.runner.Enqueue(recheck{})
}

// Path returns the file being watched, or the one requested by WatchFile while the switch is pending.
func (w *Watcher) Path() string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	if w.switching {
		return w.pendingPath
	}
	return w.path
}

func (w *Watcher) watchedPath() string {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return w.path
}

// Latest returns the fingerprint of the last observed revision.
func (w *Watcher) Latest() (model.Fingerprint, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return w.latest, w.latest != ""
}

func (w *Watcher) LatestRevision() (model.Revision, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	if w.latest == "" {
		return model.Revision{}, false
	}

	source, ok := w.versions.Get(w.latest)
	if !ok {
		return model.Revision{}, false
	}

	return model.Revision{Fingerprint: w.latest, Source: source}, true
}

func (w *Watcher) Source(fp model.Fingerprint) (string, bool) {
	return w.versions.Get(fp)
}

func (w *Watcher) History() []model.HistoryEntry {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return append([]model.HistoryEntry(nil), w.history...)
}

// Sources returns a copy of every stored revision source.
func (w *Watcher) Sources() map[model.Fingerprint]string {
	return w.versions.Snapshot()
}

// ExportHistory writes the history document and emits HistoryExported.
func (w *Watcher) ExportHistory(path string) error {
	w.mutex.RLock()
	doc := history.NewDocument(w.versions.Snapshot(), w.history)
	w.mutex.RUnlock()

	err := history.Save(path, doc)
	if err != nil {
		return err
	}

	w.console.Printf("Exported %v revisions to %v\n", len(doc.History), path)
	w.runner.Emit(stages.Event{Kind: stages.HistoryExported, Path: path})

	return nil
}

func (w *Watcher) process(recheck) error {
	path := w.watchedPath()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "could not read %v", path)
	}

	fp := model.ComputeFingerprint(data)

	w.mutex.Lock()
	if fp == w.latest {
		w.mutex.Unlock()
		w.console.Debugf("%v unchanged\n", fp.Short())
		return nil
	}

	source := string(data)
	w.versions.Put(fp, source)
	w.history = append(w.history, model.HistoryEntry{ObservedAt: w.now(), Fingerprint: fp})
	w.latest = fp
	w.mutex.Unlock()

	w.console.Printf("New revision %v (%v)\n", fp.Short(), humanize.Bytes(uint64(len(data))))
	w.runner.Emit(stages.Event{Kind: stages.Changed, Fingerprint: fp, Text: source, Path: path})

	return nil
}

func (w *Watcher) reset() {
	w.mutex.Lock()
	w.versions.Clear()
	w.history = nil
	w.latest = ""

	switching := w.switching
	oldPath := w.path
	if switching {
		w.path = w.pendingPath
		w.switching = false
	}
	path := w.path
	w.mutex.Unlock()

	if !switching {
		return
	}

	if oldPath != "" {
		_ = w.fs.Remove(filepath.Dir(oldPath))
	}

	err := w.fs.Add(filepath.Dir(path))
	if err != nil {
		w.console.Printf("Could not watch %v: %v\n", path, err)
	}

	w.console.Printf("Watching %v\n", path)
	w.runner.Emit(stages.Event{Kind: stages.FileLoaded, Path: path})

	w.NotifyPossibleChange()
}

// checkSubscription re-subscribes when the OS dropped the watch behind our back.
// Only changes of the subscription state are logged.
func (w *Watcher) checkSubscription() {
	path := w.watchedPath()
	if path == "" {
		w.lost = false
		return
	}

	if len(w.fs.WatchList()) != 0 {
		w.lost = false
		return
	}

	if !w.lost {
		w.console.Printf("Lost the subscription to %v, subscribing again\n", path)
	}

	err := w.fs.Add(filepath.Dir(path))
	if err != nil {
		if !w.lost {
			w.console.Printf("Could not watch %v: %v\n", path, err)
		}
		w.lost = true
		return
	}

	if w.lost {
		w.console.Printf("Subscribed again to %v\n", path)
	}
	w.lost = false

	w.NotifyPossibleChange()
}

// forward turns file system events for the watched file into re-checks.
func (w *Watcher) forward() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}

			w.console.Debugf("File system event: %v\n", event)

			path := w.watchedPath()
			if path == "" || filepath.Clean(event.Name) != path {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.NotifyPossibleChange()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}

			w.console.Printf("File system watcher error: %v\n", err)
		}
	}
}
