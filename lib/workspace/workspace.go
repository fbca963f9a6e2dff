// Package workspace wires the stages of one watched file together.
package workspace

import (
	"io"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/pescuma/minwatch/lib/config"
	"github.com/pescuma/minwatch/lib/consoles"
	"github.com/pescuma/minwatch/lib/linediff"
	"github.com/pescuma/minwatch/lib/metric"
	"github.com/pescuma/minwatch/lib/minifier"
	"github.com/pescuma/minwatch/lib/model"
	"github.com/pescuma/minwatch/lib/stages"
	"github.com/pescuma/minwatch/lib/table"
	"github.com/pescuma/minwatch/lib/transform"
	"github.com/pescuma/minwatch/lib/utils"
	"github.com/pescuma/minwatch/lib/vcs"
	"github.com/pescuma/minwatch/lib/watcher"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNoFile    = errors.New("no file is being watched")
	ErrNoRepo    = errors.New("the watched file is not inside a repository")
	ErrNotReady  = errors.New("the latest revision has no transform result yet")
	ErrTransform = errors.New("the latest revision failed to transform")
)

type stage interface {
	Start()
	RequestStop()
	Wait()
	Subscribe(l stages.Listener) func()
}

type Options struct {
	// Factory overrides the transformers. Nil uses the shader minifier binaries from the config.
	Factory transform.Factory
	// Progress receives the progress bar of the transformer preparation.
	Progress io.Writer
}

type Workspace struct {
	console consoles.Console
	config  *config.Config
	events  *stages.Notifier

	watcher   *watcher.Watcher
	transform *transform.Stage
	metric    *metric.Stage
	vcs       *vcs.Stage
	diff      *linediff.Engine

	mutex sync.Mutex
	dark  bool

	stopOnce sync.Once
}

func New(console consoles.Console, cfg *config.Config, opts *Options) (*Workspace, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if opts == nil {
		opts = &Options{}
	}

	factory := opts.Factory
	if factory == nil {
		factory = transform.MinifierFactory(console, cfg.MinifierConfig())
	}

	w, err := watcher.New(console, &watcher.Options{Tick: cfg.Tick})
	if err != nil {
		return nil, err
	}

	ws := &Workspace{
		console: console,
		config:  cfg,
		events:  stages.NewNotifier(),
		watcher: w,
		transform: transform.New(console, factory, &transform.Options{
			Tick:     cfg.Tick,
			Versions: cfg.Minifier.Versions,
			Selected: cfg.Minifier.Version,
			Progress: opts.Progress,
		}),
		metric: metric.New(console, &metric.Options{
			Tick:    cfg.Tick,
			Command: cfg.Build.Command,
			Dir:     cfg.Build.Dir,
		}),
		vcs:  vcs.New(console, &vcs.Options{Tick: cfg.Tick}),
		dark: cfg.Dark,
	}

	ws.diff = linediff.NewEngine(ws.watcher, ws.transform)
	ws.diff.SetDark(cfg.Dark)

	ws.connect()

	return ws, nil
}

func (w *Workspace) all() []stage {
	return []stage{w.watcher, w.transform, w.metric, w.vcs}
}

func (w *Workspace) connect() {
	for _, s := range w.all() {
		s.Subscribe(w.events.Emit)
	}

	w.watcher.Subscribe(func(e stages.Event) {
		switch e.Kind {
		case stages.Changed:
			w.transform.Enqueue(e.Fingerprint, e.Text)
			w.metric.Enqueue(e.Fingerprint)

			if w.diff.View().Reference == "" {
				w.diff.SetReference(e.Fingerprint)
			}
			w.diff.SetLatest(e.Fingerprint)

		case stages.Resetted:
			w.diff.SetReference("")
			w.diff.SetLatest("")
		}
	})

	w.transform.Subscribe(func(e stages.Event) {
		switch e.Kind {
		case stages.TransformersReady:
			w.watcher.NotifyPossibleChange()

		case stages.Produced, stages.Errored, stages.Resetted:
			w.diff.Recompute()
		}
	})
}

func (w *Workspace) Console() consoles.Console {
	return w.console
}

func (w *Workspace) Config() *config.Config {
	return w.config
}

// Subscribe receives the events of every stage.
func (w *Workspace) Subscribe(l stages.Listener) func() {
	return w.events.Subscribe(l)
}

func (w *Workspace) Start() {
	for _, s := range w.all() {
		s.Start()
	}
}

// Stop asks every stage to stop and waits for all of them.
func (w *Workspace) Stop() error {
	var err error

	w.stopOnce.Do(func() {
		for _, s := range w.all() {
			s.RequestStop()
		}

		var g errgroup.Group
		for _, s := range w.all() {
			s := s
			g.Go(func() error {
				s.Wait()
				return nil
			})
		}
		err = g.Wait()

		w.watcher.Stop()
	})

	return err
}

// Open starts watching another file. The state of every stage is reset.
func (w *Workspace) Open(path string) error {
	path, err := utils.PathAbs(path)
	if err != nil {
		return errors.Wrapf(err, "invalid path %v", path)
	}

	exists, err := utils.FileExists(path)
	if err != nil {
		return errors.Wrapf(err, "could not access %v", path)
	}
	if !exists {
		return errors.Wrapf(ErrNotFound, "file %v", path)
	}

	w.console.Printf("Opening %v\n", path)

	w.transform.Reset()
	w.metric.Reset()
	w.vcs.Reset()

	err = w.watcher.WatchFile(path)
	if err != nil {
		return err
	}

	w.vcs.BindToFile(path)

	return nil
}

func (w *Workspace) Path() string {
	return w.watcher.Path()
}

// ChangeTransformer selects another version and opens the current file again so every revision uses it.
func (w *Workspace) ChangeTransformer(version minifier.Version) error {
	err := w.transform.SelectVersion(version)
	if err != nil {
		return err
	}

	path := w.Path()
	if path == "" {
		return nil
	}

	return w.Open(path)
}

type Transformers struct {
	Versions  []minifier.Version `json:"versions"`
	Available []minifier.Version `json:"available"`
	Selected  minifier.Version   `json:"selected"`
	Ready     bool               `json:"ready"`
}

func (w *Workspace) Transformers() *Transformers {
	return &Transformers{
		Versions:  w.transform.Versions(),
		Available: w.transform.Available(),
		Selected:  w.transform.Selected(),
		Ready:     w.transform.Ready(),
	}
}

func (w *Workspace) SetDark(dark bool) {
	w.mutex.Lock()
	w.dark = dark
	w.mutex.Unlock()

	w.diff.SetDark(dark)
}

func (w *Workspace) Dark() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.dark
}

func (w *Workspace) Revisions() []table.Row {
	latest, _ := w.watcher.Latest()

	return table.Build(&table.Input{
		History:    w.watcher.History(),
		Latest:     latest,
		Sources:    w.watcher.Sources(),
		Transforms: w.transform.Results(),
		Metrics:    w.metric.Results(),
		Dark:       w.Dark(),
	})
}

type Revision struct {
	Fingerprint model.Fingerprint `json:"fingerprint"`
	Source      string            `json:"source"`
	State       table.State       `json:"state"`
	Transformed string            `json:"transformed,omitempty"`
	Error       string            `json:"error,omitempty"`
	Metric      *float64          `json:"metric,omitempty"`
}

func (w *Workspace) Revision(fp model.Fingerprint) (*Revision, error) {
	source, ok := w.watcher.Source(fp)
	if !ok {
		return nil, ErrNotFound
	}

	result := &Revision{
		Fingerprint: fp,
		Source:      source,
		State:       table.Pending,
	}

	if r, ok := w.transform.Result(fp); ok {
		if text, ok := r.Value(); ok {
			result.State = table.Ok
			result.Transformed = text
		} else {
			result.State = table.Failed
			result.Error, _ = r.Error()
		}
	}

	if r, ok := w.metric.Result(fp); ok {
		if v, ok := r.Value(); ok {
			result.Metric = &v
		}
	}

	return result, nil
}

// Diff changes the compared revisions and returns the new view.
// An empty reference keeps the current one.
func (w *Workspace) Diff(reference model.Fingerprint, transformed bool) linediff.View {
	if reference != "" {
		w.diff.SetReference(reference)
	}
	return w.diff.SetTransformed(transformed)
}

func (w *Workspace) DiffView() linediff.View {
	return w.diff.View()
}

// CommitLatest commits the watched file with the size and metric of the latest revision.
func (w *Workspace) CommitLatest() error {
	fp, ok := w.watcher.Latest()
	if !ok {
		return ErrNoFile
	}

	if !w.vcs.Available() {
		return ErrNoRepo
	}

	r, ok := w.transform.Result(fp)
	if !ok {
		return ErrNotReady
	}

	text, ok := r.Value()
	if !ok {
		return ErrTransform
	}

	var value *float64
	if m, ok := w.metric.Result(fp); ok {
		if v, ok := m.Value(); ok {
			value = &v
		}
	}

	w.vcs.RequestCommit(fp, len(text), value)

	return nil
}

func (w *Workspace) RepositoryAvailable() bool {
	return w.vcs.Available()
}

func (w *Workspace) Export(path string) error {
	if w.Path() == "" {
		return ErrNoFile
	}

	path, err := utils.PathAbs(path)
	if err != nil {
		return err
	}

	return w.watcher.ExportHistory(path)
}
