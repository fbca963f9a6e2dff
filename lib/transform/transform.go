// Package transform runs the selected transformer version on every new revision.
package transform

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/pescuma/minwatch/lib/consoles"
	"github.com/pescuma/minwatch/lib/minifier"
	"github.com/pescuma/minwatch/lib/model"
	"github.com/pescuma/minwatch/lib/stages"
	"github.com/pescuma/minwatch/lib/utils"
)

const StageName = "transform"

// Transformer is one prepared version of the external transformer.
type Transformer interface {
	Validate(source string) error
	Minify(source string) (string, error)
}

// Factory prepares the transformer of one version. It is called once per version at startup.
type Factory func(version minifier.Version) (Transformer, error)

// MinifierFactory prepares the real shader minifier binaries.
func MinifierFactory(console consoles.Console, cfg *minifier.Config) Factory {
	return func(version minifier.Version) (Transformer, error) {
		m, err := minifier.Prepare(console, version, cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}

type Options struct {
	Tick     time.Duration
	Versions []minifier.Version
	Selected minifier.Version
	// Progress receives a progress bar while the transformers are being prepared.
	Progress io.Writer
}

type task struct {
	fingerprint model.Fingerprint
	source      string
}

type prepared struct {
	version     minifier.Version
	transformer Transformer
	err         error
}

type Stage struct {
	console  consoles.Console
	runner   *stages.Runner[task]
	factory  Factory
	versions []minifier.Version
	progress io.Writer
	selected atomic.Pointer[minifier.Version]
	results  *model.ResultStore[string]

	mutex sync.RWMutex
	pool  map[minifier.Version]Transformer
	ready bool
}

func New(console consoles.Console, factory Factory, opts *Options) *Stage {
	if opts == nil {
		opts = &Options{}
	}

	versions := opts.Versions
	if len(versions) == 0 {
		versions = minifier.KnownVersions
	}

	s := &Stage{
		console:  console.WithPrefix("%v: ", StageName),
		factory:  factory,
		versions: append([]minifier.Version(nil), versions...),
		progress: opts.Progress,
		results:  model.NewResultStore[string](),
		pool:     map[minifier.Version]Transformer{},
	}

	selected := opts.Selected
	if selected == minifier.Unavailable {
		selected = minifier.DefaultVersion
	}
	s.selected.Store(&selected)

	s.runner = stages.NewRunner[task](StageName, s.console, opts.Tick, stages.Handler[task]{
		Init:    s.warmUp,
		Process: s.process,
		Fail:    s.fail,
		Reset:   s.reset,
	})

	return s
}

func (s *Stage) Start() {
	s.runner.Start()
}

func (s *Stage) RequestStop() {
	s.runner.RequestStop()
}

func (s *Stage) Wait() {
	s.runner.Wait()
}

func (s *Stage) Stop() {
	s.runner.Stop()
}

func (s *Stage) Reset() {
	s.runner.RequestReset()
}

func (s *Stage) Subscribe(l stages.Listener) func() {
	return s.runner.Subscribe(l)
}

func (s *Stage) Enqueue(fp model.Fingerprint, source string) {
	s.runner.Enqueue(task{fingerprint: fp, source: source})
}

// SelectVersion changes the version used for the tasks dequeued from now on.
// Stored results are kept.
func (s *Stage) SelectVersion(version minifier.Version) error {
	if !lo.Contains(s.versions, version) {
		return errors.Errorf("unknown transformer version: %v", version)
	}

	s.selected.Store(&version)
	s.console.Printf("Selected version %v\n", version)

	return nil
}

func (s *Stage) Selected() minifier.Version {
	return *s.selected.Load()
}

func (s *Stage) Versions() []minifier.Version {
	return append([]minifier.Version(nil), s.versions...)
}

// Ready returns true after the warm pool finished preparing.
func (s *Stage) Ready() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.ready
}

// Available lists the prepared versions, in the configured order.
func (s *Stage) Available() []minifier.Version {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return lo.Filter(s.versions, func(v minifier.Version, _ int) bool {
		_, ok := s.pool[v]
		return ok
	})
}

func (s *Stage) Result(fp model.Fingerprint) (model.Result[string], bool) {
	return s.results.Get(fp)
}

func (s *Stage) Results() map[model.Fingerprint]model.Result[string] {
	return s.results.Snapshot()
}

func (s *Stage) warmUp() {
	s.console.Printf("Preparing %v transformer versions...\n", len(s.versions))

	var bar interface{ Add(int) error }
	if s.progress != nil {
		bar = utils.NewProgressBarTo(s.progress, len(s.versions))
	}

	group := utils.ParallelFor(s.versions, func(v minifier.Version) (*prepared, error) {
		t, err := s.factory(v)
		if bar != nil {
			_ = bar.Add(1)
		}
		return &prepared{version: v, transformer: t, err: err}, nil
	}, utils.ParallelOptions{Routines: len(s.versions)})

	results, _ := group.Collect()

	s.mutex.Lock()
	for _, p := range results {
		if p.err != nil || p.transformer == nil {
			s.console.Printf("Version %v unavailable: %v\n", p.version, p.err)
			continue
		}

		s.pool[p.version] = p.transformer
	}
	s.ready = true
	available := len(s.pool)
	s.mutex.Unlock()

	s.console.Printf("%v of %v transformer versions ready\n", available, len(s.versions))
	s.runner.Emit(stages.Event{Kind: stages.TransformersReady})
}

func (s *Stage) transformer(version minifier.Version) (Transformer, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	t, ok := s.pool[version]
	return t, ok
}

func (s *Stage) process(t task) error {
	if s.results.Has(t.fingerprint) {
		return nil
	}

	version := s.Selected()

	tr, ok := s.transformer(version)
	if !ok {
		s.store(t.fingerprint, model.Err[string]("transformer "+string(version)+" unavailable"))
		return nil
	}

	err := tr.Validate(t.source)
	if err != nil {
		s.store(t.fingerprint, model.Err[string](err.Error()))
		return nil
	}

	out, err := tr.Minify(t.source)
	if err != nil {
		s.store(t.fingerprint, model.Err[string](err.Error()))
		return nil
	}

	s.console.Printf("%v transformed with %v: %v -> %v bytes\n", t.fingerprint.Short(), version, len(t.source), len(out))
	s.store(t.fingerprint, model.Ok(out))

	return nil
}

func (s *Stage) fail(t task, err error) {
	s.store(t.fingerprint, model.Err[string](err.Error()))
}

func (s *Stage) store(fp model.Fingerprint, r model.Result[string]) {
	if !s.results.Put(fp, r) {
		return
	}

	if msg, failed := r.Error(); failed {
		s.console.Printf("%v failed: %v\n", fp.Short(), msg)
		s.runner.Emit(stages.Event{Kind: stages.Errored, Fingerprint: fp, Error: msg})
		return
	}

	text, _ := r.Value()
	s.runner.Emit(stages.Event{Kind: stages.Produced, Fingerprint: fp, Text: text})
}

func (s *Stage) reset() {
	s.results.Clear()
}
