// Package metric runs the build command of each revision and keeps the compressed size it reports.
package metric

import (
	"bytes"
	"os/exec"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/pescuma/minwatch/lib/consoles"
	"github.com/pescuma/minwatch/lib/model"
	"github.com/pescuma/minwatch/lib/stages"
)

const StageName = "metric"

// Errored is stored when the build could not be run at all.
const Errored = "Errored"

type Options struct {
	Tick time.Duration
	// Command is the build command line. Empty disables the stage.
	Command []string
	// Dir is the working directory of the command.
	Dir string
}

type Stage struct {
	console consoles.Console
	runner  *stages.Runner[model.Fingerprint]
	command []string
	dir     string
	results *model.ResultStore[float64]
}

func New(console consoles.Console, opts *Options) *Stage {
	if opts == nil {
		opts = &Options{}
	}

	s := &Stage{
		console: console.WithPrefix("%v: ", StageName),
		command: append([]string(nil), opts.Command...),
		dir:     opts.Dir,
		results: model.NewResultStore[float64](),
	}

	s.runner = stages.NewRunner[model.Fingerprint](StageName, s.console, opts.Tick, stages.Handler[model.Fingerprint]{
		Process: s.process,
		Fail:    s.fail,
		Reset:   s.results.Clear,
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

// Enabled returns false when no build command is configured.
func (s *Stage) Enabled() bool {
	return len(s.command) > 0
}

func (s *Stage) Enqueue(fp model.Fingerprint) {
	s.runner.Enqueue(fp)
}

func (s *Stage) Result(fp model.Fingerprint) (model.Result[float64], bool) {
	return s.results.Get(fp)
}

func (s *Stage) Results() map[model.Fingerprint]model.Result[float64] {
	return s.results.Snapshot()
}

func (s *Stage) process(fp model.Fingerprint) error {
	if !s.Enabled() || s.results.Has(fp) {
		return nil
	}

	cmd := exec.Command(s.command[0], s.command[1:]...)
	cmd.Dir = s.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			s.console.Printf("Build of %v failed with exit code %v\n", fp.Short(), exitErr.ExitCode())
			return nil
		}

		return errors.Wrapf(err, "could not run %v", s.command[0])
	}

	for _, p := range Parsers {
		value, ok := p.Parse(stdout.String(), stderr.String())
		if !ok {
			continue
		}

		s.console.Debugf("Parsed %v output\n", p.Name)
		s.store(fp, model.Ok(value))
		return nil
	}

	s.console.Printf("Could not parse build output:\n%v\n%v\n", stdout.String(), stderr.String())
	return nil
}

func (s *Stage) fail(fp model.Fingerprint, err error) {
	s.store(fp, model.Err[float64](Errored))
}

func (s *Stage) store(fp model.Fingerprint, r model.Result[float64]) {
	if !s.results.Put(fp, r) {
		return
	}

	if msg, failed := r.Error(); failed {
		s.runner.Emit(stages.Event{Kind: stages.Errored, Fingerprint: fp, Error: msg})
		return
	}

	value, _ := r.Value()
	s.console.Printf("%v metric: %v\n", fp.Short(), Format(value))
	s.runner.Emit(stages.Event{Kind: stages.Produced, Fingerprint: fp, Text: Format(value)})
}

// Format prints the metric with as few digits as possible.
func Format(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
