// Package vcs commits chosen revisions of the watched file to the git repository that contains it.
package vcs

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pkg/errors"

	"github.com/pescuma/minwatch/lib/consoles"
	"github.com/pescuma/minwatch/lib/metric"
	"github.com/pescuma/minwatch/lib/model"
	"github.com/pescuma/minwatch/lib/stages"
	"github.com/pescuma/minwatch/lib/utils"
)

const StageName = "vcs"

const (
	defaultAuthorName  = "minwatch"
	defaultAuthorEmail = "minwatch@localhost"
)

type Options struct {
	Tick time.Duration
}

type request struct {
	fingerprint model.Fingerprint
	size        int
	metric      *float64
}

type Stage struct {
	console consoles.Console
	runner  *stages.Runner[request]
	now     func() time.Time

	mutex sync.RWMutex
	file  string
	root  string
	repo  *git.Repository

	// Only touched by the loop goroutine.
	lastCommitted model.Fingerprint
}

func New(console consoles.Console, opts *Options) *Stage {
	if opts == nil {
		opts = &Options{}
	}

	s := &Stage{
		console: console.WithPrefix("%v: ", StageName),
		now:     time.Now,
	}

	s.runner = stages.NewRunner[request](StageName, s.console, opts.Tick, stages.Handler[request]{
		Process: s.process,
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

// Reset forgets the last committed fingerprint. The repository binding is kept.
func (s *Stage) Reset() {
	s.runner.RequestReset()
}

func (s *Stage) Subscribe(l stages.Listener) func() {
	return s.runner.Subscribe(l)
}

// BindToFile finds the repository containing path and emits RepoAvailability.
func (s *Stage) BindToFile(path string) bool {
	path, err := utils.PathAbs(path)
	if err != nil {
		s.console.Printf("Invalid path %v: %v\n", path, err)
		path = ""
	}

	var root string
	var repo *git.Repository
	if path != "" {
		root = FindRoot(filepath.Dir(path))
	}
	if root != "" {
		repo, err = git.PlainOpen(root)
		if err != nil {
			s.console.Printf("Could not open repository %v: %v\n", root, err)
			root = ""
			repo = nil
		}
	}

	s.mutex.Lock()
	s.file = path
	s.root = root
	s.repo = repo
	s.mutex.Unlock()

	available := repo != nil
	if available {
		s.console.Printf("Using repository %v\n", root)
	} else {
		s.console.Printf("No repository found for %v\n", path)
	}

	s.runner.Emit(stages.Event{Kind: stages.RepoAvailability, Path: root, Available: available})

	return available
}

// Available returns true if the watched file is inside a repository.
func (s *Stage) Available() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.repo != nil
}

func (s *Stage) Root() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.root
}

// RequestCommit queues a commit of the watched file. metric may be nil.
func (s *Stage) RequestCommit(fp model.Fingerprint, size int, metric *float64) {
	s.runner.Enqueue(request{fingerprint: fp, size: size, metric: metric})
}

// FindRoot walks up from dir looking for a .git entry. Returns "" if none is found.
func FindRoot(dir string) string {
	dir = filepath.Clean(dir)

	for {
		exists, err := utils.FileExists(filepath.Join(dir, git.GitDirName))
		if err == nil && exists {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Message builds the commit message.
func Message(file string, rel string, size int, value *float64) string {
	entropy := "unavailable"
	if value != nil {
		entropy = metric.Format(*value)
	}

	return fmt.Sprintf("Crunched %v to %v bytes using minwatch.\n\nShader file: %v\nNew size: %v\nNew entropy: %v\n",
		filepath.Base(file), size, filepath.ToSlash(rel), size, entropy)
}

func (s *Stage) process(r request) error {
	if r.fingerprint == s.lastCommitted {
		s.console.Printf("Warning: %v is already committed, skipping\n", r.fingerprint.Short())
		return nil
	}

	s.mutex.RLock()
	file, root, repo := s.file, s.root, s.repo
	s.mutex.RUnlock()

	if repo == nil {
		return errors.Errorf("no repository available for %v", file)
	}

	rel, err := filepath.Rel(root, file)
	if err != nil {
		return errors.Wrapf(err, "%v is outside %v", file, root)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return errors.Wrap(err, "could not open worktree")
	}

	_, err = wt.Add(filepath.ToSlash(rel))
	if err != nil {
		return errors.Wrapf(err, "could not stage %v", rel)
	}

	hash, err := wt.Commit(Message(file, rel, r.size, r.metric), &git.CommitOptions{
		Author: s.signature(repo),
	})
	if err != nil {
		return errors.Wrap(err, "could not commit")
	}

	s.lastCommitted = r.fingerprint

	s.console.Printf("Committed %v as %v\n", r.fingerprint.Short(), hash.String()[:8])
	s.runner.Emit(stages.Event{Kind: stages.Committed, Fingerprint: r.fingerprint, Text: hash.String()})

	return nil
}

func (s *Stage) signature(repo *git.Repository) *object.Signature {
	result := &object.Signature{
		Name:  defaultAuthorName,
		Email: defaultAuthorEmail,
		When:  s.now(),
	}

	cfg, err := repo.ConfigScoped(gitconfig.SystemScope)
	if err != nil {
		return result
	}

	if cfg.User.Name != "" {
		result.Name = cfg.User.Name
	}
	if cfg.User.Email != "" {
		result.Email = cfg.User.Email
	}

	return result
}

func (s *Stage) reset() {
	s.lastCommitted = ""
}
