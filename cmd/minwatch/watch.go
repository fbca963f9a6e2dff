package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pescuma/minwatch/lib/config"
	"github.com/pescuma/minwatch/lib/minifier"
	"github.com/pescuma/minwatch/lib/server"
	"github.com/pescuma/minwatch/lib/workspace"
)

type WatchCmd struct {
	Files []string `arg:"" optional:"" help:"Shader source to watch." type:"path"`

	Build            string `short:"b" help:"Command line that builds your intro and prints the compressed size."`
	WorkingDirectory string `short:"w" help:"Working directory to run the build command in." type:"path"`
	Minifier         string `short:"m" help:"Minifier version to use."`
	Port             int    `short:"p" help:"Port to listen to. Overrides the config file."`
	Dark             bool   `help:"Use dark colors in the diff and revision table."`
	Export           string `short:"e" help:"Write the history to this file on exit (.json or .sqlite)." type:"path"`
}

func (c *WatchCmd) Run(ctx *context) error {
	cfg := ctx.cfg

	err := c.apply(cfg)
	if err != nil {
		return err
	}

	ws, err := workspace.New(ctx.console, cfg, &workspace.Options{Progress: os.Stdout})
	if err != nil {
		return err
	}

	ws.Start()

	if len(c.Files) > 1 {
		ctx.console.Printf("Ignoring extra arguments: %v\n", strings.Join(c.Files[1:], " "))
	}
	if len(c.Files) > 0 {
		err = ws.Open(c.Files[0])
		if err != nil {
			_ = ws.Stop()
			return err
		}
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.Run(ctx.console, ws, &server.Options{Port: cfg.Port})
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	select {
	case <-signals:
		ctx.console.Printf("Stopping...\n")
	case err = <-errs:
	}

	if c.Export != "" {
		eerr := ws.Export(c.Export)
		if eerr != nil {
			ctx.console.Printf("Could not export history: %v\n", eerr)
		}
	}

	serr := ws.Stop()
	if err == nil {
		err = serr
	}

	return err
}

// apply overrides the config file with the command line flags.
func (c *WatchCmd) apply(cfg *config.Config) error {
	if c.Build != "" {
		cfg.Build.Command = strings.Fields(c.Build)
	}
	if c.WorkingDirectory != "" {
		cfg.Build.Dir = c.WorkingDirectory
	}
	if c.Minifier != "" {
		v, err := minifier.ParseVersion(c.Minifier)
		if err != nil {
			return err
		}
		cfg.Minifier.Version = v
	}
	if c.Port != 0 {
		cfg.Port = c.Port
	}
	if c.Dark {
		cfg.Dark = true
	}

	return cfg.Validate()
}
