package main

import (
	"github.com/alecthomas/kong"

	"github.com/pescuma/minwatch/lib/config"
	"github.com/pescuma/minwatch/lib/consoles"
)

var cli struct {
	Config string `short:"c" help:"Config file. Default is ./minwatch.yaml if it exists." type:"path"`
	Debug  bool   `help:"Log every file system event and parsed tool output."`

	Watch    WatchCmd    `cmd:"" default:"withargs" help:"Watch a shader, minify every revision and serve the results."`
	Versions VersionsCmd `cmd:"" help:"List the known minifier versions and which ones are installed."`
}

type context struct {
	console consoles.Console
	cfg     *config.Config
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("minwatch"),
		kong.Description("Watches a shader and keeps the history of its minified revisions."),
		kong.ShortUsageOnError(),
	)

	cfg, err := config.Load(cli.Config)
	ctx.FatalIfErrorf(err)

	if cli.Debug {
		cfg.Debug = true
	}

	err = ctx.Run(&context{
		console: consoles.NewStdOutConsole(cfg.Debug),
		cfg:     cfg,
	})
	ctx.FatalIfErrorf(err)
}
