package main

import (
	"github.com/samber/lo"

	"github.com/pescuma/minwatch/lib/minifier"
	"github.com/pescuma/minwatch/lib/utils"
)

type VersionsCmd struct {
	Verify bool `help:"Check the sha256 of the installed binaries."`
}

type versionStatus struct {
	version minifier.Version
	path    string
	err     error
}

func (c *VersionsCmd) Run(ctx *context) error {
	cfg := ctx.cfg.MinifierConfig()
	cfg.Verify = cfg.Verify || c.Verify

	versions := ctx.cfg.Minifier.Versions

	bar := utils.NewProgressBar(len(versions))
	statuses, err := utils.ParallelFor(versions, func(v minifier.Version) (*versionStatus, error) {
		m, err := minifier.Prepare(ctx.console, v, cfg)
		_ = bar.Add(1)

		if err != nil {
			return &versionStatus{version: v, err: err}, nil
		}
		return &versionStatus{version: v, path: m.Path()}, nil
	}, utils.ParallelOptions{Routines: len(versions)}).Collect()
	if err != nil {
		return err
	}
	_ = bar.Finish()

	byVersion := lo.KeyBy(statuses, func(s *versionStatus) minifier.Version { return s.version })

	for _, v := range versions {
		s := byVersion[v]

		marker := utils.IIf(v == ctx.cfg.Minifier.Version, "*", " ")
		if s.err != nil {
			ctx.console.Printf("%v %-6v unavailable: %v\n", marker, v, s.err)
		} else {
			ctx.console.Printf("%v %-6v %v\n", marker, v, s.path)
		}
	}

	return nil
}
