// Package server exposes a workspace over HTTP.
package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pescuma/minwatch/lib/config"
	"github.com/pescuma/minwatch/lib/consoles"
	"github.com/pescuma/minwatch/lib/workspace"
)

type Options struct {
	Port int
}

// Run serves the API until the server fails.
func Run(console consoles.Console, ws *workspace.Workspace, opts *Options) error {
	s := newServer(ws, opts)

	console.Printf("Starting server on port %v...\n", s.opts.Port)

	return s.run()
}

// Handler returns the API routes without starting a listener.
func Handler(ws *workspace.Workspace) http.Handler {
	return newServer(ws, nil).router()
}

type server struct {
	opts *Options
	ws   *workspace.Workspace
}

func newServer(ws *workspace.Workspace, opts *Options) *server {
	if opts == nil {
		opts = &Options{}
	}
	if opts.Port == 0 {
		opts.Port = config.DefaultPort
	}

	return &server{
		opts: opts,
		ws:   ws,
	}
}

func (s *server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s.initRevisions(r)
	s.initTransformers(r)
	s.initWorkspace(r)

	return r
}

func (s *server) run() error {
	return s.router().Run(fmt.Sprintf(":%v", s.opts.Port))
}
