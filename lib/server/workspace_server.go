package server

import (
	"github.com/gin-gonic/gin"
)

type PathParams struct {
	Path string `json:"path" binding:"required"`
}

func (s *server) initWorkspace(r *gin.Engine) {
	r.POST("/api/open", bodyP[PathParams](s.open))
	r.POST("/api/commit", get(s.commit))
	r.POST("/api/export", bodyP[PathParams](s.export))
}

func (s *server) open(params *PathParams) (any, error) {
	err := s.ws.Open(params.Path)
	if err != nil {
		return nil, err
	}

	return gin.H{
		"path":       s.ws.Path(),
		"repository": s.ws.RepositoryAvailable(),
	}, nil
}

func (s *server) commit() (any, error) {
	err := s.ws.CommitLatest()
	if err != nil {
		return nil, err
	}

	return gin.H{"requested": true}, nil
}

func (s *server) export(params *PathParams) (any, error) {
	err := s.ws.Export(params.Path)
	if err != nil {
		return nil, err
	}

	return gin.H{"path": params.Path}, nil
}
