package server

import (
	"github.com/gin-gonic/gin"

	"github.com/pescuma/minwatch/lib/model"
)

type RevisionParams struct {
	Fingerprint string `uri:"fingerprint"`
}

type DiffParams struct {
	Reference   string `form:"reference"`
	Transformed *bool  `form:"transformed"`
	Dark        *bool  `form:"dark"`
}

func (s *server) initRevisions(r *gin.Engine) {
	r.GET("/api/revisions", get(s.revisionsList))
	r.GET("/api/revisions/:fingerprint", getP[RevisionParams](s.revisionGet))
	r.GET("/api/diff", getP[DiffParams](s.diffGet))
}

func (s *server) revisionsList() (any, error) {
	rows := s.ws.Revisions()

	return gin.H{
		"path":  s.ws.Path(),
		"total": len(rows),
		"data":  rows,
	}, nil
}

func (s *server) revisionGet(params *RevisionParams) (any, error) {
	return s.ws.Revision(model.Fingerprint(params.Fingerprint))
}

func (s *server) diffGet(params *DiffParams) (any, error) {
	if params.Dark != nil {
		s.ws.SetDark(*params.Dark)
	}

	transformed := s.ws.DiffView().Transformed
	if params.Transformed != nil {
		transformed = *params.Transformed
	}

	return s.ws.Diff(model.Fingerprint(params.Reference), transformed), nil
}
