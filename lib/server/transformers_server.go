package server

import (
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/pescuma/minwatch/lib/minifier"
)

type SelectTransformerParams struct {
	Version string `json:"version" binding:"required"`
}

func (s *server) initTransformers(r *gin.Engine) {
	r.GET("/api/transformers", get(s.transformersGet))
	r.PUT("/api/transformers/selected", bodyP[SelectTransformerParams](s.transformerSelect))
}

func (s *server) transformersGet() (any, error) {
	return s.ws.Transformers(), nil
}

func (s *server) transformerSelect(params *SelectTransformerParams) (any, error) {
	version, err := minifier.ParseVersion(params.Version)
	if err != nil {
		return nil, errors.Wrapf(errorBadRequest, "%v", err)
	}

	if !lo.Contains(s.ws.Transformers().Versions, version) {
		return nil, errors.Wrapf(errorBadRequest, "transformer %v is not configured", version)
	}

	err = s.ws.ChangeTransformer(version)
	if err != nil {
		return nil, err
	}

	return s.ws.Transformers(), nil
}
