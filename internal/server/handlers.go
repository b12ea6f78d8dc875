package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/simonhull/firebird-suite/nest/internal/apperr"
	"github.com/simonhull/firebird-suite/nest/internal/config"
	"github.com/simonhull/firebird-suite/nest/internal/diff"
	"github.com/simonhull/firebird-suite/nest/internal/jobs"
	"github.com/simonhull/firebird-suite/nest/internal/logger"
	"github.com/simonhull/firebird-suite/nest/internal/model"
	"github.com/simonhull/firebird-suite/nest/internal/validate"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type submitResponse struct {
	TaskID string      `json:"taskId"`
	State  model.State `json:"state"`
}

type errorResponse struct {
	Code    int      `json:"code"`
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

type compareRequest struct {
	Old model.GenerationConfig `json:"old"`
	New model.GenerationConfig `json:"new"`
}

type diffRequest struct {
	Base      string `json:"base"`
	Biz       string `json:"biz"`
	Algorithm string `json:"algorithm"`
	// ImpactRatio overrides thresholds.merge_impact_ratio when set.
	ImpactRatio float64 `json:"impactRatio"`
}

type diffResponse struct {
	Analysis        *diff.Result            `json:"analysis"`
	Significant     diff.SignificantChanges `json:"significant"`
	Recommendations []diff.Recommendation   `json:"recommendations"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "ok", Version: s.version})
}

// decodeRequest reads a GenerationConfig, seeded with the tool defaults.
func (s *Server) decodeRequest(c *gin.Context) (*model.GenerationConfig, bool) {
	req, err := config.DecodeRequest(c.Request.Body, s.cfg.RequestDefaults())
	if err != nil {
		s.fail(c, apperr.Wrap(err, apperr.KindValidation, "invalid request body"))
		return nil, false
	}
	return req, true
}

func (s *Server) submit(c *gin.Context) {
	req, ok := s.decodeRequest(c)
	if !ok {
		return
	}

	id, err := s.orch.Submit(c.Request.Context(), req)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Location", "/api/v1/generations/"+id)
	c.JSON(http.StatusAccepted, submitResponse{TaskID: id, State: model.StateGenerating})
}

func (s *Server) getGeneration(c *gin.Context) {
	id := c.Param("id")

	// Concurrent polls for the same task share one store read.
	v, err, _ := s.status.Do(id, func() (any, error) {
		return s.orch.Status(c.Request.Context(), id)
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v.(*jobs.Job))
}

func (s *Server) validate(c *gin.Context) {
	req, ok := s.decodeRequest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.orch.Validate(c.Request.Context(), req))
}

func (s *Server) compare(c *gin.Context) {
	var body compareRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, apperr.Wrap(err, apperr.KindValidation, "invalid request body"))
		return
	}
	c.JSON(http.StatusOK, validate.Compare(&body.Old, &body.New))
}

func (s *Server) diff(c *gin.Context) {
	var body diffRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, apperr.Wrap(err, apperr.KindValidation, "invalid request body"))
		return
	}

	opts := s.cfg.DiffOptions()
	if body.Algorithm != "" {
		opts.Algorithm = diff.ParseAlgorithm(body.Algorithm)
	}
	ratio := s.cfg.Thresholds.MergeImpactRatio
	if body.ImpactRatio > 0 {
		ratio = body.ImpactRatio
	}

	r := diff.Analyze(body.Base, body.Biz, opts)
	c.JSON(http.StatusOK, diffResponse{
		Analysis:        r,
		Significant:     diff.DetectSignificantChanges(r, ratio),
		Recommendations: diff.Recommendations(r),
	})
}

// fail writes err with the status of its kind.
func (s *Server) fail(c *gin.Context, err error) {
	resp := errorResponse{
		Code:    http.StatusInternalServerError,
		Kind:    string(apperr.KindInternal),
		Message: err.Error(),
	}
	if e, ok := apperr.As(err); ok {
		resp.Code = e.HTTPStatus()
		resp.Kind = string(e.Kind)
		resp.Message = e.Message
	}

	var verrs validate.Errors
	if errors.As(err, &verrs) {
		resp.Errors = verrs
	} else if e, ok := apperr.As(err); ok && e.Err != nil {
		resp.Errors = []string{e.Err.Error()}
	}

	if resp.Code >= http.StatusInternalServerError {
		s.log.Error("request failed", logger.F("path", c.FullPath()), logger.Err(err))
	}
	c.AbortWithStatusJSON(resp.Code, resp)
}
