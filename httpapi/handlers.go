package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jonwraymond/regenops/consistency"
	"github.com/jonwraymond/regenops/regen"
	"github.com/jonwraymond/regenops/story"
	"github.com/jonwraymond/regenops/validate"
)

// RegenerateRequest is the body of POST /v1/regenerate and /v1/validate.
type RegenerateRequest struct {
	validate.Request
	OriginalStory *story.Document `json:"originalStory,omitempty"`
}

// RegenerateResponse is the body of a successful regeneration.
type RegenerateResponse struct {
	Success            bool                `json:"success"`
	UpdatedStory       *story.Document     `json:"updatedStory"`
	GenerationTimeMs   int64               `json:"generationTime"`
	ValidationWarnings []string            `json:"validationWarnings"`
	ConsistencyReport  *consistency.Report `json:"consistencyReport"`
	Metadata           validate.Metadata   `json:"metadata"`
	Message            string              `json:"message"`
	RequestID          string              `json:"requestId"`
	CacheHit           bool                `json:"cacheHit"`
}

// ConsistencyCheckRequest is the body of POST /v1/consistency/check.
type ConsistencyCheckRequest struct {
	StoryID        string       `json:"storyId"`
	ModifiedParams story.Params `json:"modifiedParams"`
}

func (s *Server) regenerate(c *gin.Context) {
	if s.deps.Service == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: msgUnavailable})
		return
	}
	var body RegenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgBadBody, Details: err.Error()})
		return
	}

	out, err := s.deps.Service.Regenerate(c.Request.Context(), body.Request, body.OriginalStory)
	if err != nil {
		s.regenerateError(c, err)
		return
	}

	c.JSON(http.StatusOK, RegenerateResponse{
		Success:            true,
		UpdatedStory:       out.Story,
		GenerationTimeMs:   out.Duration.Milliseconds(),
		ValidationWarnings: nonNil(out.Warnings),
		ConsistencyReport:  out.Consistency,
		Metadata:           out.Metadata,
		Message:            out.Message(),
		RequestID:          out.RequestID,
		CacheHit:           out.CacheHit,
	})
}

func (s *Server) regenerateError(c *gin.Context, err error) {
	if errors.Is(err, regen.ErrNilStory) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgStoryMissing})
		return
	}

	var verr *regen.ValidationError
	if errors.As(err, &verr) {
		status, msg := http.StatusBadRequest, msgValidationFailed
		if verr.RateLimited() {
			status, msg = http.StatusTooManyRequests, msgRateLimited
		}
		c.JSON(status, ErrorResponse{
			Error:            msg,
			ValidationErrors: verr.Result.Errors,
			Warnings:         verr.Result.Warnings,
		})
		return
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msgRegenerateFailed, Details: err.Error()})
}

func (s *Server) capabilities(c *gin.Context) {
	if s.deps.Service == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: msgUnavailable})
		return
	}
	c.JSON(http.StatusOK, s.deps.Service.Describe())
}

// validate answers with the verdict itself; a rejected request is still a
// 200.
func (s *Server) validate(c *gin.Context) {
	var body RegenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgBadBody, Details: err.Error()})
		return
	}
	if body.OriginalStory == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgStoryMissing})
		return
	}
	c.JSON(http.StatusOK, s.deps.Validator.ValidateRequest(c.Request.Context(), body.Request, body.OriginalStory))
}

func (s *Server) checkConsistency(c *gin.Context) {
	var body ConsistencyCheckRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgBadBody, Details: err.Error()})
		return
	}
	if strings.TrimSpace(body.StoryID) == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgStoryIDRequired})
		return
	}
	c.JSON(http.StatusOK, s.deps.Tracker.CheckConsistency(c.Request.Context(), body.StoryID, body.ModifiedParams))
}

func (s *Server) trackCharacter(c *gin.Context) {
	var doc story.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgBadBody, Details: err.Error()})
		return
	}
	p, err := s.deps.Tracker.TrackCharacter(c.Request.Context(), &doc)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) profile(c *gin.Context) {
	p, ok := s.deps.Tracker.Profile(c.Param("storyId"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgProfileNotFound})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) consistencyStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Tracker.Stats())
}

func (s *Server) clearProfiles(c *gin.Context) {
	s.deps.Tracker.ClearProfiles(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (s *Server) cacheStats(c *gin.Context) {
	if s.deps.Cache == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgCacheDisabled})
		return
	}
	c.JSON(http.StatusOK, s.deps.Cache.Stats())
}

func (s *Server) invalidateStory(c *gin.Context) {
	if s.deps.Cache == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgCacheDisabled})
		return
	}
	s.deps.Cache.InvalidateStory(c.Request.Context(), c.Param("storyId"))
	c.Status(http.StatusNoContent)
}

func (s *Server) clearCache(c *gin.Context) {
	if s.deps.Cache == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgCacheDisabled})
		return
	}
	s.deps.Cache.Clear(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
