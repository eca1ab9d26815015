package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unipath/unipath-api/internal/middleware"
	"github.com/unipath/unipath-api/internal/models"
	"github.com/unipath/unipath-api/internal/service"
	appErrors "github.com/unipath/unipath-api/pkg/errors"
	"github.com/unipath/unipath-api/pkg/response"
)

type matchOrchestrator interface {
	GenerateMatches(ctx context.Context, userID string) ([]service.GeneratedMatch, error)
	GetMatches(ctx context.Context, userID string) ([]models.MatchDetail, bool, error)
	RegenerateAsync(userID string) error
	DeleteMatch(ctx context.Context, userID, universityID string) error
	DeleteAll(ctx context.Context, userID string) error
}

type recommendationExporter interface {
	Recommendations(ctx context.Context, userID, format string) (*service.ExportFile, error)
	Download(token string) (*service.ExportFile, error)
}

// RecommendationHandler exposes match generation and retrieval endpoints.
type RecommendationHandler struct {
	matches matchOrchestrator
	exports recommendationExporter
}

// NewRecommendationHandler constructs RecommendationHandler.
func NewRecommendationHandler(matches matchOrchestrator, exports recommendationExporter) *RecommendationHandler {
	return &RecommendationHandler{matches: matches, exports: exports}
}

// Generate godoc
// @Summary Generate recommendations for a student
// @Tags Recommendations
// @Produce json
// @Security BearerAuth
// @Param async query bool false "Run generation in the background"
// @Success 200 {object} response.Envelope
// @Router /recommendations/generate [post]
func (h *RecommendationHandler) Generate(c *gin.Context) {
	userID := targetUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if c.Query("async") == "true" {
		if err := h.matches.RegenerateAsync(userID); err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusAccepted, gin.H{"status": "queued"}, nil)
		return
	}

	results, err := h.matches.GenerateMatches(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

// List godoc
// @Summary List saved recommendations, best match first
// @Tags Recommendations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /recommendations [get]
func (h *RecommendationHandler) List(c *gin.Context) {
	userID := targetUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	matches, cached, err := h.matches.GetMatches(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, matches, nil, middleware.ExtractMeta(c))
}

// Delete godoc
// @Summary Delete one saved recommendation
// @Tags Recommendations
// @Produce json
// @Security BearerAuth
// @Param universityId path string true "University ID"
// @Success 204
// @Router /recommendations/{universityId} [delete]
func (h *RecommendationHandler) Delete(c *gin.Context) {
	userID := targetUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.matches.DeleteMatch(c.Request.Context(), userID, c.Param("universityId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteAll godoc
// @Summary Delete every saved recommendation for the user
// @Tags Recommendations
// @Produce json
// @Security BearerAuth
// @Success 204
// @Router /recommendations [delete]
func (h *RecommendationHandler) DeleteAll(c *gin.Context) {
	userID := targetUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.matches.DeleteAll(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export saved recommendations as a document
// @Tags Recommendations
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /recommendations/export [get]
func (h *RecommendationHandler) Export(c *gin.Context) {
	userID := targetUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	file, err := h.exports.Recommendations(c.Request.Context(), userID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if file.DownloadToken != "" {
		c.Header("X-Download-Token", file.DownloadToken)
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}

// Download godoc
// @Summary Re-download an archived export by signed token
// @Tags Recommendations
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/{token} [get]
func (h *RecommendationHandler) Download(c *gin.Context) {
	file, err := h.exports.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.FileName+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
