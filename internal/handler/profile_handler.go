package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unipath/unipath-api/internal/service"
	appErrors "github.com/unipath/unipath-api/pkg/errors"
	"github.com/unipath/unipath-api/pkg/response"
)

// ProfileHandler exposes student profile endpoints.
type ProfileHandler struct {
	profiles *service.StudentProfileService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles *service.StudentProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Get godoc
// @Summary Get a student profile
// @Tags Profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /profiles/me [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := targetUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	profile, err := h.profiles.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// Upsert godoc
// @Summary Create or replace a student profile
// @Tags Profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.UpsertStudentProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Router /profiles/me [put]
func (h *ProfileHandler) Upsert(c *gin.Context) {
	userID := targetUserID(c)
	if userID == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpsertStudentProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	profile, err := h.profiles.Upsert(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
