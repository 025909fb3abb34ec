package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-booking-api/internal/dto"
	"github.com/noah-isme/lms-booking-api/internal/models"
	appErrors "github.com/noah-isme/lms-booking-api/pkg/errors"
	"github.com/noah-isme/lms-booking-api/pkg/response"
)

type availabilityService interface {
	IsAvailable(ctx context.Context, teacherID string, at time.Time) (bool, error)
	List(ctx context.Context, teacherID string, claims *models.JWTClaims) ([]models.TeacherAvailability, error)
	Create(ctx context.Context, teacherID string, req dto.AvailabilityRequest, claims *models.JWTClaims) (*models.TeacherAvailability, error)
	Update(ctx context.Context, id string, req dto.AvailabilityRequest, claims *models.JWTClaims) (*models.TeacherAvailability, error)
	Delete(ctx context.Context, id string, claims *models.JWTClaims) error
}

// AvailabilityHandler exposes teacher availability endpoints.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler builds an availability handler.
func NewAvailabilityHandler(service availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// List godoc
// @Summary List a teacher's weekly availability
// @Tags Availability
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	windows, err := h.service.List(c.Request.Context(), c.Param("teacherId"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// Create godoc
// @Summary Add a weekly availability window
// @Tags Availability
// @Accept json
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param payload body dto.AvailabilityRequest true "Window"
// @Success 201 {object} response.Envelope
// @Router /teachers/{teacherId}/availability [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req dto.AvailabilityRequest
	if !bindJSON(c, &req, "invalid availability payload") {
		return
	}
	window, err := h.service.Create(c.Request.Context(), c.Param("teacherId"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, window)
}

// Update godoc
// @Summary Replace an availability window
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Window ID"
// @Param payload body dto.AvailabilityRequest true "Window"
// @Success 200 {object} response.Envelope
// @Router /availability/{id} [put]
func (h *AvailabilityHandler) Update(c *gin.Context) {
	var req dto.AvailabilityRequest
	if !bindJSON(c, &req, "invalid availability payload") {
		return
	}
	window, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, window, nil)
}

// Delete godoc
// @Summary Deactivate an availability window
// @Tags Availability
// @Param id path string true "Window ID"
// @Success 204
// @Router /availability/{id} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Check godoc
// @Summary Check whether a teacher accepts a class starting at an instant
// @Tags Availability
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param at query string true "Class start (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/availability/check [get]
func (h *AvailabilityHandler) Check(c *gin.Context) {
	raw := c.Query("at")
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "at must be an RFC3339 timestamp"))
		return
	}
	teacherID := c.Param("teacherId")
	available, err := h.service.IsAvailable(c.Request.Context(), teacherID, at)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.AvailabilityCheckResponse{TeacherID: teacherID, At: at.UTC().Format(time.RFC3339), Available: available}, nil)
}
