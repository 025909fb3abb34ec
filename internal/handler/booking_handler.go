package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-booking-api/internal/dto"
	"github.com/noah-isme/lms-booking-api/internal/models"
	"github.com/noah-isme/lms-booking-api/pkg/response"
)

type bookingService interface {
	Create(ctx context.Context, req dto.CreateBookingRequest, claims *models.JWTClaims) (*models.Outcome, error)
	Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Booking, error)
	List(ctx context.Context, query dto.BookingListQuery, claims *models.JWTClaims) ([]models.Booking, *models.Pagination, error)
	Cancel(ctx context.Context, id string, claims *models.JWTClaims) (*models.Booking, error)
	Complete(ctx context.Context, id string, claims *models.JWTClaims) (*models.Booking, error)
	MarkNoShow(ctx context.Context, id string, claims *models.JWTClaims) (*models.Booking, error)
}

// BookingHandler exposes class booking endpoints.
type BookingHandler struct {
	service bookingService
}

// NewBookingHandler builds a booking handler.
func NewBookingHandler(service bookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// Create godoc
// @Summary Book a class
// @Description Reserves a seat in the teacher's class and consumes one lesson from the student's package.
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req dto.CreateBookingRequest
	if !bindJSON(c, &req, "invalid booking payload") {
		return
	}
	outcome, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if outcome.Rejection != nil {
		response.Rejection(c, outcome.Rejection)
		return
	}
	response.Created(c, dto.NewBookingResponse(outcome.Booking))
}

// Get godoc
// @Summary Get a booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewBookingResponse(booking), nil)
}

// List godoc
// @Summary List the caller's bookings
// @Tags Bookings
// @Produce json
// @Param status query string false "Status filter"
// @Param from query string false "Earliest start (RFC3339)"
// @Param to query string false "Latest start, exclusive (RFC3339)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	var query dto.BookingListQuery
	if !bindQuery(c, &query, "invalid query parameters") {
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewBookingResponses(items), pagination)
}

// Cancel godoc
// @Summary Cancel a scheduled booking
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

// Complete godoc
// @Summary Mark a booking as attended
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/complete [post]
func (h *BookingHandler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// NoShow godoc
// @Summary Mark a booking as a no-show
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/no-show [post]
func (h *BookingHandler) NoShow(c *gin.Context) {
	h.transition(c, h.service.MarkNoShow)
}

func (h *BookingHandler) transition(c *gin.Context, apply func(context.Context, string, *models.JWTClaims) (*models.Booking, error)) {
	booking, err := apply(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewBookingResponse(booking), nil)
}
