package dto

import (
	"time"

	"github.com/noah-isme/lms-booking-api/internal/models"
)

// CreateBookingRequest is the client payload for reserving a class seat.
type CreateBookingRequest struct {
	TeacherID   string `json:"teacherId" validate:"required,uuid"`
	TopicID     string `json:"topicId" validate:"required,uuid"`
	ScheduledAt string `json:"scheduledAt" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// BookingResponse is the client view of a booking.
type BookingResponse struct {
	ID          string               `json:"id"`
	StudentID   string               `json:"studentId"`
	TeacherID   string               `json:"teacherId"`
	TopicID     string               `json:"topicId"`
	ScheduledAt time.Time            `json:"scheduledAt"`
	Status      models.BookingStatus `json:"status"`
	MeetingLink *string              `json:"meetingLink"`
	CancelledAt *time.Time           `json:"cancelledAt,omitempty"`
	AttendedAt  *time.Time           `json:"attendedAt,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// NewBookingResponse maps a stored booking to its response shape.
func NewBookingResponse(b *models.Booking) *BookingResponse {
	if b == nil {
		return nil
	}
	return &BookingResponse{
		ID:          b.ID,
		StudentID:   b.StudentID,
		TeacherID:   b.TeacherID,
		TopicID:     b.TopicID,
		ScheduledAt: b.ScheduledAt,
		Status:      b.Status,
		MeetingLink: b.MeetingLink,
		CancelledAt: b.CancelledAt,
		AttendedAt:  b.AttendedAt,
		CreatedAt:   b.CreatedAt,
	}
}

// NewBookingResponses maps a slice of bookings.
func NewBookingResponses(items []models.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(items))
	for i := range items {
		out = append(out, *NewBookingResponse(&items[i]))
	}
	return out
}

// BookingListQuery holds list filters bound from the query string.
type BookingListQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=SCHEDULED CANCELLED COMPLETED NO_SHOW"`
	From     string `form:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To       string `form:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=200"`
}
