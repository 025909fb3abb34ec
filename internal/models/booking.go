package models

import "time"

// BookingStatus enumerates the lifecycle states of a class booking.
type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "SCHEDULED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusNoShow    BookingStatus = "NO_SHOW"
)

// SeatHoldingStatuses are the statuses that occupy a seat in a class.
var SeatHoldingStatuses = []BookingStatus{BookingStatusScheduled, BookingStatusCompleted}

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusScheduled, BookingStatusCancelled, BookingStatusCompleted, BookingStatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCancelled || s == BookingStatusCompleted || s == BookingStatusNoShow
}

// CanTransitionTo enforces SCHEDULED -> {CANCELLED, COMPLETED, NO_SHOW}.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	return s == BookingStatusScheduled && next.Terminal()
}

// Booking is one scheduled or resolved class instance.
type Booking struct {
	ID              string        `db:"id" json:"id"`
	StudentID       string        `db:"student_id" json:"student_id"`
	TeacherID       string        `db:"teacher_id" json:"teacher_id"`
	TopicID         string        `db:"topic_id" json:"topic_id"`
	ScheduledAt     time.Time     `db:"scheduled_at" json:"scheduled_at"`
	Status          BookingStatus `db:"status" json:"status"`
	CalendarEventID *string       `db:"calendar_event_id" json:"calendar_event_id"`
	MeetingLink     *string       `db:"meeting_link" json:"meeting_link"`
	CancelledAt     *time.Time    `db:"cancelled_at" json:"cancelled_at,omitempty"`
	AttendedAt      *time.Time    `db:"attended_at" json:"attended_at,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingFilter narrows booking listings.
type BookingFilter struct {
	StudentID string
	TeacherID string
	Status    BookingStatus
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// StatusChange describes a conditional lifecycle update.
type StatusChange struct {
	BookingID   string
	To          BookingStatus
	At          time.Time
	CancelledAt *time.Time
	AttendedAt  *time.Time
}
