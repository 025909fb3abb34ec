package models

import "time"

// RejectionReason identifies the admission rule a booking request failed.
type RejectionReason string

const (
	RejectInsufficientLeadTime RejectionReason = "INSUFFICIENT_LEAD_TIME"
	RejectNoAvailableCredits   RejectionReason = "NO_AVAILABLE_CREDITS"
	RejectClassFull            RejectionReason = "CLASS_FULL"
	RejectTeacherUnavailable   RejectionReason = "TEACHER_UNAVAILABLE"
)

var rejectionMessages = map[RejectionReason]string{
	RejectInsufficientLeadTime: "classes must be booked at least one hour in advance",
	RejectNoAvailableCredits:   "no active lesson package with remaining lessons",
	RejectClassFull:            "this class is already full",
	RejectTeacherUnavailable:   "the teacher is not available at this time",
}

// Rejection is an expected, recoverable refusal of a booking request.
type Rejection struct {
	Reason  RejectionReason `json:"reason"`
	Message string          `json:"message"`
}

// Reject builds a rejection with the default client-facing message.
func Reject(reason RejectionReason) *Rejection {
	return &Rejection{Reason: reason, Message: rejectionMessages[reason]}
}

// AdmissionRequest is the tuple evaluated by the admission rules.
type AdmissionRequest struct {
	StudentID   string
	TeacherID   string
	TopicID     string
	ScheduledAt time.Time
}

// Decision is the result of admission. Exactly one of Package and Rejection is set.
type Decision struct {
	Request   AdmissionRequest
	Package   *LessonPackage
	Rejection *Rejection
	DecidedAt time.Time
}

// Accepted reports whether every rule passed.
func (d *Decision) Accepted() bool {
	return d != nil && d.Rejection == nil && d.Package != nil
}

// Outcome is what a booking request produces: either a booking or a rejection.
type Outcome struct {
	Booking   *Booking
	Rejection *Rejection
}
