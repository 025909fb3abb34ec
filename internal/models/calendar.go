package models

import "time"

// CalendarAccount is a teacher's linked external calendar.
type CalendarAccount struct {
	TeacherID    string    `db:"teacher_id" json:"teacher_id"`
	Provider     string    `db:"provider" json:"provider"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	CalendarID   string    `db:"calendar_id" json:"calendar_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CalendarEventRequest carries everything needed to create the class event and meeting.
type CalendarEventRequest struct {
	Title        string
	Description  string
	StartTime    time.Time
	EndTime      time.Time
	StudentEmail string
	TeacherEmail string
	TopicName    string
	StudentLevel string
}

// CalendarEvent is what the calendar provider returns. MeetLink may be empty.
type CalendarEvent struct {
	EventID  string
	MeetLink string
}

// BookingParticipants groups the rows needed to describe a booking to the calendar.
type BookingParticipants struct {
	Student User
	Teacher User
	Topic   Topic
}
