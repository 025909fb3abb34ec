package models

import (
	"fmt"
	"time"
)

// ClockLayout is the zero-padded wall-clock layout used for availability boundaries.
const ClockLayout = "15:04"

// TeacherAvailability is one recurring weekly window in which a teacher accepts classes.
// StartTime and EndTime are local wall-clock values; DayOfWeek follows time.Weekday (0 = Sunday).
type TeacherAvailability struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the window admits a class starting at the given local day and clock.
// The interval is half-open: a class starting exactly at EndTime is outside.
func (a TeacherAvailability) Covers(day time.Weekday, clock string) bool {
	if !a.IsActive || a.DayOfWeek != int(day) {
		return false
	}
	return a.StartTime <= clock && clock < a.EndTime
}

// Validate checks the window shape.
func (a TeacherAvailability) Validate() error {
	if a.DayOfWeek < 0 || a.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week must be between 0 and 6")
	}
	start, err := parseClock(a.StartTime)
	if err != nil {
		return fmt.Errorf("start_time must be HH:MM")
	}
	end, err := parseClock(a.EndTime)
	if err != nil {
		return fmt.Errorf("end_time must be HH:MM")
	}
	if !start.Before(end) {
		return fmt.Errorf("start_time must be before end_time")
	}
	return nil
}

// parseClock only accepts zero-padded values so that string comparison matches clock order.
func parseClock(value string) (time.Time, error) {
	if len(value) != len(ClockLayout) {
		return time.Time{}, fmt.Errorf("invalid clock value %q", value)
	}
	return time.Parse(ClockLayout, value)
}

// LocalSlot returns the weekday and HH:MM of at in loc.
func LocalSlot(at time.Time, loc *time.Location) (time.Weekday, string) {
	if loc == nil {
		loc = time.Local
	}
	local := at.In(loc)
	return local.Weekday(), local.Format(ClockLayout)
}

// WindowsCover reports whether any active window admits a class starting at the instant at.
func WindowsCover(windows []TeacherAvailability, at time.Time, loc *time.Location) bool {
	day, clock := LocalSlot(at, loc)
	for _, w := range windows {
		if w.Covers(day, clock) {
			return true
		}
	}
	return false
}
