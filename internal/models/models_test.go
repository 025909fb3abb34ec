package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	assert.True(t, BookingStatusScheduled.CanTransitionTo(BookingStatusCancelled))
	assert.True(t, BookingStatusScheduled.CanTransitionTo(BookingStatusCompleted))
	assert.True(t, BookingStatusScheduled.CanTransitionTo(BookingStatusNoShow))
	assert.False(t, BookingStatusScheduled.CanTransitionTo(BookingStatusScheduled))

	for _, terminal := range []BookingStatus{BookingStatusCancelled, BookingStatusCompleted, BookingStatusNoShow} {
		for _, next := range []BookingStatus{BookingStatusScheduled, BookingStatusCancelled, BookingStatusCompleted, BookingStatusNoShow} {
			assert.False(t, terminal.CanTransitionTo(next), "%s -> %s", terminal, next)
		}
	}
	assert.False(t, BookingStatus("PENDING").Valid())
}

func TestWindowsCoverHalfOpen(t *testing.T) {
	loc := time.UTC
	windows := []TeacherAvailability{{DayOfWeek: int(time.Monday), StartTime: "09:00", EndTime: "18:00", IsActive: true}}
	monday := time.Date(2026, 10, 19, 0, 0, 0, 0, loc)

	assert.True(t, WindowsCover(windows, monday.Add(9*time.Hour), loc))
	assert.True(t, WindowsCover(windows, monday.Add(17*time.Hour+59*time.Minute), loc))
	assert.False(t, WindowsCover(windows, monday.Add(18*time.Hour), loc))
	assert.False(t, WindowsCover(windows, monday.Add(8*time.Hour+59*time.Minute), loc))
	assert.False(t, WindowsCover(windows, monday.Add(24*time.Hour+10*time.Hour), loc))
}

func TestWindowsCoverIgnoresInactive(t *testing.T) {
	windows := []TeacherAvailability{{DayOfWeek: int(time.Monday), StartTime: "09:00", EndTime: "18:00", IsActive: false}}
	at := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	assert.False(t, WindowsCover(windows, at, time.UTC))
}

func TestWindowsCoverUsesLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	windows := []TeacherAvailability{{DayOfWeek: int(time.Tuesday), StartTime: "01:00", EndTime: "02:00", IsActive: true}}
	// Monday 18:30 UTC is Tuesday 01:30 in UTC+7.
	at := time.Date(2026, 10, 19, 18, 30, 0, 0, time.UTC)
	assert.True(t, WindowsCover(windows, at, jakarta))
	assert.False(t, WindowsCover(windows, at, time.UTC))
}

// Exhaustive check over a week at five minute steps against a direct restatement of the rule.
func TestWindowsCoverMatchesDefinition(t *testing.T) {
	windows := []TeacherAvailability{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", IsActive: true},
		{DayOfWeek: 1, StartTime: "14:30", EndTime: "18:00", IsActive: true},
		{DayOfWeek: 3, StartTime: "00:00", EndTime: "23:59", IsActive: true},
		{DayOfWeek: 5, StartTime: "10:00", EndTime: "11:00", IsActive: false},
	}
	start := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	for at := start; at.Before(start.Add(7 * 24 * time.Hour)); at = at.Add(5 * time.Minute) {
		clock := at.Format(ClockLayout)
		want := false
		for _, w := range windows {
			if w.IsActive && w.DayOfWeek == int(at.Weekday()) && w.StartTime <= clock && clock < w.EndTime {
				want = true
			}
		}
		assert.Equal(t, want, WindowsCover(windows, at, time.UTC), at.String())
	}
}

func TestAvailabilityValidate(t *testing.T) {
	assert.NoError(t, TeacherAvailability{DayOfWeek: 0, StartTime: "08:00", EndTime: "09:30"}.Validate())
	assert.Error(t, TeacherAvailability{DayOfWeek: 7, StartTime: "08:00", EndTime: "09:30"}.Validate())
	assert.Error(t, TeacherAvailability{DayOfWeek: 1, StartTime: "9:00", EndTime: "09:30"}.Validate())
	assert.Error(t, TeacherAvailability{DayOfWeek: 1, StartTime: "10:00", EndTime: "10:00"}.Validate())
	assert.Error(t, TeacherAvailability{DayOfWeek: 1, StartTime: "11:00", EndTime: "10:00"}.Validate())
}

func TestEarliestExpiring(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	packages := []LessonPackage{
		{ID: "late", RemainingLessons: 3, ValidUntil: now.AddDate(0, 6, 0)},
		{ID: "expired", RemainingLessons: 5, ValidUntil: now.Add(-time.Hour)},
		{ID: "empty", RemainingLessons: 0, ValidUntil: now.AddDate(0, 0, 1)},
		{ID: "soon", RemainingLessons: 1, ValidUntil: now.AddDate(0, 1, 0)},
	}
	selected := EarliestExpiring(packages, now)
	if assert.NotNil(t, selected) {
		assert.Equal(t, "soon", selected.ID)
	}
	assert.Nil(t, EarliestExpiring(packages[1:3], now))
}

func TestPackageActiveOnExpiryInstant(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	p := LessonPackage{RemainingLessons: 1, ValidUntil: now}
	assert.True(t, p.IsActive(now))
	assert.False(t, p.IsActive(now.Add(time.Nanosecond)))
}

func TestDecisionAccepted(t *testing.T) {
	assert.False(t, (*Decision)(nil).Accepted())
	assert.False(t, (&Decision{Rejection: Reject(RejectClassFull)}).Accepted())
	assert.True(t, (&Decision{Package: &LessonPackage{ID: "p"}}).Accepted())
	assert.NotEmpty(t, Reject(RejectTeacherUnavailable).Message)
}
