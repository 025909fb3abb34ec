package models

import "time"

// LessonPackage is a purchased block of lesson credits.
// RemainingLessons is denormalised and always equals TotalLessons - UsedLessons.
type LessonPackage struct {
	ID               string    `db:"id" json:"id"`
	StudentID        string    `db:"student_id" json:"student_id"`
	TotalLessons     int       `db:"total_lessons" json:"total_lessons"`
	UsedLessons      int       `db:"used_lessons" json:"used_lessons"`
	RemainingLessons int       `db:"remaining_lessons" json:"remaining_lessons"`
	ValidFrom        time.Time `db:"valid_from" json:"valid_from"`
	ValidUntil       time.Time `db:"valid_until" json:"valid_until"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the package can pay for a class at now.
func (p LessonPackage) IsActive(now time.Time) bool {
	return !now.After(p.ValidUntil) && p.RemainingLessons > 0
}

// EarliestExpiring picks the active package that expires first, or nil when none is active.
func EarliestExpiring(packages []LessonPackage, now time.Time) *LessonPackage {
	var selected *LessonPackage
	for i := range packages {
		p := &packages[i]
		if !p.IsActive(now) {
			continue
		}
		if selected == nil || p.ValidUntil.Before(selected.ValidUntil) {
			selected = p
		}
	}
	return selected
}
