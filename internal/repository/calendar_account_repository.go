package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-booking-api/internal/models"
)

// CalendarAccountRepository reads the calendars teachers have linked.
type CalendarAccountRepository struct {
	db *sqlx.DB
}

// NewCalendarAccountRepository constructs a calendar account repository.
func NewCalendarAccountRepository(db *sqlx.DB) *CalendarAccountRepository {
	return &CalendarAccountRepository{db: db}
}

// FindByTeacher returns the teacher's linked account, or nil when none is linked.
func (r *CalendarAccountRepository) FindByTeacher(ctx context.Context, teacherID string) (*models.CalendarAccount, error) {
	const query = `SELECT teacher_id, provider, refresh_token, calendar_id, created_at, updated_at
FROM teacher_calendar_accounts WHERE teacher_id = $1`
	var account models.CalendarAccount
	if err := r.db.GetContext(ctx, &account, query, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find calendar account: %w", err)
	}
	return &account, nil
}
