package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-booking-api/internal/models"
)

var availabilityRowColumns = []string{"id", "teacher_id", "day_of_week", "start_time", "end_time", "is_active", "created_at", "updated_at"}

func TestListActiveByTeacher(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(availabilityRowColumns).
		AddRow("a1", "t1", 1, "09:00", "18:00", true, now, now)
	mock.ExpectQuery("WHERE teacher_id = \\$1 AND is_active = TRUE").
		WithArgs("t1").
		WillReturnRows(rows)

	windows, err := repo.ListActiveByTeacher(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "09:00", windows[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAvailability(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec("INSERT INTO teacher_availability").WillReturnResult(sqlmock.NewResult(0, 1))

	window := &models.TeacherAvailability{TeacherID: "t1", DayOfWeek: 2, StartTime: "08:00", EndTime: "12:00", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), window))
	assert.NotEmpty(t, window.ID)
	assert.False(t, window.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateMissingAvailability(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec("UPDATE teacher_availability SET is_active = FALSE").
		WithArgs("a1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), "a1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
