package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-booking-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindUserByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "role", "level", "active", "created_at", "updated_at"}).
		AddRow("s1", "student@example.com", "Student", string(models.RoleStudent), "B1", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, full_name, role, level, active, created_at, updated_at FROM users WHERE id = $1 LIMIT 1")).
		WithArgs("s1").
		WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "student@example.com", user.Email)
	require.NotNil(t, user.Level)
	assert.Equal(t, "B1", *user.Level)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindTopicNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTopicRepository(db)

	mock.ExpectQuery("FROM topics").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	topic, err := repo.FindByID(context.Background(), "missing")
	assert.Nil(t, topic)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCalendarAccountMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCalendarAccountRepository(db)

	mock.ExpectQuery("FROM teacher_calendar_accounts").WithArgs("t1").WillReturnError(sql.ErrNoRows)

	account, err := repo.FindByTeacher(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, account)
	assert.NoError(t, mock.ExpectationsWereMet())
}
