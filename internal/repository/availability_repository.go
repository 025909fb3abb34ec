package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/lms-booking-api/internal/models"
)

const availabilityColumns = `id, teacher_id, day_of_week, start_time, end_time, is_active, created_at, updated_at`

// AvailabilityRepository persists teachers' weekly availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListActiveByTeacher returns the teacher's active windows.
func (r *AvailabilityRepository) ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM teacher_availability
WHERE teacher_id = $1 AND is_active = TRUE ORDER BY day_of_week, start_time`
	var windows []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &windows, query, teacherID); err != nil {
		return nil, fmt.Errorf("list active availability: %w", err)
	}
	return windows, nil
}

// ListByTeacher returns every window of the teacher, including deactivated ones.
func (r *AvailabilityRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM teacher_availability
WHERE teacher_id = $1 ORDER BY day_of_week, start_time`
	var windows []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &windows, query, teacherID); err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return windows, nil
}

// FindByID loads a window.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.TeacherAvailability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM teacher_availability WHERE id = $1`
	var window models.TeacherAvailability
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find availability: %w", err)
	}
	return &window, nil
}

// Create inserts a window, assigning id and timestamps when unset.
func (r *AvailabilityRepository) Create(ctx context.Context, window *models.TeacherAvailability) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	window.CreatedAt = now
	window.UpdatedAt = now
	const query = `INSERT INTO teacher_availability (id, teacher_id, day_of_week, start_time, end_time, is_active, created_at, updated_at)
VALUES (:id, :teacher_id, :day_of_week, :start_time, :end_time, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("create availability: %w", err)
	}
	return nil
}

// Update replaces the window's schedule and active flag.
func (r *AvailabilityRepository) Update(ctx context.Context, window *models.TeacherAvailability) error {
	window.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teacher_availability
SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, window)
	if err != nil {
		return fmt.Errorf("update availability: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Deactivate soft-deletes a window so it stops admitting classes.
func (r *AvailabilityRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE teacher_availability SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate availability: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
