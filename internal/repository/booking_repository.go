package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-booking-api/internal/models"
)

var (
	// ErrSlotFull is returned by Reserve when the class reached capacity before the insert.
	ErrSlotFull = errors.New("class slot is full")
	// ErrPackageExhausted is returned by Reserve when the conditional decrement matched no package.
	ErrPackageExhausted = errors.New("lesson package has no remaining lessons")
)

const bookingColumns = `id, student_id, teacher_id, topic_id, scheduled_at, status, calendar_event_id, meeting_link, cancelled_at, attended_at, created_at, updated_at`

// BookingRepository is the single access point for booking and package-consumption SQL.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs a booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ReserveParams carries an admitted request into the reservation transaction. PackageID is the package
// admission selected; the student is taken from Booking.StudentID.
type ReserveParams struct {
	Booking   *models.Booking
	PackageID string
	Capacity  int
	Now       time.Time
}

// FindActivePackage returns the student's active package with the earliest expiry, or nil.
func (r *BookingRepository) FindActivePackage(ctx context.Context, studentID string, now time.Time) (*models.LessonPackage, error) {
	const query = `SELECT id, student_id, total_lessons, used_lessons, remaining_lessons, valid_from, valid_until, created_at, updated_at
FROM lesson_packages
WHERE student_id = $1 AND remaining_lessons > 0 AND valid_until >= $2
ORDER BY valid_until ASC, created_at ASC
LIMIT 1`
	var pkg models.LessonPackage
	if err := r.db.GetContext(ctx, &pkg, query, studentID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active package: %w", err)
	}
	return &pkg, nil
}

// CountBookings counts seat-holding bookings for the exact teacher/instant pair.
func (r *BookingRepository) CountBookings(ctx context.Context, teacherID string, scheduledAt time.Time) (int, error) {
	count, err := countSeats(ctx, r.db, teacherID, scheduledAt)
	if err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}
	return count, nil
}

// Reserve consumes one lesson and inserts the booking in a single transaction.
// The slot is serialised with a transaction-scoped advisory lock and the seat count is re-checked under it.
func (r *BookingRepository) Reserve(ctx context.Context, params ReserveParams) (booking *models.Booking, err error) {
	b := params.Booking
	if b == nil {
		return nil, fmt.Errorf("reserve: booking is required")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reservation transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockSlot(ctx, tx, b.TeacherID, b.ScheduledAt); err != nil {
		return nil, fmt.Errorf("lock class slot: %w", err)
	}

	seats, err := countSeats(ctx, tx, b.TeacherID, b.ScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("recount class seats: %w", err)
	}
	if seats >= params.Capacity {
		err = ErrSlotFull
		return nil, err
	}

	if err = consumeLesson(ctx, tx, params.PackageID, b.StudentID, params.Now); err != nil {
		return nil, err
	}

	if err = insertBooking(ctx, tx, b, params.Now); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reservation: %w", err)
	}
	return b, nil
}

func lockSlot(ctx context.Context, tx *sqlx.Tx, teacherID string, scheduledAt time.Time) error {
	const query = `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`
	_, err := tx.ExecContext(ctx, query, teacherID, scheduledAt.UTC().Format(time.RFC3339Nano))
	return err
}

func countSeats(ctx context.Context, q sqlx.QueryerContext, teacherID string, scheduledAt time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM bookings WHERE teacher_id = $1 AND scheduled_at = $2 AND status = ANY($3)`
	statuses := make([]string, len(models.SeatHoldingStatuses))
	for i, s := range models.SeatHoldingStatuses {
		statuses[i] = string(s)
	}
	var count int
	if err := sqlx.GetContext(ctx, q, &count, query, teacherID, scheduledAt, pq.Array(statuses)); err != nil {
		return 0, err
	}
	return count, nil
}

// consumeLesson decrements the admitted package. When a concurrent booking used it up in the meantime,
// the student's earliest-expiring package that is still active is locked and decremented instead.
func consumeLesson(ctx context.Context, tx *sqlx.Tx, packageID, studentID string, now time.Time) error {
	ok, err := decrementPackage(ctx, tx, packageID, now)
	if err != nil || ok {
		return err
	}

	fallbackID, err := lockEarliestPackage(ctx, tx, studentID, now)
	if err != nil {
		return err
	}
	if fallbackID == "" {
		return ErrPackageExhausted
	}
	ok, err = decrementPackage(ctx, tx, fallbackID, now)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPackageExhausted
	}
	return nil
}

func lockEarliestPackage(ctx context.Context, tx *sqlx.Tx, studentID string, now time.Time) (string, error) {
	const query = `SELECT id FROM lesson_packages
WHERE student_id = $1 AND remaining_lessons > 0 AND valid_until >= $2
ORDER BY valid_until ASC, created_at ASC
LIMIT 1
FOR UPDATE`
	var id string
	if err := tx.GetContext(ctx, &id, query, studentID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("select fallback lesson package: %w", err)
	}
	return id, nil
}

func decrementPackage(ctx context.Context, tx *sqlx.Tx, packageID string, now time.Time) (bool, error) {
	const query = `UPDATE lesson_packages
SET used_lessons = used_lessons + 1, remaining_lessons = remaining_lessons - 1, updated_at = $3
WHERE id = $1 AND remaining_lessons > 0 AND valid_until >= $2`
	res, err := tx.ExecContext(ctx, query, packageID, now, now)
	if err != nil {
		return false, fmt.Errorf("decrement lesson package: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("decrement lesson package: %w", err)
	}
	return affected > 0, nil
}

func insertBooking(ctx context.Context, tx *sqlx.Tx, b *models.Booking, now time.Time) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = models.BookingStatusScheduled
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	const query = `INSERT INTO bookings (id, student_id, teacher_id, topic_id, scheduled_at, status, calendar_event_id, meeting_link, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	if _, err := tx.ExecContext(ctx, query, b.ID, b.StudentID, b.TeacherID, b.TopicID, b.ScheduledAt, b.Status,
		b.CalendarEventID, b.MeetingLink, b.CreatedAt, b.UpdatedAt); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// FindByID fetches a booking.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// List returns bookings matching the filter along with the total count.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.TeacherID != "" {
		args = append(args, filter.TeacherID)
		where = append(where, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("scheduled_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("scheduled_at < $%d", len(args)))
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE %s ORDER BY scheduled_at DESC LIMIT %d OFFSET %d`, bookingColumns, whereClause, size, offset)
	var items []models.Booking
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) FROM bookings WHERE %s", whereClause), args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}
	return items, total, nil
}

// UpdateStatus applies a lifecycle transition only while the booking is still SCHEDULED.
// It reports false when no row was in a transitionable state.
func (r *BookingRepository) UpdateStatus(ctx context.Context, change models.StatusChange) (bool, error) {
	const query = `UPDATE bookings
SET status = $2, cancelled_at = COALESCE($3, cancelled_at), attended_at = COALESCE($4, attended_at), updated_at = $5
WHERE id = $1 AND status = 'SCHEDULED'`
	res, err := r.db.ExecContext(ctx, query, change.BookingID, change.To, change.CancelledAt, change.AttendedAt, change.At)
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update booking status: %w", err)
	}
	return affected > 0, nil
}

// UpdateCalendar stores the external event reference on a booking.
func (r *BookingRepository) UpdateCalendar(ctx context.Context, bookingID, eventID string, meetingLink *string) error {
	const query = `UPDATE bookings SET calendar_event_id = $2, meeting_link = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, bookingID, eventID, meetingLink, time.Now().UTC()); err != nil {
		return fmt.Errorf("update booking calendar: %w", err)
	}
	return nil
}

// MarkNoShows moves SCHEDULED bookings that started before cutoff without attendance to NO_SHOW.
func (r *BookingRepository) MarkNoShows(ctx context.Context, cutoff, now time.Time) (int64, error) {
	const query = `UPDATE bookings SET status = 'NO_SHOW', updated_at = $2
WHERE status = 'SCHEDULED' AND attended_at IS NULL AND scheduled_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("mark no-show bookings: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark no-show bookings: %w", err)
	}
	return affected, nil
}
