package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-booking-api/internal/models"
	"github.com/noah-isme/lms-booking-api/internal/repository"
	"github.com/noah-isme/lms-booking-api/pkg/database"
	appErrors "github.com/noah-isme/lms-booking-api/pkg/errors"
)

type reservationStore interface {
	Reserve(ctx context.Context, params repository.ReserveParams) (*models.Booking, error)
}

// ReservationService turns an accepted decision into a stored booking and a consumed lesson.
type ReservationService struct {
	store    reservationStore
	metrics  *MetricsService
	logger   *zap.Logger
	capacity int
	now      func() time.Time
}

// NewReservationService constructs the reservation committer.
func NewReservationService(store reservationStore, metrics *MetricsService, logger *zap.Logger, capacity int) *ReservationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = 10
	}
	return &ReservationService{store: store, metrics: metrics, logger: logger, capacity: capacity, now: time.Now}
}

// WithClock overrides the time source.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	if now != nil {
		s.now = now
	}
	return s
}

// Commit persists an accepted decision. Losing a capacity or credit race yields a rejection outcome
// and leaves nothing behind.
func (s *ReservationService) Commit(ctx context.Context, decision *models.Decision) (*models.Outcome, error) {
	if !decision.Accepted() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "booking request was not admitted")
	}
	req := decision.Request
	booking := &models.Booking{
		StudentID:   req.StudentID,
		TeacherID:   req.TeacherID,
		TopicID:     req.TopicID,
		ScheduledAt: req.ScheduledAt,
		Status:      models.BookingStatusScheduled,
	}

	start := time.Now()
	stored, err := s.store.Reserve(ctx, repository.ReserveParams{
		Booking:   booking,
		PackageID: decision.Package.ID,
		Capacity:  s.capacity,
		Now:       s.now().UTC(),
	})
	s.metrics.ObserveDBQuery("reserve_booking", time.Since(start))

	switch {
	case err == nil:
		s.metrics.RecordReservation("committed")
		s.logger.Info("booking reserved",
			zap.String("booking_id", stored.ID),
			zap.String("student_id", stored.StudentID),
			zap.String("teacher_id", stored.TeacherID),
			zap.String("package_id", decision.Package.ID),
			zap.Time("scheduled_at", stored.ScheduledAt),
		)
		return &models.Outcome{Booking: stored}, nil
	case errors.Is(err, repository.ErrSlotFull):
		s.metrics.RecordReservation("class_full")
		return &models.Outcome{Rejection: models.Reject(models.RejectClassFull)}, nil
	case errors.Is(err, repository.ErrPackageExhausted):
		s.metrics.RecordReservation("no_credits")
		return &models.Outcome{Rejection: models.Reject(models.RejectNoAvailableCredits)}, nil
	case database.IsUniqueViolation(err):
		s.metrics.RecordReservation("duplicate")
		return nil, appErrors.WrapAs(err, appErrors.ErrConflict, "student already booked this class")
	case database.IsForeignKeyViolation(err):
		s.metrics.RecordReservation("missing_reference")
		return nil, appErrors.WrapAs(err, appErrors.ErrNotFound, "teacher, student or topic not found")
	default:
		s.metrics.RecordReservation("error")
		s.logger.Error("reservation failed", zap.String("student_id", req.StudentID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to reserve booking")
	}
}
