package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-booking-api/internal/models"
	appErrors "github.com/noah-isme/lms-booking-api/pkg/errors"
)

type packageFinder interface {
	FindActivePackage(ctx context.Context, studentID string, now time.Time) (*models.LessonPackage, error)
}

type seatCounter interface {
	CountBookings(ctx context.Context, teacherID string, scheduledAt time.Time) (int, error)
}

type availabilityResolver interface {
	IsAvailable(ctx context.Context, teacherID string, at time.Time) (bool, error)
}

// AdmissionConfig holds the admission thresholds.
type AdmissionConfig struct {
	MinLeadTime   time.Duration
	ClassCapacity int
}

// AdmissionService decides whether a booking request may consume a seat and a lesson.
type AdmissionService struct {
	packages     packageFinder
	seats        seatCounter
	availability availabilityResolver
	metrics      *MetricsService
	logger       *zap.Logger
	config       AdmissionConfig
	now          func() time.Time
}

// NewAdmissionService constructs the admission service.
func NewAdmissionService(packages packageFinder, seats seatCounter, availability availabilityResolver, metrics *MetricsService, logger *zap.Logger, cfg AdmissionConfig) *AdmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinLeadTime <= 0 {
		cfg.MinLeadTime = time.Hour
	}
	if cfg.ClassCapacity <= 0 {
		cfg.ClassCapacity = 10
	}
	return &AdmissionService{
		packages:     packages,
		seats:        seats,
		availability: availability,
		metrics:      metrics,
		logger:       logger,
		config:       cfg,
		now:          time.Now,
	}
}

// WithClock overrides the time source.
func (s *AdmissionService) WithClock(now func() time.Time) *AdmissionService {
	if now != nil {
		s.now = now
	}
	return s
}

// Capacity returns the configured class capacity.
func (s *AdmissionService) Capacity() int {
	return s.config.ClassCapacity
}

// Evaluate applies the admission rules in order and stops at the first failure.
// Rule failures are reported on the decision; the error is only set when a lookup fails.
func (s *AdmissionService) Evaluate(ctx context.Context, req models.AdmissionRequest) (*models.Decision, error) {
	now := s.now().UTC()
	decision := &models.Decision{Request: req, DecidedAt: now}

	if req.ScheduledAt.Sub(now) < s.config.MinLeadTime {
		return s.reject(decision, models.RejectInsufficientLeadTime), nil
	}

	pkg, err := s.packages.FindActivePackage(ctx, req.StudentID, now)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load lesson packages")
	}
	if pkg == nil {
		return s.reject(decision, models.RejectNoAvailableCredits), nil
	}

	seats, err := s.seats.CountBookings(ctx, req.TeacherID, req.ScheduledAt)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count class seats")
	}
	if seats >= s.config.ClassCapacity {
		return s.reject(decision, models.RejectClassFull), nil
	}

	available, err := s.availability.IsAvailable(ctx, req.TeacherID, req.ScheduledAt)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	if !available {
		return s.reject(decision, models.RejectTeacherUnavailable), nil
	}

	decision.Package = pkg
	s.metrics.RecordAdmission("accepted")
	return decision, nil
}

func (s *AdmissionService) reject(decision *models.Decision, reason models.RejectionReason) *models.Decision {
	decision.Rejection = models.Reject(reason)
	s.metrics.RecordAdmission(string(reason))
	s.logger.Info("booking request rejected",
		zap.String("student_id", decision.Request.StudentID),
		zap.String("teacher_id", decision.Request.TeacherID),
		zap.Time("scheduled_at", decision.Request.ScheduledAt),
		zap.String("reason", string(reason)),
	)
	return decision
}
