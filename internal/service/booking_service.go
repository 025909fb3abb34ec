package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-booking-api/internal/dto"
	"github.com/noah-isme/lms-booking-api/internal/models"
	appErrors "github.com/noah-isme/lms-booking-api/pkg/errors"
)

type bookingStore interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	UpdateStatus(ctx context.Context, change models.StatusChange) (bool, error)
}

type admissionEvaluator interface {
	Evaluate(ctx context.Context, req models.AdmissionRequest) (*models.Decision, error)
}

type reservationCommitter interface {
	Commit(ctx context.Context, decision *models.Decision) (*models.Outcome, error)
}

type calendarAttacher interface {
	Attach(ctx context.Context, booking *models.Booking)
}

// BookingService runs the booking use cases: admission, reservation, calendar attach and lifecycle changes.
type BookingService struct {
	store     bookingStore
	admission admissionEvaluator
	reserver  reservationCommitter
	calendar  calendarAttacher
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService constructs the booking facade.
func NewBookingService(store bookingStore, admission admissionEvaluator, reserver reservationCommitter, calendar calendarAttacher, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		store:     store,
		admission: admission,
		reserver:  reserver,
		calendar:  calendar,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create books a class for the authenticated student. A refused request is returned as an outcome
// carrying the rejection, not as an error.
func (s *BookingService) Create(ctx context.Context, req dto.CreateBookingRequest, claims *models.JWTClaims) (*models.Outcome, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if claims.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can book classes")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid booking payload")
	}
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "scheduledAt must be an RFC3339 timestamp")
	}

	decision, err := s.admission.Evaluate(ctx, models.AdmissionRequest{
		StudentID:   claims.UserID,
		TeacherID:   req.TeacherID,
		TopicID:     req.TopicID,
		ScheduledAt: scheduledAt.UTC(),
	})
	if err != nil {
		return nil, err
	}
	if !decision.Accepted() {
		return &models.Outcome{Rejection: decision.Rejection}, nil
	}

	outcome, err := s.reserver.Commit(ctx, decision)
	if err != nil {
		return nil, err
	}
	if outcome.Booking != nil && s.calendar != nil {
		s.calendar.Attach(ctx, outcome.Booking)
	}
	return outcome, nil
}

// Get returns a booking visible to the caller.
func (s *BookingService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canViewBooking(claims, booking) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	}
	return booking, nil
}

// List returns the caller's bookings. Students see their own, teachers the classes they teach, staff everything.
func (s *BookingService) List(ctx context.Context, query dto.BookingListQuery, claims *models.JWTClaims) ([]models.Booking, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid booking filters")
	}
	filter := models.BookingFilter{
		Status:   models.BookingStatus(query.Status),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	switch claims.Role {
	case models.RoleStudent:
		filter.StudentID = claims.UserID
	case models.RoleTeacher:
		filter.TeacherID = claims.UserID
	}
	if query.From != "" {
		from, _ := time.Parse(time.RFC3339, query.From)
		filter.From = &from
	}
	if query.To != "" {
		to, _ := time.Parse(time.RFC3339, query.To)
		filter.To = &to
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list bookings")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Cancel cancels a scheduled booking. The consumed lesson is not returned to the package.
func (s *BookingService) Cancel(ctx context.Context, id string, claims *models.JWTClaims) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingStatusCancelled, claims, func(c *models.JWTClaims, b *models.Booking) bool {
		return c.Role.IsStaff() || c.UserID == b.StudentID || c.UserID == b.TeacherID
	})
}

// Complete records that the class took place.
func (s *BookingService) Complete(ctx context.Context, id string, claims *models.JWTClaims) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingStatusCompleted, claims, teacherOrStaff)
}

// MarkNoShow records that the student did not attend.
func (s *BookingService) MarkNoShow(ctx context.Context, id string, claims *models.JWTClaims) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingStatusNoShow, claims, teacherOrStaff)
}

func teacherOrStaff(c *models.JWTClaims, b *models.Booking) bool {
	return c.Role.IsStaff() || (c.Role == models.RoleTeacher && c.UserID == b.TeacherID)
}

func (s *BookingService) transition(ctx context.Context, id string, to models.BookingStatus, claims *models.JWTClaims, allowed func(*models.JWTClaims, *models.Booking) bool) (*models.Booking, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canViewBooking(claims, booking) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	}
	if !allowed(claims, booking) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to change this booking")
	}
	if !booking.Status.CanTransitionTo(to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "booking is already "+string(booking.Status))
	}

	now := s.now().UTC()
	change := models.StatusChange{BookingID: booking.ID, To: to, At: now}
	switch to {
	case models.BookingStatusCancelled:
		change.CancelledAt = &now
	case models.BookingStatusCompleted:
		change.AttendedAt = &now
	}

	changed, err := s.store.UpdateStatus(ctx, change)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to update booking")
	}
	if !changed {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "booking is no longer scheduled")
	}
	booking.Status = to
	booking.UpdatedAt = now
	if change.CancelledAt != nil {
		booking.CancelledAt = change.CancelledAt
	}
	if change.AttendedAt != nil {
		booking.AttendedAt = change.AttendedAt
	}
	s.logger.Info("booking status changed",
		zap.String("booking_id", booking.ID),
		zap.String("status", string(to)),
		zap.String("actor_id", claims.UserID),
	)
	return booking, nil
}

func (s *BookingService) load(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Internal(err, "failed to load booking")
	}
	return booking, nil
}

func canViewBooking(claims *models.JWTClaims, b *models.Booking) bool {
	if claims == nil || b == nil {
		return false
	}
	return claims.Role.IsStaff() || claims.UserID == b.StudentID || claims.UserID == b.TeacherID
}
