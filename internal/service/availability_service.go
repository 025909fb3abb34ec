package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-booking-api/internal/dto"
	"github.com/noah-isme/lms-booking-api/internal/models"
	appErrors "github.com/noah-isme/lms-booking-api/pkg/errors"
)

type availabilityRepository interface {
	ListActiveByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error)
	FindByID(ctx context.Context, id string) (*models.TeacherAvailability, error)
	Create(ctx context.Context, window *models.TeacherAvailability) error
	Update(ctx context.Context, window *models.TeacherAvailability) error
	Deactivate(ctx context.Context, id string) error
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AvailabilityConfig controls how windows are interpreted and cached.
type AvailabilityConfig struct {
	Location *time.Location
	CacheTTL time.Duration
}

// AvailabilityService resolves whether a teacher teaches at an instant and manages their weekly windows.
type AvailabilityService struct {
	repo      availabilityRepository
	users     userLookup
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    AvailabilityConfig
}

// NewAvailabilityService constructs the availability service.
func NewAvailabilityService(repo availabilityRepository, users userLookup, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg AvailabilityConfig) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &AvailabilityService{repo: repo, users: users, cache: cache, validator: validate, logger: logger, config: cfg}
}

func availabilityCacheKey(teacherID string) string {
	return fmt.Sprintf("availability:teacher:%s", teacherID)
}

// IsAvailable reports whether an active window of the teacher covers a class starting at at.
// Windows are read in the configured booking location.
func (s *AvailabilityService) IsAvailable(ctx context.Context, teacherID string, at time.Time) (bool, error) {
	windows, err := s.activeWindows(ctx, teacherID)
	if err != nil {
		return false, err
	}
	return models.WindowsCover(windows, at, s.config.Location), nil
}

func (s *AvailabilityService) activeWindows(ctx context.Context, teacherID string) ([]models.TeacherAvailability, error) {
	key := availabilityCacheKey(teacherID)
	var cached []models.TeacherAvailability
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	windows, err := s.repo.ListActiveByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load teacher availability")
	}
	if windows == nil {
		windows = []models.TeacherAvailability{}
	}
	s.cache.Set(ctx, key, windows, s.config.CacheTTL)
	return windows, nil
}

// List returns the teacher's windows. Owners and staff also see deactivated windows.
func (s *AvailabilityService) List(ctx context.Context, teacherID string, claims *models.JWTClaims) ([]models.TeacherAvailability, error) {
	if canManageAvailability(claims, teacherID) {
		windows, err := s.repo.ListByTeacher(ctx, teacherID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to list availability")
		}
		return windows, nil
	}
	return s.activeWindows(ctx, teacherID)
}

// Create adds a weekly window for the teacher.
func (s *AvailabilityService) Create(ctx context.Context, teacherID string, req dto.AvailabilityRequest, claims *models.JWTClaims) (*models.TeacherAvailability, error) {
	if !canManageAvailability(claims, teacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot manage another teacher's availability")
	}
	window, err := s.buildWindow(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	window.TeacherID = teacherID
	if err := s.repo.Create(ctx, window); err != nil {
		return nil, appErrors.Internal(err, "failed to create availability")
	}
	s.cache.Invalidate(ctx, availabilityCacheKey(teacherID))
	s.logger.Info("availability window created",
		zap.String("teacher_id", teacherID),
		zap.Int("day_of_week", window.DayOfWeek),
		zap.String("start", window.StartTime),
		zap.String("end", window.EndTime),
	)
	return window, nil
}

// Update replaces an existing window.
func (s *AvailabilityService) Update(ctx context.Context, id string, req dto.AvailabilityRequest, claims *models.JWTClaims) (*models.TeacherAvailability, error) {
	existing, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageAvailability(claims, existing.TeacherID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot manage another teacher's availability")
	}
	window, err := s.buildWindow(req)
	if err != nil {
		return nil, err
	}
	existing.DayOfWeek = window.DayOfWeek
	existing.StartTime = window.StartTime
	existing.EndTime = window.EndTime
	existing.IsActive = window.IsActive
	if err := s.repo.Update(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return nil, appErrors.Internal(err, "failed to update availability")
	}
	s.cache.Invalidate(ctx, availabilityCacheKey(existing.TeacherID))
	return existing, nil
}

// Delete deactivates a window. Historic bookings are unaffected.
func (s *AvailabilityService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	existing, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !canManageAvailability(claims, existing.TeacherID) {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot manage another teacher's availability")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return appErrors.Internal(err, "failed to delete availability")
	}
	s.cache.Invalidate(ctx, availabilityCacheKey(existing.TeacherID))
	return nil
}

func (s *AvailabilityService) load(ctx context.Context, id string) (*models.TeacherAvailability, error) {
	window, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability not found")
		}
		return nil, appErrors.Internal(err, "failed to load availability")
	}
	return window, nil
}

func (s *AvailabilityService) ensureTeacher(ctx context.Context, teacherID string) error {
	if s.users == nil {
		return nil
	}
	user, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Internal(err, "failed to load teacher")
	}
	if user.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrValidation, "user is not a teacher")
	}
	return nil
}

func (s *AvailabilityService) buildWindow(req dto.AvailabilityRequest) (*models.TeacherAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid availability payload")
	}
	window := &models.TeacherAvailability{
		DayOfWeek: *req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsActive:  true,
	}
	if req.IsActive != nil {
		window.IsActive = *req.IsActive
	}
	if err := window.Validate(); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, err.Error())
	}
	return window, nil
}

func canManageAvailability(claims *models.JWTClaims, teacherID string) bool {
	if claims == nil {
		return false
	}
	if claims.Role.IsStaff() {
		return true
	}
	return claims.Role == models.RoleTeacher && claims.UserID == teacherID
}
