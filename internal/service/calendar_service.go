package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-booking-api/internal/models"
	"github.com/noah-isme/lms-booking-api/pkg/jobs"
)

// JobTypeCalendarAttach identifies queued calendar attach jobs.
const JobTypeCalendarAttach = "calendar.attach"

// CalendarProvider creates an event with a meeting link in an external calendar.
type CalendarProvider interface {
	CreateEvent(ctx context.Context, account *models.CalendarAccount, req models.CalendarEventRequest) (*models.CalendarEvent, error)
}

type calendarAccountFinder interface {
	FindByTeacher(ctx context.Context, teacherID string) (*models.CalendarAccount, error)
}

type topicLookup interface {
	FindByID(ctx context.Context, id string) (*models.Topic, error)
}

type bookingCalendarWriter interface {
	UpdateCalendar(ctx context.Context, bookingID, eventID string, meetingLink *string) error
}

// CalendarSyncConfig controls the calendar side effect.
type CalendarSyncConfig struct {
	Enabled       bool
	Timeout       time.Duration
	ClassDuration time.Duration
	Async         bool
}

// CalendarService attaches calendar events to committed bookings. It never fails a booking:
// every error is logged, counted and dropped.
type CalendarService struct {
	accounts calendarAccountFinder
	users    userLookup
	topics   topicLookup
	bookings bookingCalendarWriter
	provider CalendarProvider
	queue    *jobs.Queue
	metrics  *MetricsService
	logger   *zap.Logger
	config   CalendarSyncConfig
}

// NewCalendarService constructs the calendar service.
func NewCalendarService(accounts calendarAccountFinder, users userLookup, topics topicLookup, bookings bookingCalendarWriter, provider CalendarProvider, metrics *MetricsService, logger *zap.Logger, cfg CalendarSyncConfig) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ClassDuration <= 0 {
		cfg.ClassDuration = time.Hour
	}
	return &CalendarService{
		accounts: accounts,
		users:    users,
		topics:   topics,
		bookings: bookings,
		provider: provider,
		metrics:  metrics,
		logger:   logger,
		config:   cfg,
	}
}

// UseQueue routes attach work through q when async mode is configured.
func (s *CalendarService) UseQueue(q *jobs.Queue) {
	s.queue = q
}

// Attach creates the class event for a committed booking. In inline mode it blocks for at most the
// configured timeout and fills the booking's calendar fields on success.
func (s *CalendarService) Attach(ctx context.Context, booking *models.Booking) {
	if s == nil || !s.config.Enabled || s.provider == nil || booking == nil {
		return
	}
	if s.config.Async && s.queue != nil {
		snapshot := *booking
		if err := s.queue.Enqueue(jobs.Job{ID: booking.ID, Type: JobTypeCalendarAttach, Payload: snapshot}); err != nil {
			s.metrics.RecordCalendarSync("enqueue_failed")
			s.logger.Warn("calendar attach not queued", zap.String("booking_id", booking.ID), zap.Error(err))
		}
		return
	}
	s.attach(context.WithoutCancel(ctx), booking)
}

// HandleJob is the queue handler for async attach jobs.
func (s *CalendarService) HandleJob(ctx context.Context, job jobs.Job) error {
	booking, ok := job.Payload.(models.Booking)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	s.attach(ctx, &booking)
	return nil
}

func (s *CalendarService) attach(ctx context.Context, booking *models.Booking) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	log := s.logger.With(zap.String("booking_id", booking.ID), zap.String("teacher_id", booking.TeacherID))

	account, err := s.accounts.FindByTeacher(ctx, booking.TeacherID)
	if err != nil {
		s.fail(ctx, log, "calendar account lookup failed", err)
		return
	}
	if account == nil {
		s.metrics.RecordCalendarSync("skipped")
		log.Debug("teacher has no linked calendar")
		return
	}

	req, err := s.eventRequest(ctx, booking)
	if err != nil {
		s.fail(ctx, log, "calendar participants lookup failed", err)
		return
	}

	event, err := s.provider.CreateEvent(ctx, account, req)
	if err != nil {
		s.fail(ctx, log, "calendar event creation failed", err)
		return
	}

	var link *string
	if event.MeetLink != "" {
		link = &event.MeetLink
	}
	eventID := event.EventID
	booking.CalendarEventID = &eventID
	booking.MeetingLink = link
	if err := s.bookings.UpdateCalendar(ctx, booking.ID, event.EventID, link); err != nil {
		s.fail(ctx, log.With(zap.String("event_id", event.EventID)), "storing calendar event failed", err)
		return
	}
	s.metrics.RecordCalendarSync("created")
	log.Info("calendar event attached", zap.String("event_id", event.EventID))
}

func (s *CalendarService) eventRequest(ctx context.Context, booking *models.Booking) (models.CalendarEventRequest, error) {
	student, err := s.users.FindByID(ctx, booking.StudentID)
	if err != nil {
		return models.CalendarEventRequest{}, fmt.Errorf("load student: %w", err)
	}
	teacher, err := s.users.FindByID(ctx, booking.TeacherID)
	if err != nil {
		return models.CalendarEventRequest{}, fmt.Errorf("load teacher: %w", err)
	}
	topic, err := s.topics.FindByID(ctx, booking.TopicID)
	if err != nil {
		return models.CalendarEventRequest{}, fmt.Errorf("load topic: %w", err)
	}
	return buildEventRequest(models.BookingParticipants{Student: *student, Teacher: *teacher, Topic: *topic}, booking.ScheduledAt, s.config.ClassDuration), nil
}

func buildEventRequest(p models.BookingParticipants, start time.Time, duration time.Duration) models.CalendarEventRequest {
	level := ""
	if p.Student.Level != nil {
		level = *p.Student.Level
	}
	var desc strings.Builder
	fmt.Fprintf(&desc, "Student: %s", p.Student.FullName)
	if level != "" {
		fmt.Fprintf(&desc, " (level %s)", level)
	}
	fmt.Fprintf(&desc, "\nTeacher: %s\nTopic: %s", p.Teacher.FullName, p.Topic.Name)
	return models.CalendarEventRequest{
		Title:        fmt.Sprintf("%s with %s", p.Topic.Name, p.Teacher.FullName),
		Description:  desc.String(),
		StartTime:    start,
		EndTime:      start.Add(duration),
		StudentEmail: p.Student.Email,
		TeacherEmail: p.Teacher.Email,
		TopicName:    p.Topic.Name,
		StudentLevel: level,
	}
}

func (s *CalendarService) fail(ctx context.Context, log *zap.Logger, msg string, err error) {
	result := "error"
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result = "timeout"
	}
	s.metrics.RecordCalendarSync(result)
	log.Warn(msg, zap.Error(err))
}
