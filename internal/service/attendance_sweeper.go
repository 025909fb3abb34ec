package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type noShowMarker interface {
	MarkNoShows(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// AttendanceSweeperConfig controls when unattended classes are closed out.
type AttendanceSweeperConfig struct {
	Schedule      string
	ClassDuration time.Duration
	Grace         time.Duration
	RunTimeout    time.Duration
}

// AttendanceSweeper periodically marks scheduled classes that ended without attendance as NO_SHOW.
type AttendanceSweeper struct {
	store   noShowMarker
	metrics *MetricsService
	logger  *zap.Logger
	config  AttendanceSweeperConfig
	cron    *cron.Cron
	now     func() time.Time
}

// NewAttendanceSweeper constructs the sweeper.
func NewAttendanceSweeper(store noShowMarker, metrics *MetricsService, logger *zap.Logger, cfg AttendanceSweeperConfig) *AttendanceSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "*/5 * * * *"
	}
	if cfg.ClassDuration <= 0 {
		cfg.ClassDuration = time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Second
	}
	return &AttendanceSweeper{
		store:   store,
		metrics: metrics,
		logger:  logger,
		config:  cfg,
		cron:    cron.New(),
		now:     time.Now,
	}
}

// Sweep runs one pass and returns how many bookings were closed.
func (s *AttendanceSweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.now().UTC()
	cutoff := now.Add(-(s.config.ClassDuration + s.config.Grace))
	affected, err := s.store.MarkNoShows(ctx, cutoff, now)
	if err != nil {
		return 0, err
	}
	s.metrics.RecordNoShows(affected)
	if affected > 0 {
		s.logger.Info("marked unattended bookings as no-show", zap.Int64("count", affected), zap.Time("cutoff", cutoff))
	}
	return affected, nil
}

// Start schedules Sweep on the cron expression.
func (s *AttendanceSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.config.Schedule, s.run); err != nil {
		return fmt.Errorf("schedule attendance sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("attendance sweeper started", zap.String("schedule", s.config.Schedule))
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *AttendanceSweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *AttendanceSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("attendance sweep failed", zap.Error(err))
	}
}
