package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/lms-booking-api/api/swagger"
	"github.com/noah-isme/lms-booking-api/internal/handler"
	internalmiddleware "github.com/noah-isme/lms-booking-api/internal/middleware"
	"github.com/noah-isme/lms-booking-api/internal/models"
	"github.com/noah-isme/lms-booking-api/internal/repository"
	"github.com/noah-isme/lms-booking-api/internal/service"
	"github.com/noah-isme/lms-booking-api/pkg/cache"
	"github.com/noah-isme/lms-booking-api/pkg/calendar"
	"github.com/noah-isme/lms-booking-api/pkg/config"
	"github.com/noah-isme/lms-booking-api/pkg/database"
	"github.com/noah-isme/lms-booking-api/pkg/jobs"
	"github.com/noah-isme/lms-booking-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-booking-api/pkg/middleware/requestid"
)

// @title LMS Booking API
// @version 1.0.0
// @description Class booking with lesson packages, teacher availability and calendar sync
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(context.Background(), db, logr); err != nil {
			logr.Sugar().Fatalw("migration failed", "error", err)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Booking.AvailabilityCacheTTL, logr, cfg.Redis.Enabled)
	validate := validator.New()

	bookingRepo := repository.NewBookingRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	userRepo := repository.NewUserRepository(db)
	topicRepo := repository.NewTopicRepository(db)
	accountRepo := repository.NewCalendarAccountRepository(db)

	availabilitySvc := service.NewAvailabilityService(availabilityRepo, userRepo, cacheSvc, validate, logr, service.AvailabilityConfig{
		Location: cfg.Booking.Location(),
		CacheTTL: cfg.Booking.AvailabilityCacheTTL,
	})
	admissionSvc := service.NewAdmissionService(bookingRepo, bookingRepo, availabilitySvc, metricsSvc, logr, service.AdmissionConfig{
		MinLeadTime:   cfg.Booking.MinLeadTime,
		ClassCapacity: cfg.Booking.ClassCapacity,
	})
	reservationSvc := service.NewReservationService(bookingRepo, metricsSvc, logr, cfg.Booking.ClassCapacity)

	var provider service.CalendarProvider
	if cfg.Calendar.Enabled {
		provider = calendar.NewGoogleProvider(calendar.GoogleConfig{
			ClientID:     cfg.Calendar.ClientID,
			ClientSecret: cfg.Calendar.ClientSecret,
		})
	}
	calendarSvc := service.NewCalendarService(accountRepo, userRepo, topicRepo, bookingRepo, provider, metricsSvc, logr, service.CalendarSyncConfig{
		Enabled:       cfg.Calendar.Enabled,
		Timeout:       cfg.Calendar.Timeout,
		ClassDuration: cfg.Booking.ClassDuration,
		Async:         cfg.Calendar.SyncMode == config.CalendarSyncAsync,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var calendarQueue *jobs.Queue
	if cfg.Calendar.Enabled && cfg.Calendar.SyncMode == config.CalendarSyncAsync {
		calendarQueue = jobs.NewQueue("calendar", calendarSvc.HandleJob, jobs.QueueConfig{
			Workers:    cfg.Calendar.Workers,
			MaxRetries: 0,
			JobTimeout: cfg.Calendar.Timeout,
			Logger:     logr,
		})
		calendarQueue.Start(context.Background())
		calendarSvc.UseQueue(calendarQueue)
	}

	bookingSvc := service.NewBookingService(bookingRepo, admissionSvc, reservationSvc, calendarSvc, validate, logr)
	authSvc := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}, logr)

	var sweeper *service.AttendanceSweeper
	if cfg.Attendance.SweepEnabled {
		sweeper = service.NewAttendanceSweeper(bookingRepo, metricsSvc, logr, service.AttendanceSweeperConfig{
			Schedule:      cfg.Attendance.SweepSchedule,
			ClassDuration: cfg.Booking.ClassDuration,
			Grace:         cfg.Attendance.NoShowGrace,
		})
		if err := sweeper.Start(); err != nil {
			logr.Sugar().Fatalw("attendance sweeper failed to start", "error", err)
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics", "/health"))

	deps := map[string]handler.Pinger{"database": db.PingContext}
	if cfg.Redis.Enabled {
		deps["redis"] = cacheRepo.Ping
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, deps)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	bookingHandler := handler.NewBookingHandler(bookingSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authSvc))

	bookings := api.Group("/bookings")
	bookings.POST("", internalmiddleware.RequireRoles(models.RoleStudent), bookingHandler.Create)
	bookings.GET("", bookingHandler.List)
	bookings.GET("/:id", bookingHandler.Get)
	bookings.POST("/:id/cancel", bookingHandler.Cancel)
	bookings.POST("/:id/complete", internalmiddleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin), bookingHandler.Complete)
	bookings.POST("/:id/no-show", internalmiddleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin), bookingHandler.NoShow)

	teachers := api.Group("/teachers/:teacherId/availability")
	teachers.GET("", availabilityHandler.List)
	teachers.POST("", internalmiddleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin), availabilityHandler.Create)
	teachers.GET("/check", availabilityHandler.Check)

	windows := api.Group("/availability", internalmiddleware.RequireRoles(models.RoleTeacher, models.RoleAdmin, models.RoleSuperAdmin))
	windows.PUT("/:id", availabilityHandler.Update)
	windows.DELETE("/:id", availabilityHandler.Delete)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown incomplete", "error", err)
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if calendarQueue != nil {
		if err := calendarQueue.Stop(shutdownCtx); err != nil {
			logr.Sugar().Warnw("calendar queue not drained", "error", err, "pending", calendarQueue.Pending())
		}
	}
}
