package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Calendar sync modes.
const (
	CalendarSyncInline = "inline"
	CalendarSyncAsync  = "async"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Booking    BookingConfig
	Calendar   CalendarConfig
	Attendance AttendanceConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrateOnStart bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// BookingConfig tunes admission rules and the operating timezone for availability windows.
type BookingConfig struct {
	MinLeadTime          time.Duration
	ClassCapacity        int
	ClassDuration        time.Duration
	Timezone             string
	AvailabilityCacheTTL time.Duration

	location *time.Location
}

// Location returns the zone resolved from Timezone at load time.
func (b BookingConfig) Location() *time.Location {
	if b.location == nil {
		return time.Local
	}
	return b.location
}

func loadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid BOOKING_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// CalendarConfig controls the external calendar/meeting integration.
type CalendarConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	SyncMode     string
	Workers      int
}

// AttendanceConfig configures the periodic no-show sweep.
type AttendanceConfig struct {
	SweepEnabled  bool
	SweepSchedule string
	NoShowGrace   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrateOnStart: v.GetBool("DB_MIGRATE_ON_START"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	capacity := v.GetInt("BOOKING_CLASS_CAPACITY")
	if capacity <= 0 {
		capacity = 10
	}
	cfg.Booking = BookingConfig{
		MinLeadTime:          parseDuration(v.GetString("BOOKING_MIN_LEAD_TIME"), time.Hour),
		ClassCapacity:        capacity,
		ClassDuration:        parseDuration(v.GetString("BOOKING_CLASS_DURATION"), 60*time.Minute),
		Timezone:             v.GetString("BOOKING_TIMEZONE"),
		AvailabilityCacheTTL: parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), 5*time.Minute),
	}
	loc, err := loadLocation(cfg.Booking.Timezone)
	if err != nil {
		return nil, err
	}
	cfg.Booking.location = loc

	syncMode := strings.ToLower(strings.TrimSpace(v.GetString("CALENDAR_SYNC_MODE")))
	if syncMode != CalendarSyncAsync {
		syncMode = CalendarSyncInline
	}
	cfg.Calendar = CalendarConfig{
		Enabled:      v.GetBool("CALENDAR_ENABLED"),
		ClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		ClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		Timeout:      parseDuration(v.GetString("CALENDAR_TIMEOUT"), 10*time.Second),
		SyncMode:     syncMode,
		Workers:      v.GetInt("CALENDAR_WORKERS"),
	}

	cfg.Attendance = AttendanceConfig{
		SweepEnabled:  v.GetBool("ATTENDANCE_SWEEP_ENABLED"),
		SweepSchedule: v.GetString("ATTENDANCE_SWEEP_SCHEDULE"),
		NoShowGrace:   parseDuration(v.GetString("ATTENDANCE_NO_SHOW_GRACE"), 30*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lms_booking")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATE_ON_START", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("BOOKING_MIN_LEAD_TIME", "1h")
	v.SetDefault("BOOKING_CLASS_CAPACITY", 10)
	v.SetDefault("BOOKING_CLASS_DURATION", "60m")
	v.SetDefault("BOOKING_TIMEZONE", "Local")
	v.SetDefault("AVAILABILITY_CACHE_TTL", "5m")

	v.SetDefault("CALENDAR_ENABLED", false)
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("CALENDAR_TIMEOUT", "10s")
	v.SetDefault("CALENDAR_SYNC_MODE", CalendarSyncInline)
	v.SetDefault("CALENDAR_WORKERS", 2)

	v.SetDefault("ATTENDANCE_SWEEP_ENABLED", false)
	v.SetDefault("ATTENDANCE_SWEEP_SCHEDULE", "*/15 * * * *")
	v.SetDefault("ATTENDANCE_NO_SHOW_GRACE", "30m")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
