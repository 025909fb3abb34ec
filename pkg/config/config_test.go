package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, time.Hour, cfg.Booking.MinLeadTime)
	assert.Equal(t, 10, cfg.Booking.ClassCapacity)
	assert.Equal(t, 60*time.Minute, cfg.Booking.ClassDuration)
	assert.Equal(t, CalendarSyncInline, cfg.Calendar.SyncMode)
	assert.Equal(t, 10*time.Second, cfg.Calendar.Timeout)
	assert.Equal(t, time.Local, cfg.Booking.Location())
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("BOOKING_CLASS_CAPACITY", 0)
	v.Set("BOOKING_MIN_LEAD_TIME", "bogus")
	v.Set("CALENDAR_SYNC_MODE", "ASYNC")
	v.Set("BOOKING_TIMEZONE", "Asia/Jakarta")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Booking.ClassCapacity)
	assert.Equal(t, time.Hour, cfg.Booking.MinLeadTime)
	assert.Equal(t, CalendarSyncAsync, cfg.Calendar.SyncMode)
	assert.Equal(t, "Asia/Jakarta", cfg.Booking.Location().String())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestFromViperRejectsUnknownZone(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("BOOKING_TIMEZONE", "Mars/Olympus")

	cfg, err := fromViper(v)
	assert.Nil(t, cfg)
	assert.ErrorContains(t, err, "BOOKING_TIMEZONE")
}

func TestLoadFailsOnMisspelledZone(t *testing.T) {
	t.Setenv("BOOKING_TIMEZONE", "America/Sao_Pailo")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "America/Sao_Pailo")
}

func TestLoadResolvesZone(t *testing.T) {
	t.Setenv("BOOKING_TIMEZONE", "America/Sao_Paulo")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "America/Sao_Paulo", cfg.Booking.Location().String())
}

func TestZeroBookingConfigUsesLocal(t *testing.T) {
	assert.Equal(t, time.Local, BookingConfig{}.Location())
}
