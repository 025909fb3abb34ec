package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/lms-booking-api/internal/models"
	"github.com/noah-isme/lms-booking-api/pkg/jobs"
)

type calendarFixture struct {
	store    *memoryStore
	provider *providerStub
	metrics  *MetricsService
	svc      *CalendarService
	booking  *models.Booking
}

func newCalendarFixture(t *testing.T, accounts accountStub, cfg CalendarSyncConfig) *calendarFixture {
	t.Helper()
	store := newMemoryStore(activePackage("p1", "s1", 1))
	booking := &models.Booking{StudentID: "s1", TeacherID: teacherID, TopicID: topicID, ScheduledAt: mondayTen}
	_, err := store.Reserve(context.Background(), reserveParamsFor(booking))
	require.NoError(t, err)

	provider := &providerStub{event: &models.CalendarEvent{EventID: "evt-9"}}
	metrics := NewMetricsService()
	users := userStub{
		teacherID: {ID: teacherID, FullName: "Teacher One", Email: "t@example.com"},
		"s1":      {ID: "s1", FullName: "Student One", Email: "s1@example.com"},
	}
	svc := NewCalendarService(accounts, users, topicStub{topicID: {ID: topicID, Name: "Speaking"}}, store, provider, metrics, nil, cfg)
	return &calendarFixture{store: store, provider: provider, metrics: metrics, svc: svc, booking: booking}
}

func linkedAccount() accountStub {
	return accountStub{accounts: map[string]*models.CalendarAccount{teacherID: {TeacherID: teacherID, RefreshToken: "r"}}}
}

func TestAttachSkipsTeacherWithoutCalendar(t *testing.T) {
	f := newCalendarFixture(t, accountStub{}, CalendarSyncConfig{Enabled: true})

	f.svc.Attach(context.Background(), f.booking)

	assert.Equal(t, 0, f.provider.calls())
	assert.Nil(t, f.booking.CalendarEventID)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.calendarSyncs.WithLabelValues("skipped")))
}

func TestAttachWithoutMeetLinkStoresEventOnly(t *testing.T) {
	f := newCalendarFixture(t, linkedAccount(), CalendarSyncConfig{Enabled: true})

	f.svc.Attach(context.Background(), f.booking)

	require.NotNil(t, f.booking.CalendarEventID)
	assert.Equal(t, "evt-9", *f.booking.CalendarEventID)
	assert.Nil(t, f.booking.MeetingLink)
}

func TestAttachKeepsEventWhenStoringFails(t *testing.T) {
	f := newCalendarFixture(t, linkedAccount(), CalendarSyncConfig{Enabled: true})
	f.provider.event = &models.CalendarEvent{EventID: "evt-9", MeetLink: "https://meet.google.com/xyz"}
	f.store.updateErr = errors.New("connection reset")
	core, logs := observer.New(zap.WarnLevel)
	f.svc.logger = zap.New(core)

	f.svc.Attach(context.Background(), f.booking)

	require.NotNil(t, f.booking.CalendarEventID)
	assert.Equal(t, "evt-9", *f.booking.CalendarEventID)
	require.NotNil(t, f.booking.MeetingLink)
	assert.Equal(t, "https://meet.google.com/xyz", *f.booking.MeetingLink)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.calendarSyncs.WithLabelValues("error")))

	entries := logs.FilterMessage("storing calendar event failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "evt-9", entries[0].ContextMap()["event_id"])
}

func TestAttachTimesOut(t *testing.T) {
	f := newCalendarFixture(t, linkedAccount(), CalendarSyncConfig{Enabled: true, Timeout: 50 * time.Millisecond})
	f.provider.block = true

	start := time.Now()
	f.svc.Attach(context.Background(), f.booking)

	assert.Less(t, time.Since(start), time.Second)
	assert.Nil(t, f.booking.CalendarEventID)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.calendarSyncs.WithLabelValues("timeout")))
}

func TestAttachAccountLookupFailure(t *testing.T) {
	f := newCalendarFixture(t, accountStub{err: errors.New("db down")}, CalendarSyncConfig{Enabled: true})

	f.svc.Attach(context.Background(), f.booking)

	assert.Equal(t, 0, f.provider.calls())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.calendarSyncs.WithLabelValues("error")))
}

func TestAttachDisabled(t *testing.T) {
	f := newCalendarFixture(t, linkedAccount(), CalendarSyncConfig{Enabled: false})

	f.svc.Attach(context.Background(), f.booking)

	assert.Equal(t, 0, f.provider.calls())
}

func TestAttachAsyncRunsOnQueue(t *testing.T) {
	f := newCalendarFixture(t, linkedAccount(), CalendarSyncConfig{Enabled: true, Async: true})
	queue := jobs.NewQueue("calendar", f.svc.HandleJob, jobs.QueueConfig{Workers: 1})
	ctx := context.Background()
	queue.Start(ctx)
	f.svc.UseQueue(queue)

	f.svc.Attach(ctx, f.booking)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, queue.Stop(stopCtx))

	stored, err := f.store.FindByID(ctx, f.booking.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.CalendarEventID)
	assert.Nil(t, f.booking.CalendarEventID)
}
