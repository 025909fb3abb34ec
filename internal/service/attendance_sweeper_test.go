package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noShowStub struct {
	cutoff   time.Time
	now      time.Time
	affected int64
	err      error
}

func (s *noShowStub) MarkNoShows(ctx context.Context, cutoff, now time.Time) (int64, error) {
	s.cutoff = cutoff
	s.now = now
	return s.affected, s.err
}

func TestSweepUsesDurationAndGrace(t *testing.T) {
	store := &noShowStub{affected: 2}
	metrics := NewMetricsService()
	sweeper := NewAttendanceSweeper(store, metrics, nil, AttendanceSweeperConfig{ClassDuration: time.Hour, Grace: 15 * time.Minute})
	sweeper.now = func() time.Time { return fixedNow }

	affected, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)
	assert.Equal(t, fixedNow.Add(-75*time.Minute), store.cutoff)
	assert.Equal(t, fixedNow, store.now)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.noShows))
}

func TestSweepPropagatesStoreError(t *testing.T) {
	sweeper := NewAttendanceSweeper(&noShowStub{err: errors.New("boom")}, nil, nil, AttendanceSweeperConfig{})
	_, err := sweeper.Sweep(context.Background())
	assert.Error(t, err)
}

func TestSweeperRejectsBadSchedule(t *testing.T) {
	sweeper := NewAttendanceSweeper(&noShowStub{}, nil, nil, AttendanceSweeperConfig{Schedule: "not a cron"})
	assert.Error(t, sweeper.Start())
}
