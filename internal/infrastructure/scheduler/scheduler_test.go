package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"economy-server/internal/infrastructure/config"
	otelinfra "economy-server/internal/infrastructure/observability/otel"
)

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	metrics, err := otelinfra.NewMetrics("test")
	require.NoError(t, err)
	s, err := New(config.SchedulerConfig{Timezone: "Asia/Seoul"}, otelinfra.NewNopLogger(), metrics)
	require.NoError(t, err)
	return s
}

func TestScheduler_Add(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.Add("monthly_tax", "0 0 1 * *", func(context.Context) error { return nil }))
	require.NoError(t, s.Add("role_expiry", "*/5 * * * *", func(context.Context) error { return nil }))
	assert.Equal(t, 2, s.Len())

	err := s.Add("broken", "every monday", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, "Asia/Seoul", s.cron.Location().String())
}

func TestScheduler_New_InvalidTimezone(t *testing.T) {
	metrics, err := otelinfra.NewMetrics("test")
	require.NoError(t, err)
	_, err = New(config.SchedulerConfig{Timezone: "Mars/Olympus"}, otelinfra.NewNopLogger(), metrics)
	assert.Error(t, err)
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := newScheduler(t)

	var ok, failed atomic.Int32
	require.NoError(t, s.Add("ok", "@every 1s", func(ctx context.Context) error {
		ok.Add(1)
		return nil
	}))
	require.NoError(t, s.Add("failing", "@every 1s", func(ctx context.Context) error {
		failed.Add(1)
		return errors.New("boom")
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return ok.Load() > 0 && failed.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
