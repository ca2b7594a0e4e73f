package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triageops/console/internal/domain"
	"github.com/triageops/console/internal/session"
)

func TestBackoffPolicy_Delay(t *testing.T) {
	t.Parallel()

	policy := session.BackoffPolicy{Base: time.Second, Cap: 15 * time.Second, MaxAttempts: 10}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Second},
		{attempt: 1, want: 2 * time.Second},
		{attempt: 2, want: 4 * time.Second},
		{attempt: 3, want: 8 * time.Second},
		{attempt: 4, want: 15 * time.Second}, // 16s capped
		{attempt: 9, want: 15 * time.Second},
		{attempt: 60, want: 15 * time.Second}, // no overflow
		{attempt: -1, want: time.Second},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, policy.Delay(tc.attempt), "attempt %d", tc.attempt)
	}
}

func TestBackoffPolicy_DelaysNonDecreasing(t *testing.T) {
	t.Parallel()

	policy := session.DefaultBackoff()
	prev := time.Duration(0)
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		d := policy.Delay(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, policy.Cap)
		prev = d
	}
}

func TestController_LifecycleAndAttemptReset(t *testing.T) {
	t.Parallel()

	ctrl := session.NewController(session.BackoffPolicy{Base: time.Second, Cap: 15 * time.Second, MaxAttempts: 10}, nil)
	assert.Equal(t, domain.ConnDisconnected, ctrl.Phase())

	ctrl.Connecting()
	assert.Equal(t, domain.ConnConnecting, ctrl.Phase())

	// Clean first open: no recovery, no replay trigger.
	assert.False(t, ctrl.Opened())
	assert.Equal(t, domain.ConnConnected, ctrl.Phase())
	assert.Zero(t, ctrl.Attempts())

	// Drop and retry twice.
	delay1, ok := ctrl.ScheduleRetry()
	require.True(t, ok)
	assert.Equal(t, time.Second, delay1)
	assert.Equal(t, domain.ConnReconnecting, ctrl.Phase())
	assert.Equal(t, 1, ctrl.Attempts())

	delay2, ok := ctrl.ScheduleRetry()
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, delay2)
	assert.Equal(t, 2, ctrl.Attempts())

	// First successful open after failures: recovery reported, counter
	// reset to zero exactly here.
	assert.True(t, ctrl.Opened())
	assert.Zero(t, ctrl.Attempts())
	assert.Equal(t, domain.ConnConnected, ctrl.Phase())

	// Counter reset means the next drop backs off from the base again.
	delay3, ok := ctrl.ScheduleRetry()
	require.True(t, ok)
	assert.Equal(t, time.Second, delay3)
}

func TestController_ExhaustsAfterBudget(t *testing.T) {
	t.Parallel()

	ctrl := session.NewController(session.BackoffPolicy{Base: time.Millisecond, Cap: time.Millisecond, MaxAttempts: 3}, nil)

	for i := 0; i < 3; i++ {
		_, ok := ctrl.ScheduleRetry()
		require.True(t, ok, "attempt %d within budget", i+1)
	}

	_, ok := ctrl.ScheduleRetry()
	assert.False(t, ok)
	assert.Equal(t, domain.ConnExhausted, ctrl.Phase())

	// Exhausted is terminal; a teardown does not mask it.
	ctrl.Disconnected()
	assert.Equal(t, domain.ConnExhausted, ctrl.Phase())
}

func TestController_PhaseCallbackFiresOnChange(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		phases []domain.ConnPhase
	)
	ctrl := session.NewController(session.DefaultBackoff(), func(p domain.ConnPhase) {
		mu.Lock()
		phases = append(phases, p)
		mu.Unlock()
	})

	ctrl.Connecting()
	ctrl.Connecting() // no change, no callback
	ctrl.Opened()
	ctrl.Disconnected()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.ConnPhase{
		domain.ConnConnecting,
		domain.ConnConnected,
		domain.ConnDisconnected,
	}, phases)
}

func TestController_Replaying(t *testing.T) {
	t.Parallel()

	ctrl := session.NewController(session.DefaultBackoff(), nil)
	assert.False(t, ctrl.Replaying())

	ctrl.SetReplaying(true)
	assert.True(t, ctrl.Replaying())

	ctrl.SetReplaying(false)
	assert.False(t, ctrl.Replaying())
}
