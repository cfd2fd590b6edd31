package cluster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPoller(p *fakePlatform) (*Poller, *sleepRecorder) {
	poller := NewPoller(NewProber(p))
	s := &sleepRecorder{}
	poller.sleep = s.sleep
	return poller, s
}

func TestAwaitState_NeverConverges(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true
	poller, s := newTestPoller(p)

	result, err := poller.AwaitState(context.Background(), "c-1", Stopped)
	require.NoError(t, err)
	require.Equal(t, TimedOut, result)
	assert.Equal(t, DefaultMaxAttempts, p.count("list-running"), "observations")
	require.Len(t, s.sleeps, DefaultMaxAttempts-1, "waits between observations")
	for i, d := range s.sleeps {
		require.Equal(t, time.Second, d, "wait %d", i)
	}
}

func TestAwaitState_ConvergesEarly(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true
	poller, s := newTestPoller(p)
	s.onSleep = func(n int) {
		if n == 2 {
			p.mu.Lock()
			p.running["c-1"] = false
			p.mu.Unlock()
		}
	}

	result, err := poller.AwaitState(context.Background(), "c-1", Stopped)
	require.NoError(t, err)
	require.Equal(t, Converged, result)
	assert.Equal(t, 3, p.count("list-running"))
}

func TestAwaitState_AlreadyInTarget(t *testing.T) {
	p := newFakePlatform("c-1")
	poller, s := newTestPoller(p)

	result, _ := poller.AwaitState(context.Background(), "c-1", Stopped)
	require.Equal(t, Converged, result)
	assert.Empty(t, s.sleeps)
}

func TestAwaitState_ObservationErrorsCountAsAttempts(t *testing.T) {
	p := newFakePlatform("c-1")
	p.listRunningErr = errors.New("VBoxSVC unreachable")
	poller, _ := newTestPoller(p)

	result, err := poller.AwaitState(context.Background(), "c-1", Stopped)
	require.NoError(t, err)
	require.Equal(t, TimedOut, result)
	assert.Equal(t, DefaultMaxAttempts, p.count("list-running"))
}

func TestAwaitState_Interrupted(t *testing.T) {
	p := newFakePlatform("c-1")
	p.running["c-1"] = true
	poller, s := newTestPoller(p)

	ctx, cancel := context.WithCancel(context.Background())
	s.onSleep = func(n int) {
		if n == 5 {
			cancel()
		}
	}

	_, err := poller.AwaitState(ctx, "c-1", Stopped)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, p.count("list-running"), "polling should stop after 5 observations")
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
}
