package crawlctl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ops-vnc/adconsole/internal/console"
)

type fakeStatusSource struct {
	mu       sync.Mutex
	statuses []string
	err      error
	calls    int
}

func (s *fakeStatusSource) CrawlStatus(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	idx := s.calls - 1
	if idx >= len(s.statuses) {
		idx = len(s.statuses) - 1
	}
	return s.statuses[idx], nil
}

func (s *fakeStatusSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestPollerPollsImmediately(t *testing.T) {
	t.Parallel()

	source := &fakeStatusSource{statuses: []string{"running"}}
	c := NewController(&fakeStarter{}, newFakeClock(time.Now()), zap.NewNop())
	p := NewPoller(source, c, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return c.State().State == console.RunStateRunning
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, source.callCount())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}

func TestPollerKeepsTicking(t *testing.T) {
	t.Parallel()

	source := &fakeStatusSource{statuses: []string{"running", "running", "done"}}
	c := NewController(&fakeStarter{}, newFakeClock(time.Now()), zap.NewNop())
	p := NewPoller(source, c, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		return c.State().State == console.RunStateDone
	}, time.Second, 5*time.Millisecond)
	require.GreaterOrEqual(t, source.callCount(), 3)
}

func TestPollerIgnoresErrors(t *testing.T) {
	t.Parallel()

	source := &fakeStatusSource{err: errors.New("timeout")}
	c := NewController(&fakeStarter{}, newFakeClock(time.Now()), zap.NewNop())
	c.Observe("running")
	p := NewPoller(source, c, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	// Failed polls never touch the state.
	require.Equal(t, console.RunStateRunning, c.State().State)
	require.GreaterOrEqual(t, source.callCount(), 2)
}

func TestPollerIntervalFallback(t *testing.T) {
	t.Parallel()

	p := NewPoller(&fakeStatusSource{statuses: []string{"idle"}}, nil, 0, zap.NewNop())
	require.Equal(t, 3*time.Second, p.interval)
}
