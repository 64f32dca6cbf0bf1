package crawlctl

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ops-vnc/adconsole/internal/backend"
	"github.com/ops-vnc/adconsole/internal/console"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeStarter struct {
	result backend.StartResult
	err    error
	calls  int
}

func (s *fakeStarter) StartCrawl(context.Context) (backend.StartResult, error) {
	s.calls++
	return s.result, s.err
}

func TestStartCrawlAccepted(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	starter := &fakeStarter{result: backend.StartResult{StatusCode: http.StatusAccepted}}
	c := NewController(starter, clock, zap.NewNop())

	state := c.StartCrawl(context.Background())

	require.Equal(t, console.RunStateRunning, state.State)
	require.Equal(t, MsgJobStarted, state.Message)
	require.NotNil(t, state.StartTime)
	require.Equal(t, clock.Now(), *state.StartTime)
	require.Nil(t, state.EndTime)
	require.Equal(t, 1, starter.calls)
}

func TestStartCrawlConflictKeepsRunning(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Now())
	starter := &fakeStarter{result: backend.StartResult{StatusCode: http.StatusConflict, ConflictReason: "busy"}}
	c := NewController(starter, clock, zap.NewNop())
	c.Observe("running")

	state := c.StartCrawl(context.Background())

	require.Equal(t, "cannot start: busy", state.Message)
	require.Equal(t, console.RunStateRunning, state.State)
}

func TestStartCrawlConflictDefaultReason(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{result: backend.StartResult{StatusCode: http.StatusConflict}}
	c := NewController(starter, newFakeClock(time.Now()), zap.NewNop())

	state := c.StartCrawl(context.Background())

	require.Equal(t, MsgConflictPrefix+DefaultConflictReason, state.Message)
}

func TestStartCrawlServerError(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{result: backend.StartResult{StatusCode: http.StatusInternalServerError, Body: "boom"}}
	c := NewController(starter, newFakeClock(time.Now()), zap.NewNop())

	state := c.StartCrawl(context.Background())

	require.Equal(t, "server error: boom", state.Message)
	require.Equal(t, console.RunStateIdle, state.State)
}

func TestStartCrawlNetworkError(t *testing.T) {
	t.Parallel()

	starter := &fakeStarter{err: errors.New("connection refused")}
	c := NewController(starter, newFakeClock(time.Now()), zap.NewNop())

	state := c.StartCrawl(context.Background())

	require.Equal(t, MsgNetworkError, state.Message)
	require.Equal(t, console.RunStateIdle, state.State)
}

func TestStartCrawlClearsPreviousOutcome(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	starter := &fakeStarter{result: backend.StartResult{StatusCode: http.StatusAccepted}}
	c := NewController(starter, clock, zap.NewNop())

	c.StartCrawl(context.Background())
	c.Observe("done")
	require.NotNil(t, c.State().EndTime)

	clock.Advance(time.Hour)
	state := c.StartCrawl(context.Background())

	require.Nil(t, state.EndTime)
	require.Equal(t, clock.Now(), *state.StartTime)
}

func TestObserveTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		statuses []string
		want     console.RunState
		wantEnd  bool
	}{
		{"running", []string{"running"}, console.RunStateRunning, false},
		{"done after running", []string{"running", "done"}, console.RunStateDone, true},
		{"done while idle is ignored", []string{"done"}, console.RunStateIdle, false},
		{"unknown status goes idle", []string{"running", "stopped"}, console.RunStateIdle, false},
		{"done is sticky", []string{"running", "done", "done"}, console.RunStateDone, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewController(&fakeStarter{}, newFakeClock(time.Now()), zap.NewNop())
			for _, status := range tt.statuses {
				c.Observe(status)
			}

			state := c.State()
			require.Equal(t, tt.want, state.State)
			if tt.wantEnd {
				require.NotNil(t, state.EndTime)
			} else {
				require.Nil(t, state.EndTime)
			}
		})
	}
}

func TestObserveDoneStampsEndTimeOnce(t *testing.T) {
	t.Parallel()

	clock := newFakeClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	c := NewController(&fakeStarter{}, clock, zap.NewNop())

	c.Observe("running")
	c.Observe("done")
	first := c.State().EndTime
	require.NotNil(t, first)

	clock.Advance(time.Minute)
	c.Observe("done")
	require.Equal(t, *first, *c.State().EndTime)
}
