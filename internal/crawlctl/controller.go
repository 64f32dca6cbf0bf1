// Package crawlctl drives crawl runs: starting jobs against the backend and
// tracking the observed run state through status polling.
package crawlctl

import (
	"context"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/ops-vnc/adconsole/internal/backend"
	"github.com/ops-vnc/adconsole/internal/console"
	"github.com/ops-vnc/adconsole/internal/metrics"
)

// Starter issues crawl-start requests.
type Starter interface {
	StartCrawl(ctx context.Context) (backend.StartResult, error)
}

// Start outcome messages surfaced to the operator.
const (
	MsgJobStarted         = "job started"
	MsgConflictPrefix     = "cannot start: "
	MsgServerErrorPrefix  = "server error: "
	MsgNetworkError       = "network error"
	DefaultConflictReason = "another job is active"
)

// Controller owns the console's view of the backend crawl. The backend's 409
// response is the single source of mutual exclusion; the controller holds no
// lock of its own beyond protecting its state snapshot.
type Controller struct {
	starter Starter
	clock   console.Clock
	logger  *zap.Logger

	mu    sync.Mutex
	state console.CrawlState
}

// NewController constructs a Controller in the Idle state.
func NewController(starter Starter, clock console.Clock, logger *zap.Logger) *Controller {
	return &Controller{
		starter: starter,
		clock:   clock,
		logger:  logger,
		state:   console.CrawlState{State: console.RunStateIdle},
	}
}

// State returns a snapshot of the current crawl state.
func (c *Controller) State() console.CrawlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartCrawl stamps the start time, clears the previous outcome, and issues
// the start request. It is fire-and-forget with respect to completion: the
// poller alone moves the state to Done.
func (c *Controller) StartCrawl(ctx context.Context) console.CrawlState {
	now := c.clock.Now()
	c.mu.Lock()
	c.state.StartTime = &now
	c.state.EndTime = nil
	c.state.Message = ""
	c.mu.Unlock()

	result, err := c.starter.StartCrawl(ctx)
	if err != nil {
		c.logger.Warn("crawl start request failed", zap.Error(err))
		metrics.CrawlStartObserved("network_error")
		return c.setMessage(MsgNetworkError)
	}

	switch result.StatusCode {
	case http.StatusAccepted:
		metrics.CrawlStartObserved("accepted")
		c.mu.Lock()
		c.state.Message = MsgJobStarted
		c.state.State = console.RunStateRunning
		snapshot := c.state
		c.mu.Unlock()
		return snapshot
	case http.StatusConflict:
		metrics.CrawlStartObserved("conflict")
		reason := result.ConflictReason
		if reason == "" {
			reason = DefaultConflictReason
		}
		// Run state stays whatever the poller last observed: a crawl is
		// already active.
		return c.setMessage(MsgConflictPrefix + reason)
	default:
		metrics.CrawlStartObserved("server_error")
		return c.setMessage(MsgServerErrorPrefix + result.Body)
	}
}

// Observe applies one poll response to the run state.
func (c *Controller) Observe(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch status {
	case "running":
		c.state.State = console.RunStateRunning
		c.state.Message = ""
	case "done":
		if c.state.State == console.RunStateRunning {
			now := c.clock.Now()
			c.state.State = console.RunStateDone
			c.state.EndTime = &now
			c.state.Message = ""
		}
	default:
		c.state.State = console.RunStateIdle
	}
}

func (c *Controller) setMessage(msg string) console.CrawlState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Message = msg
	return c.state
}
