package crawlctl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ops-vnc/adconsole/internal/metrics"
)

// StatusSource reports the backend crawl status.
type StatusSource interface {
	CrawlStatus(ctx context.Context) (string, error)
}

// Poller periodically queries crawl status and feeds the Controller. Poll
// failures are logged and otherwise ignored; the next tick tries again.
type Poller struct {
	source     StatusSource
	controller *Controller
	interval   time.Duration
	logger     *zap.Logger
}

// NewPoller constructs a Poller. A non-positive interval falls back to 3s.
func NewPoller(source StatusSource, controller *Controller, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Poller{
		source:     source,
		controller: controller,
		interval:   interval,
		logger:     logger,
	}
}

// Run blocks, polling immediately and then on every tick until the context
// finishes. No state update is applied after cancellation.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	status, err := p.source.CrawlStatus(ctx)
	if err != nil {
		// Transient poll failures are background noise, never surfaced.
		p.logger.Debug("crawl status poll failed", zap.Error(err))
		metrics.PollObserved("error")
		return
	}
	if ctx.Err() != nil {
		return
	}
	metrics.PollObserved(status)
	p.controller.Observe(status)
}
