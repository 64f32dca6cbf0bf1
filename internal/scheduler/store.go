// Package scheduler edits the backend's recurring-crawl cadence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ops-vnc/adconsole/internal/console"
)

// Backend is the slice of the API client the store needs.
type Backend interface {
	SchedulerConfig(ctx context.Context) (console.SchedulerConfig, error)
	UpdateSchedulerConfig(ctx context.Context, cfg console.SchedulerConfig) error
}

// Validation errors reported before any request is sent.
var (
	ErrInvalidInterval = errors.New("interval must be a positive integer")
	ErrInvalidUnit     = errors.New("unit must be one of seconds, minutes, hours")
)

var validUnits = map[string]struct{}{
	"seconds": {},
	"minutes": {},
	"hours":   {},
}

// Store holds the editable scheduler config. Load failures keep the
// in-memory defaults and are logged only; the cadence editor is not worth an
// operator-facing error.
type Store struct {
	backend Backend
	logger  *zap.Logger

	mu  sync.Mutex
	cfg console.SchedulerConfig
}

// New constructs a Store with the default cadence (every 5 minutes).
func New(backend Backend, logger *zap.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
		cfg:     console.SchedulerConfig{Interval: 5, Unit: "minutes"},
	}
}

// Current returns the last loaded or saved config.
func (s *Store) Current() console.SchedulerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Load fetches the backend config and overwrites the local copy on success.
func (s *Store) Load(ctx context.Context) {
	cfg, err := s.backend.SchedulerConfig(ctx)
	if err != nil {
		s.logger.Warn("scheduler config load failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Save validates and pushes a new cadence. Values that fail validation are
// rejected before any request is sent.
func (s *Store) Save(ctx context.Context, interval int, unit string) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	if _, ok := validUnits[unit]; !ok {
		return ErrInvalidUnit
	}
	cfg := console.SchedulerConfig{Interval: interval, Unit: unit}
	if err := s.backend.UpdateSchedulerConfig(ctx, cfg); err != nil {
		return fmt.Errorf("save scheduler config: %w", err)
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}
