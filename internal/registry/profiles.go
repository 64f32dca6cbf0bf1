package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ops-vnc/adconsole/internal/console"
)

// ErrNameRequired is returned when a profile create has no name.
var ErrNameRequired = errors.New("profile name is required")

// ProfileBackend is the slice of the API client the profile registry needs.
type ProfileBackend interface {
	ListProfiles(ctx context.Context) ([]console.Profile, error)
	CreateProfile(ctx context.Context, p console.Profile) error
	UpdateProfile(ctx context.Context, id string, updated map[string]string) error
	DeleteProfile(ctx context.Context, id string) error
}

// Profiles is the browser-profile registry.
type Profiles struct {
	backend ProfileBackend

	mu    sync.Mutex
	items []console.Profile
}

// NewProfiles constructs a profile registry.
func NewProfiles(backend ProfileBackend) *Profiles {
	return &Profiles{backend: backend}
}

// Refresh replaces the cached list from the backend.
func (p *Profiles) Refresh(ctx context.Context) error {
	items, err := p.backend.ListProfiles(ctx)
	if err != nil {
		return fmt.Errorf("refresh profiles: %w", err)
	}
	p.mu.Lock()
	p.items = items
	p.mu.Unlock()
	return nil
}

// List returns a copy of the cached profiles.
func (p *Profiles) List() []console.Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]console.Profile, len(p.items))
	copy(out, p.items)
	return out
}

// Names returns the cached profile names, for filter option lists.
func (p *Profiles) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.items))
	for _, item := range p.items {
		out = append(out, item.Name)
	}
	return out
}

// Create registers a profile, then refreshes. The name is required.
func (p *Profiles) Create(ctx context.Context, profile console.Profile) error {
	if strings.TrimSpace(profile.Name) == "" {
		return ErrNameRequired
	}
	if err := p.backend.CreateProfile(ctx, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return p.Refresh(ctx)
}

// Update applies a partial update, then refreshes.
func (p *Profiles) Update(ctx context.Context, id string, updated map[string]string) error {
	if err := p.backend.UpdateProfile(ctx, id, updated); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return p.Refresh(ctx)
}

// Delete removes a profile, then refreshes.
func (p *Profiles) Delete(ctx context.Context, id string) error {
	if err := p.backend.DeleteProfile(ctx, id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return p.Refresh(ctx)
}
