// Package registry maintains the console's keyword and profile lists against
// the backend. Every mutation re-reads the full list so the cached state
// always reflects the last successful server read.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ops-vnc/adconsole/internal/console"
)

// ErrEmptyInput is returned when a create or update carries no usable text.
var ErrEmptyInput = errors.New("input is empty")

// KeywordBackend is the slice of the API client the keyword registry needs.
type KeywordBackend interface {
	ListKeywords(ctx context.Context) ([]console.Keyword, error)
	CreateKeyword(ctx context.Context, text string) error
	DeleteKeyword(ctx context.Context, id string) error
	UpdateKeyword(ctx context.Context, id, text string) error
}

// Keywords is the keyword registry.
type Keywords struct {
	backend KeywordBackend

	mu    sync.Mutex
	items []console.Keyword
}

// NewKeywords constructs a keyword registry.
func NewKeywords(backend KeywordBackend) *Keywords {
	return &Keywords{backend: backend}
}

// Refresh replaces the cached list from the backend.
func (k *Keywords) Refresh(ctx context.Context) error {
	items, err := k.backend.ListKeywords(ctx)
	if err != nil {
		return fmt.Errorf("refresh keywords: %w", err)
	}
	k.mu.Lock()
	k.items = items
	k.mu.Unlock()
	return nil
}

// List returns a copy of the cached keywords.
func (k *Keywords) List() []console.Keyword {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]console.Keyword, len(k.items))
	copy(out, k.items)
	return out
}

// SplitBatch parses a raw batch-add input: comma-separated, trimmed, empty
// segments discarded.
func SplitBatch(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Add creates one keyword per comma-separated segment, sequentially, then
// refreshes. Returns how many creates were issued.
func (k *Keywords) Add(ctx context.Context, raw string) (int, error) {
	segments := SplitBatch(raw)
	if len(segments) == 0 {
		return 0, ErrEmptyInput
	}
	for _, text := range segments {
		if err := k.backend.CreateKeyword(ctx, text); err != nil {
			return 0, fmt.Errorf("create keyword %q: %w", text, err)
		}
	}
	return len(segments), k.Refresh(ctx)
}

// Update replaces a keyword's text, then refreshes.
func (k *Keywords) Update(ctx context.Context, id, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	if err := k.backend.UpdateKeyword(ctx, id, text); err != nil {
		return fmt.Errorf("update keyword: %w", err)
	}
	return k.Refresh(ctx)
}

// Delete removes one keyword, then refreshes.
func (k *Keywords) Delete(ctx context.Context, id string) error {
	if err := k.backend.DeleteKeyword(ctx, id); err != nil {
		return fmt.Errorf("delete keyword: %w", err)
	}
	return k.Refresh(ctx)
}

// DeleteMany removes keywords sequentially, then refreshes once.
func (k *Keywords) DeleteMany(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := k.backend.DeleteKeyword(ctx, id); err != nil {
			return fmt.Errorf("delete keyword %s: %w", id, err)
		}
	}
	return k.Refresh(ctx)
}

// Search filters the cached keywords by accent-insensitive substring match,
// so "quan ao" finds "quần áo". An empty term returns the full list.
func (k *Keywords) Search(term string) []console.Keyword {
	term = strings.TrimSpace(term)
	if term == "" {
		return k.List()
	}
	query := foldAccents(strings.ToLower(term))
	var out []console.Keyword
	for _, kw := range k.List() {
		if strings.Contains(foldAccents(strings.ToLower(kw.Text)), query) {
			out = append(out, kw)
		}
	}
	return out
}

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldAccents(s string) string {
	folded, _, err := transform.String(accentStripper, s)
	if err != nil {
		return s
	}
	// NFD does not decompose the Vietnamese đ.
	folded = strings.ReplaceAll(folded, "đ", "d")
	return strings.ReplaceAll(folded, "Đ", "D")
}
