// Package searchhist persists the operator's recent multi-select filter
// combinations across sessions as named JSON entries on local disk.
package searchhist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Entry names for the two independent histories.
const (
	DomainKey  = "domainSearchHistory"
	ProfileKey = "profileSearchHistory"
)

// DefaultDepth is how many distinct selections each history retains.
const DefaultDepth = 10

// Config captures the parameters for the search-history store.
type Config struct {
	// BaseDir is the directory where history entries are stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
	// Depth caps each history list; 0 uses DefaultDepth.
	Depth int `mapstructure:"depth" yaml:"depth"`
}

// Store holds the domain and profile selection histories, most-recent-first,
// flushed to disk on every mutation.
type Store struct {
	baseDir string
	depth   int

	mu      sync.Mutex
	entries map[string][][]string
}

// New creates a search-history store rooted at cfg.BaseDir and loads any
// previously persisted entries.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat base directory: %w", err)
		}
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	depth := cfg.Depth
	if depth <= 0 {
		depth = DefaultDepth
	}
	s := &Store{
		baseDir: cfg.BaseDir,
		depth:   depth,
		entries: make(map[string][][]string),
	}
	for _, key := range []string{DomainKey, ProfileKey} {
		if err := s.load(key); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Record prepends a selection to the named history, dropping any existing
// entry with the same content regardless of order, capping to the configured
// depth, and persisting immediately. Empty selections are ignored.
func (s *Store) Record(key string, selected []string) error {
	if len(selected) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([][]string, 0, s.depth)
	kept = append(kept, cloneList(selected))
	for _, prev := range s.entries[key] {
		if sameSet(prev, selected) {
			continue
		}
		kept = append(kept, prev)
		if len(kept) == s.depth {
			break
		}
	}
	s.entries[key] = kept
	return s.persist(key)
}

// History returns a copy of the named history, most-recent-first.
func (s *Store) History(key string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, 0, len(s.entries[key]))
	for _, entry := range s.entries[key] {
		out = append(out, cloneList(entry))
	}
	return out
}

func (s *Store) load(key string) error {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read history %s: %w", key, err)
	}
	var entries [][]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("decode history %s: %w", key, err)
	}
	if len(entries) > s.depth {
		entries = entries[:s.depth]
	}
	s.entries[key] = entries
	return nil
}

func (s *Store) persist(key string) error {
	raw, err := json.Marshal(s.entries[key])
	if err != nil {
		return fmt.Errorf("encode history %s: %w", key, err)
	}
	if err := os.WriteFile(s.path(key), raw, 0o600); err != nil {
		return fmt.Errorf("write history %s: %w", key, err)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.baseDir, key+".json")
}

// sameSet compares selections by content, ignoring order.
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := cloneList(a)
	bs := cloneList(b)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func cloneList(src []string) []string {
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}
