// Package journal records every applied mutation so operators can audit
// what the natural-language front-end and the direct API changed.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidEntry is returned when an entry has no action
	ErrInvalidEntry = errors.New("invalid journal entry")
	// ErrUnknownJournal is returned when no backend is registered under a name
	ErrUnknownJournal = errors.New("unknown journal type")
)

// Entry is one applied mutation
type Entry struct {
	ID       string                 `json:"id"`
	Action   string                 `json:"action"`
	Source   string                 `json:"source"`
	Subject  string                 `json:"subject,omitempty"`
	Class    string                 `json:"class,omitempty"`
	Question string                 `json:"question,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
	At       time.Time              `json:"at"`
}

// Journal stores entries
type Journal interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	// Recent returns up to limit entries, newest first
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// prepare validates e and fills in its ID and timestamp.
func prepare(e Entry) (Entry, error) {
	if e.Action == "" {
		return e, fmt.Errorf("%w: missing action", ErrInvalidEntry)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	return e, nil
}

// Factory creates a journal from backend-specific options
type Factory func(config map[string]interface{}) (Journal, error)

var (
	journalMu       sync.RWMutex
	journalRegistry = make(map[string]Factory)
)

// Register registers a journal backend
func Register(name string, factory Factory) {
	journalMu.Lock()
	defer journalMu.Unlock()
	journalRegistry[name] = factory
}

// New creates a journal by backend name
func New(name string, config map[string]interface{}) (Journal, error) {
	journalMu.RLock()
	factory, exists := journalRegistry[name]
	journalMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s (registered: %s)", ErrUnknownJournal, name, strings.Join(Backends(), ", "))
	}
	return factory(config)
}

// Backends returns all registered backend names
func Backends() []string {
	journalMu.RLock()
	defer journalMu.RUnlock()

	names := make([]string, 0, len(journalRegistry))
	for name := range journalRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("memory", func(config map[string]interface{}) (Journal, error) {
		return NewMemoryJournal(), nil
	})

	Register("jsonfile", func(config map[string]interface{}) (Journal, error) {
		path, ok := config["path"].(string)
		if !ok || path == "" {
			path = "data/journal.jsonl"
		}
		return NewFileJournal(path)
	})

	Register("sqlite", func(config map[string]interface{}) (Journal, error) {
		path, ok := config["path"].(string)
		if !ok || path == "" {
			path = "data/journal.db"
		}
		cfg := SQLiteConfig{
			Path:        path,
			EnableWAL:   true,
			BusyTimeout: 5000,
		}
		if wal, ok := config["enable_wal"].(bool); ok {
			cfg.EnableWAL = wal
		}
		if timeout, ok := config["busy_timeout"].(int); ok {
			cfg.BusyTimeout = timeout
		}
		return NewSQLiteJournal(cfg)
	})
}

// MemoryJournal keeps entries in memory
type MemoryJournal struct {
	entries []Entry
	mu      sync.RWMutex
}

// NewMemoryJournal creates an empty in-memory journal
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Append stores e
func (j *MemoryJournal) Append(ctx context.Context, e Entry) (Entry, error) {
	e, err := prepare(e)
	if err != nil {
		return e, err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return e, nil
}

// Recent returns up to limit entries, newest first
func (j *MemoryJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return newestFirst(j.entries, limit), nil
}

// Close is a no-op
func (j *MemoryJournal) Close() error { return nil }

func newestFirst(entries []Entry, limit int) []Entry {
	n := len(entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Entry, 0, n)
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}
	return out
}
