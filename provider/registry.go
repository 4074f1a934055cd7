// Package provider hands out database connections by configuration id.
package provider

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aalemi-dev/sqlconn/database"
)

// ErrUnknownConfiguration is returned for ids that were never registered.
var ErrUnknownConfiguration = errors.New("unknown database configuration")

// Entry builds the configuration registered under an id. It is called at most
// once, on first use.
type Entry interface {
	Configuration(id string) (*database.Configuration, error)
}

// EntryFunc adapts a function to Entry.
type EntryFunc func(id string) (*database.Configuration, error)

func (f EntryFunc) Configuration(id string) (*database.Configuration, error) { return f(id) }

type registration struct {
	entry Entry
	once  sync.Once
	cfg   *database.Configuration
	err   error
}

// Registry maps configuration ids to configurations. It is safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registration)}
}

// Register adds a ready configuration under its own id, replacing any earlier
// registration.
func (r *Registry) Register(cfg *database.Configuration) {
	reg := &registration{cfg: cfg}
	reg.once.Do(func() {})

	r.mu.Lock()
	r.entries[cfg.ID()] = reg
	r.mu.Unlock()
}

// Define registers entry under id. The configuration is built on first lookup.
func (r *Registry) Define(id string, entry Entry) {
	r.mu.Lock()
	r.entries[id] = &registration{entry: entry}
	r.mu.Unlock()
}

// Configuration returns the configuration for id.
func (r *Registry) Configuration(id string) (*database.Configuration, error) {
	r.mu.RLock()
	reg, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConfiguration, id)
	}

	reg.once.Do(func() {
		reg.cfg, reg.err = reg.entry.Configuration(id)
	})
	if reg.err != nil {
		return nil, fmt.Errorf("building configuration %q: %w", id, reg.err)
	}
	return reg.cfg, nil
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
