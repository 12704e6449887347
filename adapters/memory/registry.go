// Package memory provides in-memory implementations for testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/artpar/patchbay/domain/module"
)

// RegistryStore is an in-memory implementation of ports.RegistryStore.
type RegistryStore struct {
	mu      sync.RWMutex
	records map[string]module.PluginRecord // by path
}

// NewRegistryStore creates a new in-memory plugin registry.
func NewRegistryStore() *RegistryStore {
	return &RegistryStore{
		records: make(map[string]module.PluginRecord),
	}
}

// Upsert inserts or replaces the record keyed by path. The store owns
// the CreatedAt and UpdatedAt stamps; values on rec are ignored.
func (s *RegistryStore) Upsert(ctx context.Context, rec module.PluginRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if prev, ok := s.records[rec.Path]; ok {
		rec.CreatedAt = prev.CreatedAt
	} else {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	s.records[rec.Path] = rec
	return nil
}

// Get retrieves a record by plugin path.
func (s *RegistryStore) Get(ctx context.Context, path string) (module.PluginRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[path]
	if !ok {
		return module.PluginRecord{}, fmt.Errorf("plugin %s not in registry", path)
	}
	return rec, nil
}

// List returns all records ordered by path.
func (s *RegistryStore) List(ctx context.Context) ([]module.PluginRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]module.PluginRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// SetEnabled flips the operator enable flag for a plugin.
func (s *RegistryStore) SetEnabled(ctx context.Context, path string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[path]
	if !ok {
		return fmt.Errorf("plugin %s not in registry", path)
	}
	rec.Enabled = enabled
	s.records[path] = rec
	return nil
}

// Delete removes a record.
func (s *RegistryStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, path)
	return nil
}
