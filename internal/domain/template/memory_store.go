package template

import (
	"context"
	"sync"
	"time"

	"stockledger/internal/core/id"
)

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

// MemoryStore is an in-process Store with per-entry expiry.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (*Snapshot, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	snap := e.snap.clone()
	return &snap, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, snap *Snapshot, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{snap: snap.clone(), expiresAt: s.now().Add(ttl)}
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.VariantIDs = append([]id.ID(nil), s.VariantIDs...)
	if s.TemplateID != nil {
		tid := *s.TemplateID
		out.TemplateID = &tid
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
