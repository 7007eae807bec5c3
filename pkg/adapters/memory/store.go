package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/cafe/pkg/domain"
	"github.com/aretw0/cafe/pkg/ports"
)

// Store implements ports.AutomationStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]ports.StoredAutomation
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]ports.StoredAutomation),
	}
}

// Save stores a copy of the automation.
func (s *Store) Save(ctx context.Context, a *ports.StoredAutomation) error {
	if err := ports.ValidateID(a.ID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[a.ID] = *a
	return nil
}

// Load returns a copy so callers cannot mutate the stored value.
func (s *Store) Load(ctx context.Context, id string) (*ports.StoredAutomation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.data[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

// Delete removes the automation.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored ids, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
