package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zenGate-Global/palmyra-sharding/domains/sharding/be/service"
)

// MemoryStore is a simple in-memory directory store suitable for tests and
// single-instance development.
type MemoryStore struct {
	mu     sync.RWMutex
	byName map[string]service.DatabaseInformation
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byName: make(map[string]service.DatabaseInformation)}
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]service.DatabaseInformation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]service.DatabaseInformation, 0, len(s.byName))
	for _, info := range s.byName {
		entries = append(entries, info)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *MemoryStore) GetByName(ctx context.Context, name string) (service.DatabaseInformation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.byName[name]
	if !ok {
		return service.DatabaseInformation{}, service.ErrNotFound
	}
	return info, nil
}

func (s *MemoryStore) Add(ctx context.Context, info service.DatabaseInformation) error {
	if err := info.ValidateForWrite(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[info.Name]; exists {
		return fmt.Errorf("%w: %q", service.ErrDuplicateName, info.Name)
	}
	s.byName[info.Name] = info
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, info service.DatabaseInformation) error {
	if err := info.ValidateForWrite(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[info.Name]; !exists {
		return fmt.Errorf("%w: %q", service.ErrNotFound, info.Name)
	}
	s.byName[info.Name] = info
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byName[name]; !exists {
		return fmt.Errorf("%w: %q", service.ErrNotFound, name)
	}
	delete(s.byName, name)
	return nil
}

// Ensure interface compliance.
var _ service.Store = (*MemoryStore)(nil)
