package store

import (
	"context"
	"sync"

	"github.com/mnavtrack/nav-engine/internal/model"
)

// MemoryStore implements Store in process memory. Parameters are lost on
// restart and re-seeded from configuration.
type MemoryStore struct {
	mu       sync.RWMutex
	treasury *model.TreasuryParameters
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) GetTreasury(_ context.Context) (*model.TreasuryParameters, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.treasury == nil {
		return nil, ErrNotFound
	}
	copy := *s.treasury
	return &copy, nil
}

func (s *MemoryStore) SaveTreasury(_ context.Context, params *model.TreasuryParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	copy := *params
	s.treasury = &copy
	return nil
}
