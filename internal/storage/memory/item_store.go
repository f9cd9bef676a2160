package memory

import (
	"context"
	"sort"
	"sync"

	"ge-market-watch/internal/domain"
	"ge-market-watch/internal/storage"
)

// ItemStore is an in-memory implementation of storage.ItemStore.
type ItemStore struct {
	mu    sync.RWMutex
	items map[int]*domain.ItemMetadata
}

// NewItemStore creates a new in-memory item store.
func NewItemStore() *ItemStore {
	return &ItemStore{items: make(map[int]*domain.ItemMetadata)}
}

// Compile-time interface check.
var _ storage.ItemStore = (*ItemStore)(nil)

// UpsertAll replaces catalog rows for the given items.
func (s *ItemStore) UpsertAll(_ context.Context, items []*domain.ItemMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		if it == nil || it.ID <= 0 {
			return storage.ErrInvalidInput
		}
		cp := *it
		s.items[it.ID] = &cp
	}
	return nil
}

// GetByID retrieves one item. Returns ErrNotFound if not exists.
func (s *ItemStore) GetByID(_ context.Context, itemID int) (*domain.ItemMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it, ok := s.items[itemID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *it
	return &cp, nil
}

// GetAll retrieves the full catalog, ordered by item id ASC.
func (s *ItemStore) GetAll(_ context.Context) ([]*domain.ItemMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ItemMetadata, 0, len(s.items))
	for _, it := range s.items {
		cp := *it
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
