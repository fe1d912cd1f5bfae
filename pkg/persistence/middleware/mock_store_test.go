package middleware_test

import (
	"context"

	"github.com/aretw0/sluice/pkg/domain"
	"github.com/aretw0/sluice/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.Snapshot
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Snapshot),
	}
}

func (s *MockStore) Save(ctx context.Context, runID string, snap *domain.Snapshot) error {
	s.data[runID] = snap
	return nil
}

func (s *MockStore) Load(ctx context.Context, runID string) (*domain.Snapshot, error) {
	snap, ok := s.data[runID]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return snap, nil
}

func (s *MockStore) Delete(ctx context.Context, runID string) error {
	delete(s.data, runID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.RunStore = (*MockStore)(nil)
