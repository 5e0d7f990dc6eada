// Package memory provides in-process implementations of the store interfaces.
// Every read returns copies so callers can never mutate stored state.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
)

// FarmerStore keeps farmers in a map guarded by one RWMutex
type FarmerStore struct {
	mu      sync.RWMutex
	farmers map[string]*models.Farmer
	order   []string
}

func NewFarmerStore() *FarmerStore {
	return &FarmerStore{farmers: make(map[string]*models.Farmer)}
}

func (s *FarmerStore) Create(_ context.Context, farmer *models.Farmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.farmers[farmer.EFN]; exists {
		return fmt.Errorf("farmer %s: %w", farmer.EFN, store.ErrConflict)
	}
	s.farmers[farmer.EFN] = farmer.Clone()
	s.order = append(s.order, farmer.EFN)
	return nil
}

func (s *FarmerStore) Get(_ context.Context, efn string) (*models.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.farmers[efn]
	if !ok {
		return nil, fmt.Errorf("farmer %s: %w", efn, store.ErrNotFound)
	}
	return f.Clone(), nil
}

func (s *FarmerStore) Update(_ context.Context, efn string, fn func(*models.Farmer) error) (*models.Farmer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.farmers[efn]
	if !ok {
		return nil, fmt.Errorf("farmer %s: %w", efn, store.ErrNotFound)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.EFN = efn
	next.UpdatedAt = time.Now().UTC()
	s.farmers[efn] = next
	return next.Clone(), nil
}

// List returns farmers in registration order
func (s *FarmerStore) List(_ context.Context) ([]*models.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Farmer, 0, len(s.order))
	for _, efn := range s.order {
		out = append(out, s.farmers[efn].Clone())
	}
	return out, nil
}

func (s *FarmerStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.farmers), nil
}
