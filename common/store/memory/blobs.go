package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
)

// BlobStore keeps image bytes by content ref. Put of an existing ref is a no-op.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string]*models.Blob
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string]*models.Blob)}
}

func (s *BlobStore) Put(_ context.Context, blob *models.Blob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blobs[blob.Ref]; exists {
		return nil
	}
	cp := *blob
	cp.Content = append([]byte(nil), blob.Content...)
	s.blobs[blob.Ref] = &cp
	return nil
}

func (s *BlobStore) Get(_ context.Context, ref string) (*models.Blob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blobs[ref]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", ref, store.ErrNotFound)
	}
	cp := *b
	cp.Content = append([]byte(nil), b.Content...)
	return &cp, nil
}
