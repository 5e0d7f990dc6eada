package service

import (
	"context"
	"fmt"
	"time"

	"github.com/efarmer/subsidy/common/imagededup"
	"github.com/efarmer/subsidy/common/logger"
	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
)

// BlobService handles content-addressed image storage
type BlobService struct {
	blobs store.BlobStore
	log   *logger.Logger
}

// NewBlobService creates a new blob service
func NewBlobService(blobs store.BlobStore, log *logger.Logger) *BlobService {
	return &BlobService{
		blobs: blobs,
		log:   log,
	}
}

// StoreContent stores content under its digest and returns the digest and ref
func (s *BlobService) StoreContent(ctx context.Context, content []byte, mediaType string) (string, string, error) {
	digest := imagededup.Digest(content)
	ref := imagededup.Ref(digest)

	blob := &models.Blob{
		Ref:       ref,
		MediaType: mediaType,
		SizeBytes: int64(len(content)),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.blobs.Put(ctx, blob); err != nil {
		return "", "", fmt.Errorf("failed to store content: %w", err)
	}

	s.log.Debug("stored image blob", "ref", ref, "size_bytes", len(content))
	return digest, ref, nil
}

// GetBlob retrieves a stored image by ref
func (s *BlobService) GetBlob(ctx context.Context, ref string) (*models.Blob, error) {
	blob, err := s.blobs.Get(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return blob, nil
}
