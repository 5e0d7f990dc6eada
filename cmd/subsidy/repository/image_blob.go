package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/efarmer/subsidy/common/db"
	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
)

// ImageBlobRepository handles database operations for uploaded image bytes
type ImageBlobRepository struct {
	db *db.DB
}

// NewImageBlobRepository creates a new image blob repository
func NewImageBlobRepository(db *db.DB) *ImageBlobRepository {
	return &ImageBlobRepository{db: db}
}

// Put inserts a blob. An existing ref is left untouched.
func (r *ImageBlobRepository) Put(ctx context.Context, blob *models.Blob) error {
	query := `
		INSERT INTO image_blob (ref, media_type, size_bytes, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ref) DO NOTHING
	`

	_, err := r.db.Exec(ctx, query,
		blob.Ref,
		blob.MediaType,
		blob.SizeBytes,
		blob.Content,
		blob.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create image blob: %w", err)
	}

	return nil
}

// Get retrieves a blob by ref
func (r *ImageBlobRepository) Get(ctx context.Context, ref string) (*models.Blob, error) {
	query := `
		SELECT ref, media_type, size_bytes, content, created_at
		FROM image_blob
		WHERE ref = $1
	`

	blob := &models.Blob{}
	err := r.db.QueryRow(ctx, query, ref).Scan(
		&blob.Ref,
		&blob.MediaType,
		&blob.SizeBytes,
		&blob.Content,
		&blob.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("image blob %s: %w", ref, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get image blob: %w", err)
	}

	return blob, nil
}
