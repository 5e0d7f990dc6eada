package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/efarmer/subsidy/common/db"
	"github.com/efarmer/subsidy/common/models"
)

// ImageHashRepository is the Postgres content hash registry.
// The row lock taken in AppendUsage serializes writers of one digest.
type ImageHashRepository struct {
	db *db.DB
}

// NewImageHashRepository creates a new image hash repository
func NewImageHashRepository(db *db.DB) *ImageHashRepository {
	return &ImageHashRepository{db: db}
}

// AppendUsage returns the usages recorded before this call and appends usage
func (r *ImageHashRepository) AppendUsage(ctx context.Context, digest string, usage models.UsageRecord) ([]models.UsageRecord, error) {
	var prior []models.UsageRecord

	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO image_hash (digest) VALUES ($1)
			ON CONFLICT (digest) DO NOTHING
		`, digest); err != nil {
			return fmt.Errorf("failed to create image hash: %w", err)
		}

		var raw []byte
		if err := tx.QueryRow(ctx, `SELECT usages FROM image_hash WHERE digest = $1 FOR UPDATE`, digest).Scan(&raw); err != nil {
			return fmt.Errorf("failed to lock image hash: %w", err)
		}

		usages, err := decodeUsageList(raw)
		if err != nil {
			return err
		}
		prior = usages

		next, err := json.Marshal(append(append([]models.UsageRecord{}, usages...), usage))
		if err != nil {
			return fmt.Errorf("encode usages: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE image_hash SET usages = $2, updated_at = now()
			WHERE digest = $1
		`, digest, string(next)); err != nil {
			return fmt.Errorf("failed to append image usage: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return prior, nil
}

// Usages returns every recorded submission of digest
func (r *ImageHashRepository) Usages(ctx context.Context, digest string) ([]models.UsageRecord, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT usages FROM image_hash WHERE digest = $1`, digest).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get image usages: %w", err)
	}
	return decodeUsageList(raw)
}

func decodeUsageList(raw []byte) ([]models.UsageRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var usages []models.UsageRecord
	if err := json.Unmarshal(raw, &usages); err != nil {
		return nil, fmt.Errorf("decode usages: %w", err)
	}
	if len(usages) == 0 {
		return nil, nil
	}
	return usages, nil
}
