// Package store defines the persistence boundary of the subsidy decision core.
// Decision components depend only on these interfaces.
package store

import (
	"context"
	"errors"

	"github.com/efarmer/subsidy/common/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("already exists")
	ErrDuplicateRule = errors.New("duplicate entitlement rule")
	ErrInvalidRule   = errors.New("invalid entitlement rule")
)

// RuleSource returns the ordered rule collection as one consistent snapshot
type RuleSource interface {
	Rules(ctx context.Context) ([]models.EntitlementRule, error)
}

// RuleWriter replaces the whole rule collection atomically
type RuleWriter interface {
	ReplaceRules(ctx context.Context, rules []models.EntitlementRule) error
}

// FarmerStore persists farmer records keyed by EFN
type FarmerStore interface {
	// Create inserts a new farmer. Returns ErrConflict if the EFN is taken.
	Create(ctx context.Context, farmer *models.Farmer) error
	Get(ctx context.Context, efn string) (*models.Farmer, error)

	// Update applies fn to the current record and persists the result atomically.
	// If fn returns an error nothing is written.
	Update(ctx context.Context, efn string, fn func(*models.Farmer) error) (*models.Farmer, error)

	List(ctx context.Context) ([]*models.Farmer, error)
	Count(ctx context.Context) (int, error)
}

// Ledger is the append-only transaction and flagged case log
type Ledger interface {
	// Record appends txn and, when c is non-nil, its flagged case in one unit.
	// Returns ErrConflict if either id is taken; nothing is written in that case.
	Record(ctx context.Context, txn *models.Transaction, c *models.FlaggedCase) error
	Transactions(ctx context.Context) ([]*models.Transaction, error)
	Cases(ctx context.Context) ([]*models.FlaggedCase, error)
}

// UsageStore is the content hash registry: digest -> ordered usage list
type UsageStore interface {
	// AppendUsage atomically returns the usages recorded before this call
	// and appends usage to the list for digest.
	AppendUsage(ctx context.Context, digest string, usage models.UsageRecord) ([]models.UsageRecord, error)
	Usages(ctx context.Context, digest string) ([]models.UsageRecord, error)
}

// BlobStore keeps uploaded image bytes addressed by content ref
type BlobStore interface {
	Put(ctx context.Context, blob *models.Blob) error
	Get(ctx context.Context, ref string) (*models.Blob, error)
}
