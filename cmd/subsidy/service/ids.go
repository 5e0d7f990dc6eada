package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/efarmer/subsidy/common/store"
)

// maxIDAttempts bounds regeneration after an id collision
const maxIDAttempts = 5

// IDGenerator mints the public identifiers of farmers, transactions and cases
type IDGenerator interface {
	FarmerID(district string) string
	TransactionID(at time.Time) string
	CaseID() string
}

// UUIDGenerator derives identifiers from random UUIDs
type UUIDGenerator struct{}

// FarmerID returns EFN-<DIST3>-<8 hex>
func (UUIDGenerator) FarmerID(district string) string {
	return fmt.Sprintf("EFN-%s-%s", districtCode(district), randomHex(8))
}

// TransactionID returns TXN-<yyyymmdd>-<6 hex>
func (UUIDGenerator) TransactionID(at time.Time) string {
	return fmt.Sprintf("TXN-%s-%s", at.Format("20060102"), randomHex(6))
}

// CaseID returns CASE-<8 hex>
func (UUIDGenerator) CaseID() string {
	return "CASE-" + randomHex(8)
}

func randomHex(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:n])
}

// districtCode is the upper-cased first three letters of the district, IND when empty
func districtCode(district string) string {
	district = strings.TrimSpace(district)
	if district == "" {
		return "IND"
	}
	runes := []rune(strings.ToUpper(district))
	if len(runes) > 3 {
		runes = runes[:3]
	}
	for i, r := range runes {
		if unicode.IsSpace(r) {
			runes[i] = '-'
		}
	}
	return string(runes)
}

// withFreshID retries write with newly generated ids while it reports ErrConflict
func withFreshID(ctx context.Context, write func() error) error {
	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = write()
		if !errors.Is(err, store.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("no free identifier after %d attempts: %w", maxIDAttempts, err)
}
