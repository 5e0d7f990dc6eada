package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/efarmer/subsidy/common/db"
	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
)

// LedgerRepository stores transactions and flagged cases
type LedgerRepository struct {
	db *db.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *db.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Record inserts the transaction and its optional case in one transaction
func (r *LedgerRepository) Record(ctx context.Context, txn *models.Transaction, c *models.FlaggedCase) error {
	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO subsidy_transaction (id, efn, dealer_id, product_type, quantity, unit, txn_date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.Exec(ctx, query,
			txn.ID,
			txn.FarmerID,
			txn.DealerID,
			txn.ProductType,
			txn.Quantity.Float64(),
			txn.Unit,
			txn.Date,
			txn.CreatedAt,
		)
		if err != nil {
			return err
		}

		if c == nil {
			return nil
		}

		caseQuery := `
			INSERT INTO flagged_case (case_id, transaction_id, efn, dealer_id, reason_code, reason, severity, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err = tx.Exec(ctx, caseQuery,
			c.CaseID,
			c.TransactionID,
			c.FarmerID,
			c.DealerID,
			c.ReasonCode,
			c.Reason,
			string(c.Severity),
			c.Timestamp,
		)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", txn.ID, store.ErrConflict)
		}
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	return nil
}

// Transactions returns the transaction log in insertion order
func (r *LedgerRepository) Transactions(ctx context.Context) ([]*models.Transaction, error) {
	query := `
		SELECT id, efn, dealer_id, product_type, quantity, unit, txn_date, created_at
		FROM subsidy_transaction
		ORDER BY seq
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		var (
			t        models.Transaction
			quantity float64
		)
		if err := rows.Scan(&t.ID, &t.FarmerID, &t.DealerID, &t.ProductType, &quantity, &t.Unit, &t.Date, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Quantity = models.Amount(quantity)
		txns = append(txns, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

// Cases returns the flagged case log in insertion order
func (r *LedgerRepository) Cases(ctx context.Context) ([]*models.FlaggedCase, error) {
	query := `
		SELECT case_id, transaction_id, efn, dealer_id, reason_code, reason, severity, created_at
		FROM flagged_case
		ORDER BY seq
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list flagged cases: %w", err)
	}
	defer rows.Close()

	var cases []*models.FlaggedCase
	for rows.Next() {
		var (
			c        models.FlaggedCase
			severity string
		)
		if err := rows.Scan(&c.CaseID, &c.TransactionID, &c.FarmerID, &c.DealerID, &c.ReasonCode, &c.Reason, &severity, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan flagged case: %w", err)
		}
		c.Severity = models.Severity(severity)
		cases = append(cases, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flagged cases: %w", err)
	}

	return cases, nil
}
