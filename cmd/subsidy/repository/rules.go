package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/efarmer/subsidy/common/db"
	"github.com/efarmer/subsidy/common/models"
)

// RuleRepository stores the ordered entitlement rule table
type RuleRepository struct {
	db *db.DB
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *db.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// Rules returns the rule table in configured order
func (r *RuleRepository) Rules(ctx context.Context) ([]models.EntitlementRule, error) {
	query := `
		SELECT crop_type, rainfall_zone, product_type, max_per_acre
		FROM entitlement_rule
		ORDER BY position
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list entitlement rules: %w", err)
	}
	defer rows.Close()

	rules := []models.EntitlementRule{}
	for rows.Next() {
		var rule models.EntitlementRule
		if err := rows.Scan(&rule.CropType, &rule.RainfallZone, &rule.ProductType, &rule.MaxPerAcre); err != nil {
			return nil, fmt.Errorf("failed to scan entitlement rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entitlement rules: %w", err)
	}

	return rules, nil
}

// ReplaceRules swaps the whole table in one transaction
func (r *RuleRepository) ReplaceRules(ctx context.Context, rules []models.EntitlementRule) error {
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM entitlement_rule`); err != nil {
			return fmt.Errorf("failed to clear entitlement rules: %w", err)
		}

		batch := &pgx.Batch{}
		for i, rule := range rules {
			batch.Queue(`
				INSERT INTO entitlement_rule (position, crop_type, rainfall_zone, product_type, max_per_acre)
				VALUES ($1, $2, $3, $4, $5)
			`, i, rule.CropType, rule.RainfallZone, rule.ProductType, rule.MaxPerAcre)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert entitlement rules: %w", err)
		}
		return nil
	})
}

// CountRules reports how many rules are stored
func (r *RuleRepository) CountRules(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM entitlement_rule`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entitlement rules: %w", err)
	}
	return n, nil
}
