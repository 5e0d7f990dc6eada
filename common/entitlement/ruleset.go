package entitlement

import (
	"fmt"
	"math"

	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
)

// RuleSet is an immutable keyed snapshot of the entitlement rules
type RuleSet struct {
	rules      []models.EntitlementRule
	byKey      map[models.RuleKey]models.EntitlementRule
	duplicates []models.RuleKey
}

// NewRuleSet validates rules and indexes them by (crop, zone, product).
// In strict mode a repeated key fails with store.ErrDuplicateRule. Otherwise
// the earliest rule for a key wins and the repeated keys are reported by
// Duplicates.
func NewRuleSet(rules []models.EntitlementRule, strict bool) (*RuleSet, error) {
	rs := &RuleSet{
		rules: append([]models.EntitlementRule(nil), rules...),
		byKey: make(map[models.RuleKey]models.EntitlementRule, len(rules)),
	}

	for i, r := range rules {
		if err := ValidateRule(r); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}

		key := r.Key()
		if _, exists := rs.byKey[key]; exists {
			if strict {
				return nil, fmt.Errorf("rule %d (%s/%s/%s): %w",
					i, key.CropType, key.RainfallZone, key.ProductType, store.ErrDuplicateRule)
			}
			rs.duplicates = append(rs.duplicates, key)
			continue
		}
		rs.byKey[key] = r
	}

	return rs, nil
}

// ValidateRule rejects rules that cannot yield a sane quota
func ValidateRule(r models.EntitlementRule) error {
	if math.IsNaN(r.MaxPerAcre) || math.IsInf(r.MaxPerAcre, 0) {
		return fmt.Errorf("maxPerAcre is not finite: %w", store.ErrInvalidRule)
	}
	if r.MaxPerAcre < 0 {
		return fmt.Errorf("maxPerAcre %.2f is negative: %w", r.MaxPerAcre, store.ErrInvalidRule)
	}
	if r.ProductType == "" {
		return fmt.Errorf("productType is empty: %w", store.ErrInvalidRule)
	}
	return nil
}

// Lookup returns the rule for an exact (crop, zone, product) triple
func (rs *RuleSet) Lookup(crop, zone, product string) (models.EntitlementRule, bool) {
	r, ok := rs.byKey[models.RuleKey{CropType: crop, RainfallZone: zone, ProductType: product}]
	return r, ok
}

// Rules returns the rules in source order
func (rs *RuleSet) Rules() []models.EntitlementRule {
	return append([]models.EntitlementRule(nil), rs.rules...)
}

func (rs *RuleSet) Len() int {
	return len(rs.byKey)
}

// Duplicates lists keys that were shadowed by an earlier rule
func (rs *RuleSet) Duplicates() []models.RuleKey {
	return append([]models.RuleKey(nil), rs.duplicates...)
}
