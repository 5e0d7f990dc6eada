// Package entitlement derives a farmer's maximum subsidized quantity per product.
package entitlement

import (
	"context"
	"fmt"

	"github.com/efarmer/subsidy/common/models"
)

// Snapshotter hands out a consistent RuleSet for one evaluation
type Snapshotter interface {
	Snapshot(ctx context.Context) (*RuleSet, error)
}

// Engine maps a farmer profile and product to a quota
type Engine struct {
	rules Snapshotter
}

func NewEngine(rules Snapshotter) *Engine {
	return &Engine{rules: rules}
}

// Quota is the result of one entitlement lookup
type Quota struct {
	MaxAllowed float64
	Rule       *models.EntitlementRule
}

// EntitlementFor returns landArea * maxPerAcre of the matching rule, or 0.
// A negative or unparseable land area counts as 0.
func (e *Engine) EntitlementFor(ctx context.Context, farmer *models.Farmer, product string) (float64, error) {
	q, err := e.Quota(ctx, farmer, product)
	if err != nil {
		return 0, err
	}
	return q.MaxAllowed, nil
}

// Quota is EntitlementFor plus the rule that produced the value
func (e *Engine) Quota(ctx context.Context, farmer *models.Farmer, product string) (Quota, error) {
	rs, err := e.rules.Snapshot(ctx)
	if err != nil {
		return Quota{}, fmt.Errorf("load entitlement rules: %w", err)
	}

	rule, ok := rs.Lookup(farmer.CropType, farmer.RainfallZone, product)
	if !ok {
		return Quota{}, nil
	}

	return Quota{
		MaxAllowed: farmer.LandArea.NonNegative() * rule.MaxPerAcre,
		Rule:       &rule,
	}, nil
}

// StaticRules serves one fixed RuleSet
type StaticRules struct {
	set *RuleSet
}

func NewStaticRules(set *RuleSet) *StaticRules {
	return &StaticRules{set: set}
}

func (s *StaticRules) Snapshot(context.Context) (*RuleSet, error) {
	return s.set, nil
}
