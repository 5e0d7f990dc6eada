package service

import (
	"context"

	"github.com/efarmer/subsidy/common/entitlement"
	"github.com/efarmer/subsidy/common/logger"
	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/store"
)

// Invalidator drops a cached rule snapshot
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// RuleService administers the entitlement rule table
type RuleService struct {
	rules  entitlement.Snapshotter
	writer store.RuleWriter
	cached Invalidator
	log    *logger.Logger
}

// NewRuleService creates a new rule service. cached may be nil.
func NewRuleService(rules entitlement.Snapshotter, writer store.RuleWriter, cached Invalidator, log *logger.Logger) *RuleService {
	return &RuleService{
		rules:  rules,
		writer: writer,
		cached: cached,
		log:    log,
	}
}

// List returns the active rule snapshot in configured order
func (s *RuleService) List(ctx context.Context) ([]models.EntitlementRule, error) {
	rs, err := s.rules.Snapshot(ctx)
	if err != nil {
		return nil, storageErr("load rules", err)
	}
	return rs.Rules(), nil
}

// Replace validates rules strictly and swaps the stored table.
// Returns store.ErrDuplicateRule or store.ErrInvalidRule on bad input.
func (s *RuleService) Replace(ctx context.Context, rules []models.EntitlementRule) (int, error) {
	rs, err := entitlement.NewRuleSet(rules, true)
	if err != nil {
		return 0, err
	}

	if err := s.writer.ReplaceRules(ctx, rs.Rules()); err != nil {
		s.log.Error("failed to replace rules", "error", err)
		return 0, storageErr("replace rules", err)
	}

	if s.cached != nil {
		if err := s.cached.Invalidate(ctx); err != nil {
			s.log.Warn("failed to invalidate rule cache", "error", err)
		}
	}

	s.log.Info("entitlement rules replaced", "count", rs.Len())
	return rs.Len(), nil
}
