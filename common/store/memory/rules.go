package memory

import (
	"context"
	"sync"

	"github.com/efarmer/subsidy/common/models"
)

// RuleStore holds the rule collection; writers swap the whole slice
type RuleStore struct {
	mu    sync.RWMutex
	rules []models.EntitlementRule
}

func NewRuleStore(rules []models.EntitlementRule) *RuleStore {
	return &RuleStore{rules: append([]models.EntitlementRule(nil), rules...)}
}

func (s *RuleStore) Rules(_ context.Context) ([]models.EntitlementRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.EntitlementRule(nil), s.rules...), nil
}

func (s *RuleStore) ReplaceRules(_ context.Context, rules []models.EntitlementRule) error {
	next := append([]models.EntitlementRule(nil), rules...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = next
	return nil
}
