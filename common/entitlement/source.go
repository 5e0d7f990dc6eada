package entitlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/efarmer/subsidy/common/cache"
	"github.com/efarmer/subsidy/common/logger"
	"github.com/efarmer/subsidy/common/store"
)

const rulesCacheKey = "entitlement:rules"

// CachedSource builds RuleSet snapshots from a RuleSource, keeping the
// serialized rule list in a cache until it expires or is invalidated.
type CachedSource struct {
	source store.RuleSource
	cache  cache.Cache
	ttl    time.Duration
	strict bool
	log    *logger.Logger

	// last parsed snapshot, reused while the cached bytes are unchanged
	last atomic.Pointer[parsedRules]

	// bumped by Invalidate; a read that spans a bump must not be cached
	generation atomic.Uint64
}

type parsedRules struct {
	raw []byte
	set *RuleSet
}

func NewCachedSource(source store.RuleSource, c cache.Cache, ttl time.Duration, strict bool, log *logger.Logger) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  c,
		ttl:    ttl,
		strict: strict,
		log:    log,
	}
}

// Snapshot returns the current RuleSet
func (s *CachedSource) Snapshot(ctx context.Context) (*RuleSet, error) {
	gen := s.generation.Load()

	raw, hit, err := s.cache.Get(ctx, rulesCacheKey)
	if err != nil {
		// Cache outage falls through to the source
		s.log.Warn("rule cache read failed", "error", err)
		hit = false
	}

	if !hit {
		rules, err := s.source.Rules(ctx)
		if err != nil {
			return nil, err
		}
		raw, err = json.Marshal(rules)
		if err != nil {
			return nil, fmt.Errorf("encode rules: %w", err)
		}
		if s.generation.Load() == gen {
			if err := s.cache.Set(ctx, rulesCacheKey, raw, s.ttl); err != nil {
				s.log.Warn("rule cache write failed", "error", err)
			}
			// Invalidate ran between the check and the write
			if s.generation.Load() != gen {
				if err := s.cache.Delete(ctx, rulesCacheKey); err != nil {
					s.log.Warn("rule cache delete failed", "error", err)
				}
			}
		}
	}

	if p := s.last.Load(); p != nil && bytes.Equal(p.raw, raw) {
		return p.set, nil
	}

	rules, err := ParseJSON(raw)
	if err != nil {
		return nil, err
	}
	set, err := NewRuleSet(rules, s.strict)
	if err != nil {
		return nil, err
	}
	for _, k := range set.Duplicates() {
		s.log.Warn("duplicate entitlement rule ignored",
			"crop_type", k.CropType, "rainfall_zone", k.RainfallZone, "product_type", k.ProductType)
	}

	if s.generation.Load() == gen {
		s.last.Store(&parsedRules{raw: raw, set: set})
	}
	return set, nil
}

// Invalidate drops the cached rules so the next Snapshot rereads the source
func (s *CachedSource) Invalidate(ctx context.Context) error {
	s.generation.Add(1)
	s.last.Store(nil)
	return InvalidateCached(ctx, s.cache)
}

// InvalidateCached drops the rule entry from a cache shared with running
// services, so their next Snapshot rereads the rule table
func InvalidateCached(ctx context.Context, c cache.Cache) error {
	return c.Delete(ctx, rulesCacheKey)
}

// LiveSource rebuilds the RuleSet from its source on every Snapshot.
// Used when the rule cache is disabled.
type LiveSource struct {
	source store.RuleSource
	strict bool
}

func NewLiveSource(source store.RuleSource, strict bool) *LiveSource {
	return &LiveSource{source: source, strict: strict}
}

func (s *LiveSource) Snapshot(ctx context.Context) (*RuleSet, error) {
	rules, err := s.source.Rules(ctx)
	if err != nil {
		return nil, err
	}
	return NewRuleSet(rules, s.strict)
}
