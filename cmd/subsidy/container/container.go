package container

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/efarmer/subsidy/cmd/subsidy/feed"
	"github.com/efarmer/subsidy/cmd/subsidy/repository"
	"github.com/efarmer/subsidy/cmd/subsidy/service"
	"github.com/efarmer/subsidy/common/bootstrap"
	"github.com/efarmer/subsidy/common/eligibility"
	"github.com/efarmer/subsidy/common/entitlement"
	"github.com/efarmer/subsidy/common/fraud"
	"github.com/efarmer/subsidy/common/imagededup"
	"github.com/efarmer/subsidy/common/middleware"
	"github.com/efarmer/subsidy/common/models"
	"github.com/efarmer/subsidy/common/queue"
	"github.com/efarmer/subsidy/common/ratelimit"
	"github.com/efarmer/subsidy/common/store"
	"github.com/efarmer/subsidy/common/store/memory"
)

// Container holds all initialized services and stores (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components
	Events     *queue.Publisher
	Feed       *feed.Hub

	// Stores
	Farmers store.FarmerStore
	Ledger  store.Ledger
	Usages  store.UsageStore
	Blobs   store.BlobStore

	// Decision core
	Rules    entitlement.Snapshotter
	Engine   *entitlement.Engine
	Detector *fraud.Detector
	Registry *imagededup.Registry
	Advisor  *eligibility.Advisor

	// Services
	FarmerService    *service.FarmerService
	DecisionService  *service.DecisionService
	BlobService      *service.BlobService
	ImageService     *service.ImageService
	RuleService      *service.RuleService
	DashboardService *service.DashboardService

	// Submission rate limiting, nil when disabled
	RateLimiter *ratelimit.RateLimiter
	Limits      middleware.Limits
}

// ruleStore is a rule table that can be read and replaced
type ruleStore interface {
	store.RuleSource
	store.RuleWriter
}

// NewContainer initializes all services and stores once
func NewContainer(ctx context.Context, components *bootstrap.Components) (*Container, error) {
	cfg := components.Config
	log := components.Logger

	c := &Container{Components: components}

	// Stores
	var rules ruleStore
	switch cfg.Store.Backend {
	case "postgres":
		if components.DB == nil {
			return nil, fmt.Errorf("postgres store backend requires a database")
		}
		c.Farmers = repository.NewFarmerRepository(components.DB)
		c.Ledger = repository.NewLedgerRepository(components.DB)
		c.Blobs = repository.NewImageBlobRepository(components.DB)
		rules = repository.NewRuleRepository(components.DB)
	default:
		seed, err := loadSeedRules(cfg.Store.RulesFile)
		if err != nil {
			return nil, err
		}
		log.Info("loaded entitlement rules", "file", cfg.Store.RulesFile, "count", len(seed))
		c.Farmers = memory.NewFarmerStore()
		c.Ledger = memory.NewLedger()
		c.Blobs = memory.NewBlobStore()
		rules = memory.NewRuleStore(seed)
	}

	switch cfg.Store.RegistryBackend {
	case "postgres":
		if components.DB == nil {
			return nil, fmt.Errorf("postgres registry backend requires a database")
		}
		c.Usages = repository.NewImageHashRepository(components.DB)
	case "redis":
		if components.Redis == nil {
			return nil, fmt.Errorf("redis registry backend requires a redis client")
		}
		c.Usages = imagededup.NewRedisUsageStore(components.Redis.GetUnderlying())
	default:
		c.Usages = memory.NewUsageStore()
	}

	// Rule snapshots, cached when a cache is configured
	var invalidator service.Invalidator
	if components.Cache != nil {
		cached := entitlement.NewCachedSource(rules, components.Cache, cfg.Cache.RuleTTL, cfg.Store.StrictRules, log)
		c.Rules = cached
		invalidator = cached
	} else {
		c.Rules = entitlement.NewLiveSource(rules, cfg.Store.StrictRules)
	}

	// Fail fast on a broken rule table
	rs, err := c.Rules.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load entitlement rules: %w", err)
	}
	log.Info("entitlement rules ready", "rules", rs.Len(), "strict", cfg.Store.StrictRules)

	// Decision core
	c.Engine = entitlement.NewEngine(c.Rules)
	c.Detector = fraud.NewDetector(c.Engine)
	c.Registry = imagededup.NewRegistry(c.Usages)
	c.Advisor, err = eligibility.NewAdvisor()
	if err != nil {
		return nil, fmt.Errorf("failed to compile eligibility rules: %w", err)
	}

	if components.Queue != nil {
		c.Events = queue.NewPublisher(components.Queue, cfg.Queue.TopicPrefix)

		// Live event stream, fed by the audit subscriber
		c.Feed = feed.NewHub(log.WithFields(map[string]any{"component": "feed"}))
		go c.Feed.Run(ctx)
	}

	// Services (bottom-up: dependencies first)
	ids := service.UUIDGenerator{}
	c.BlobService = service.NewBlobService(c.Blobs, log)
	c.FarmerService = service.NewFarmerService(c.Farmers, c.Engine, c.Advisor, c.Events, ids, cfg.Store.DefaultProduct, log)
	c.DecisionService = service.NewDecisionService(c.Farmers, c.Ledger, c.Detector, c.Events, components.Metrics, ids, cfg.Store.DefaultDealer, log)
	c.ImageService = service.NewImageService(c.Farmers, c.Registry, c.BlobService, c.Events, components.Metrics, log)
	c.RuleService = service.NewRuleService(c.Rules, rules, invalidator, log)
	c.DashboardService = service.NewDashboardService(c.Farmers, c.Ledger, log)

	if cfg.RateLimit.Enabled && components.Redis != nil {
		c.RateLimiter = ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), log)
		c.Limits = middleware.Limits{
			Dealer:        cfg.RateLimit.DealerLimit,
			Global:        cfg.RateLimit.GlobalLimit,
			WindowSeconds: cfg.RateLimit.WindowSeconds,
		}
	}

	return c, nil
}

// loadSeedRules reads the rule file for the memory backend. A missing file
// yields an empty table, so every product is unassessed.
func loadSeedRules(path string) ([]models.EntitlementRule, error) {
	if path == "" {
		return nil, nil
	}
	rules, err := entitlement.LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load rules file: %w", err)
	}
	return rules, nil
}
