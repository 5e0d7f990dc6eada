package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/efarmer/subsidy/cmd/subsidy/repository"
	"github.com/efarmer/subsidy/common/cache"
	"github.com/efarmer/subsidy/common/config"
	"github.com/efarmer/subsidy/common/db"
	"github.com/efarmer/subsidy/common/entitlement"
	"github.com/efarmer/subsidy/common/logger"
	"github.com/efarmer/subsidy/common/models"
	rediscommon "github.com/efarmer/subsidy/common/redis"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Validate and import entitlement rule files",
	}
	cmd.AddCommand(newRulesCheckCmd())
	cmd.AddCommand(newRulesImportCmd())
	return cmd
}

func newRulesCheckCmd() *cobra.Command {
	var lenient bool

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Parse and validate a rule file (.json, .yaml)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, rs, err := loadRuleFile(args[0], !lenient)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, k := range rs.Duplicates() {
				fmt.Fprintf(out, "warning: duplicate rule %s/%s/%s ignored\n", k.CropType, k.RainfallZone, k.ProductType)
			}
			fmt.Fprintf(out, "%s: %d rules, %d distinct keys\n", args[0], len(rules), rs.Len())
			return nil
		},
	}

	cmd.Flags().BoolVar(&lenient, "lenient", false, "Allow duplicate keys (first rule wins)")
	return cmd
}

func newRulesImportCmd() *cobra.Command {
	var databaseURL, service string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Validate a rule file and replace the Postgres rule table",
		Long: `Validates FILE with strict duplicate detection and replaces the
entitlement_rule table in one transaction. The connection comes from
--database-url or the POSTGRES_* environment variables.

With CACHE_BACKEND=redis the shared rule cache of --service is cleared
after the import. Services using the in-memory cache keep their snapshot
until RULE_CACHE_TTL expires; use PUT /api/v1/rules on a running service
to replace rules with immediate effect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, _, err := loadRuleFile(args[0], true)
			if err != nil {
				return err
			}

			cfg, err := config.Load("subsidyctl")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if databaseURL == "" {
				databaseURL = cfg.DatabaseURL()
			}

			ctx := cmd.Context()
			log := logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
			database, err := db.Connect(ctx, databaseURL, cfg.Database, log)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(ctx); err != nil {
				return err
			}
			if err := repository.NewRuleRepository(database).ReplaceRules(ctx, rules); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d rules from %s\n", len(rules), args[0])

			if !cfg.Cache.Enabled || cfg.Cache.Backend != "redis" {
				fmt.Fprintf(out, "running services refresh cached rules within %s\n", cfg.Cache.RuleTTL)
				return nil
			}
			if err := clearRuleCache(ctx, cfg, service, log); err != nil {
				log.Warn("rules imported but the shared rule cache was not cleared", "error", err)
				fmt.Fprintf(out, "rule cache not cleared, services refresh within %s\n", cfg.Cache.RuleTTL)
				return nil
			}
			fmt.Fprintf(out, "cleared rule cache for %s\n", service)
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection URL")
	cmd.Flags().StringVar(&service, "service", "subsidy", "service whose Redis rule cache is cleared")
	return cmd
}

// clearRuleCache deletes the rule snapshot a service keeps in Redis
func clearRuleCache(ctx context.Context, cfg *config.Config, service string, log *logger.Logger) error {
	client, err := rediscommon.Connect(ctx, rediscommon.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		return err
	}
	defer client.Close()

	return entitlement.InvalidateCached(ctx, cache.NewRedisCache(client.GetUnderlying(), cache.KeyPrefix(service)))
}

func loadRuleFile(path string, strict bool) ([]models.EntitlementRule, *entitlement.RuleSet, error) {
	rules, err := entitlement.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	rs, err := entitlement.NewRuleSet(rules, strict)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, rs, nil
}
