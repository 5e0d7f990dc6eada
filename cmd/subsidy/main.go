package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/efarmer/subsidy/cmd/subsidy/container"
	"github.com/efarmer/subsidy/cmd/subsidy/repository"
	"github.com/efarmer/subsidy/cmd/subsidy/routes"
	"github.com/efarmer/subsidy/common/bootstrap"
	"github.com/efarmer/subsidy/common/config"
	"github.com/efarmer/subsidy/common/db"
	"github.com/efarmer/subsidy/common/entitlement"
	"github.com/efarmer/subsidy/common/server"
)

const serviceName = "subsidy"

func main() {
	ctx := context.Background()

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Bootstrap common components (DB, redis, logger, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, serviceName,
		bootstrap.WithCustomConfig(cfg),
		bootstrap.WithDBInitHook(func(database *db.DB) error {
			return initDatabase(ctx, database, cfg.Store.RulesFile)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap %s: %v\n", serviceName, err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(ctx, components)
	if err != nil {
		components.Logger.Error("failed to initialize service container", "error", err)
		os.Exit(1)
	}

	if err := startAuditLog(ctx, serviceContainer); err != nil {
		components.Logger.Warn("decision audit log disabled", "error", err)
	}

	e := setupEcho()
	setupMiddleware(e)
	setupHealthCheck(e, components)
	registerRoutes(e, serviceContainer)

	srv := server.New(serviceName, cfg.Service.Port, e, components.Logger)
	if err := srv.Start(ctx); err != nil {
		components.Logger.Error("server error", "error", err)
	}
}

// initDatabase applies the schema and seeds an empty rule table from rulesFile
func initDatabase(ctx context.Context, database *db.DB, rulesFile string) error {
	if err := database.Migrate(ctx); err != nil {
		return err
	}

	rules := repository.NewRuleRepository(database)
	n, err := rules.CountRules(ctx)
	if err != nil {
		return err
	}
	if n > 0 || rulesFile == "" {
		return nil
	}

	seed, err := entitlement.LoadFile(rulesFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if _, err := entitlement.NewRuleSet(seed, true); err != nil {
		return fmt.Errorf("seed rules: %w", err)
	}
	return rules.ReplaceRules(ctx, seed)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": serviceName,
				"error":   err.Error(),
			})
		}
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": serviceName,
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterFarmerRoutes(e, serviceContainer)
	routes.RegisterTransactionRoutes(e, serviceContainer)
	routes.RegisterAdminRoutes(e, serviceContainer)
	routes.RegisterFeedRoutes(e, serviceContainer)
}
