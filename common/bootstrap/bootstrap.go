package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/efarmer/subsidy/common/cache"
	"github.com/efarmer/subsidy/common/config"
	"github.com/efarmer/subsidy/common/db"
	"github.com/efarmer/subsidy/common/logger"
	"github.com/efarmer/subsidy/common/metrics"
	"github.com/efarmer/subsidy/common/queue"
	rediscommon "github.com/efarmer/subsidy/common/redis"
	"github.com/efarmer/subsidy/common/telemetry"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
		"store_backend", cfg.Store.Backend,
		"registry_backend", cfg.Store.RegistryBackend,
	)

	// 3. Metrics registry
	components.Registry = prometheus.NewRegistry()
	components.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	components.Metrics = metrics.New(components.Registry)

	// 4. Initialize database (only when a backend needs it)
	if !options.skipDB && cfg.UsesPostgres() {
		components.Logger.Info("connecting to database")
		components.DB, err = db.New(ctx, cfg, components.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		components.addCleanup(func() error {
			components.DB.Close()
			return nil
		})

		if options.dbInitHook != nil {
			components.Logger.Info("running database init hook")
			if err := options.dbInitHook(components.DB); err != nil {
				_ = components.Shutdown(ctx)
				return nil, fmt.Errorf("database init hook failed: %w", err)
			}
		}
	}

	// 5. Initialize redis (only when a component needs it)
	if !options.skipRedis && cfg.UsesRedis() {
		components.Redis, err = rediscommon.Connect(ctx, rediscommon.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, components.Logger)
		if err != nil {
			_ = components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(components.Redis.Close)
	}

	// 6. Initialize queue
	if !options.skipQueue {
		components.Logger.Info("initializing queue", "type", cfg.Queue.Type)

		switch cfg.Queue.Type {
		case "memory":
			components.Queue = queue.NewMemoryQueue(components.Logger)
		case "kafka":
			components.Queue, err = queue.NewKafkaQueue(cfg.Queue.Brokers, cfg.Queue.ClientID, components.Logger)
			if err != nil {
				_ = components.Shutdown(ctx)
				return nil, fmt.Errorf("failed to create kafka queue: %w", err)
			}
		default:
			_ = components.Shutdown(ctx)
			return nil, fmt.Errorf("unknown queue type: %s", cfg.Queue.Type)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing queue")
			return components.Queue.Close()
		})
	}

	// 7. Initialize cache
	if !options.skipCache && cfg.Cache.Enabled {
		components.Logger.Info("initializing cache", "backend", cfg.Cache.Backend)

		if cfg.Cache.Backend == "redis" && components.Redis != nil {
			components.Cache = cache.NewRedisCache(components.Redis.GetUnderlying(), cache.KeyPrefix(cfg.Service.Name))
		} else {
			components.Cache = cache.NewMemoryCache(components.Logger)
		}

		components.addCleanup(func() error {
			return components.Cache.Close()
		})
	}

	// 8. Initialize telemetry
	if !options.skipTelemetry && (cfg.Telemetry.EnablePprof || cfg.Telemetry.EnableMetrics) {
		pprofPort, metricsPort := 0, 0
		if cfg.Telemetry.EnablePprof {
			pprofPort = cfg.Telemetry.PprofPort
		}
		if cfg.Telemetry.EnableMetrics {
			metricsPort = cfg.Telemetry.MetricsPort
		}

		components.Telemetry = telemetry.New(pprofPort, metricsPort, components.Registry, components.Logger)
		if err := components.Telemetry.Start(ctx); err != nil {
			// Don't fail startup if telemetry fails
			components.Logger.Warn("failed to start telemetry", "error", err)
		}

		components.addCleanup(func() error {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return components.Telemetry.Stop(stopCtx)
		})
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"redis", components.Redis != nil,
		"queue", components.Queue != nil,
		"cache", components.Cache != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
