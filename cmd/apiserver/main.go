// Command apiserver runs the claimscope API server: the retrieval engine
// behind the HTTP interface, backed by PostgreSQL, Milvus, and Redis.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claimscope/claimscope/internal/config"
	"github.com/claimscope/claimscope/internal/engine"
	"github.com/claimscope/claimscope/internal/infrastructure/ai"
	"github.com/claimscope/claimscope/internal/infrastructure/cache/redis"
	"github.com/claimscope/claimscope/internal/infrastructure/database/postgres"
	"github.com/claimscope/claimscope/internal/infrastructure/database/postgres/repositories"
	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/logging"
	"github.com/claimscope/claimscope/internal/infrastructure/monitoring/prometheus"
	"github.com/claimscope/claimscope/internal/infrastructure/vectorindex/milvus"
	httpiface "github.com/claimscope/claimscope/internal/interfaces/http"
	"github.com/claimscope/claimscope/internal/interfaces/http/handlers"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const bootTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "config file path")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("claimscope-apiserver %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	var cfg *config.Config
	var err error
	if configPath == "" {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(configPath)
	}
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	logging.SetDefault(logger)

	logger.Info("starting claimscope apiserver",
		logging.String("version", version),
		logging.String("commit", commit))

	bootCtx, cancel := context.WithTimeout(context.Background(), bootTimeout)
	defer cancel()

	// PostgreSQL: migrations first, then the pool.
	if cfg.Database.MigrationPath != "" {
		if err := postgres.RunMigrations(postgres.ConnectionURL(cfg.Database), cfg.Database.MigrationPath); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}
	pool, err := postgres.NewPool(bootCtx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	repo := repositories.NewPatentRepository(pool, logger)

	// Milvus vector index.
	milvusClient, err := milvus.NewClient(bootCtx, cfg.Milvus, logger)
	if err != nil {
		return fmt.Errorf("milvus: %w", err)
	}
	defer func() { _ = milvusClient.Close() }()
	index := milvus.NewIndex(milvusClient, cfg.Milvus, logger)
	if err := index.EnsureCollections(bootCtx); err != nil {
		return fmt.Errorf("milvus collections: %w", err)
	}

	// Embedding service.
	embedder, err := ai.NewEmbedder(cfg.Embedding, logger)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}

	engineOpts := []engine.Option{engine.WithLogger(logger)}

	// Optional explanation collaborator.
	if cfg.Explanation.Enabled {
		explainer, err := ai.NewExplainer(cfg.Explanation, logger)
		if err != nil {
			return fmt.Errorf("explainer: %w", err)
		}
		engineOpts = append(engineOpts, engine.WithExplanation(explainer))
	}

	// Optional Redis result cache. The patent handler invalidates it on
	// writes so cached results never outlive the corpus they were built on.
	var (
		redisClient *redis.Client
		invalidator handlers.CacheInvalidator
	)
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		cache := redis.NewResultCache(redisClient, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
		engineOpts = append(engineOpts, engine.WithCache(cache))
		invalidator = cache
	}

	// Optional Prometheus metrics.
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: cfg.Metrics.EnableProcessMetrics,
			EnableGoMetrics:      cfg.Metrics.EnableGoMetrics,
		}, logger)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		metricsHandler = collector.Handler()
		engineOpts = append(engineOpts,
			engine.WithMetrics(prometheus.NewEngineMetrics(prometheus.NewAppMetrics(collector))))
	}

	eng := engine.New(cfg.Engine, repo, embedder, index, engineOpts...)

	// HTTP interface.
	checkers := []handlers.HealthChecker{
		handlers.CheckFunc{Component: "postgres", Fn: pool.Ping},
		handlers.CheckFunc{Component: "milvus", Fn: milvusClient.CheckHealth},
	}
	if redisClient != nil {
		checkers = append(checkers, handlers.CheckFunc{Component: "redis", Fn: redisClient.Ping})
	}

	router := httpiface.NewRouter(httpiface.RouterConfig{
		AnalysisHandler: handlers.NewAnalysisHandler(eng, cfg.Engine.VectorWeight, cfg.Milvus.DefaultTopK),
		PatentHandler:   handlers.NewPatentHandler(repo, embedder, index, invalidator, logger),
		HealthHandler:   handlers.NewHealthHandler(version, checkers...),
		MetricsHandler:  metricsHandler,
		Logger:          logger,
		Mode:            cfg.Server.Mode,
	})
	server := httpiface.NewServer(cfg.Server, router, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	}

	if err := server.Stop(context.Background()); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("apiserver stopped")
	return nil
}
