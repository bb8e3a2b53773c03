package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/damon-houk/fx-route-engine/internal/application/service"
	"github.com/damon-houk/fx-route-engine/internal/config"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/api"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/cache"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/db"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/handler"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/logger"
	"github.com/damon-houk/fx-route-engine/internal/infrastructure/metrics"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewJSONLogger(os.Stdout, logger.ParseLevel(cfg.LogLevel))
	logger.SetDefaultLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("Server stopped with error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	log.Info("Starting FX route engine", map[string]interface{}{
		"address":       cfg.Address(),
		"cache_backend": cfg.Cache.Backend,
		"anchor":        cfg.Resolver.AnchorCurrency,
		"providers":     len(cfg.Providers),
	})

	// Storage
	if !cfg.Storage.InMemory {
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	badgerDB, err := db.OpenBadger(cfg.Storage.DataDir, cfg.Storage.InMemory)
	if err != nil {
		return err
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			log.Error("Error closing database", map[string]interface{}{"error": err.Error()})
		}
	}()

	quotes := db.NewBadgerQuoteRepository(badgerDB)
	history := db.NewBadgerHistoryRepository(badgerDB)
	routes := db.NewBadgerRouteRepository(badgerDB, cfg.Routes.Smoothing, cfg.Routes.DefaultHistoryScore)
	if cfg.Routes.SeedCatalog {
		seeded, err := routes.SeedDefaults(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed route catalog: %w", err)
		}
		log.Info("Route catalog ready", map[string]interface{}{"seeded": seeded})
	}

	// Cache
	rateCache, closeCache, err := buildCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	// Metrics
	rec := metrics.NewRecorder(nil)

	// Services
	aggregator := service.NewSourceAggregator(buildProviders(cfg, log), cfg.Aggregator.ProviderTimeout, log, rec)
	resolver := service.NewRateResolver(rateCache, quotes, aggregator, service.ResolverConfig{
		AnchorCurrency: cfg.Resolver.AnchorCurrency,
		LookupTimeout:  cfg.Resolver.LookupTimeout,
	}, log, rec).WithHistory(history)

	analyzer := service.NewPredictiveAnalyzer(history, cfg.Prediction.Window, cfg.Prediction.MinSamples, cfg.Resolver.LookupTimeout, log)
	advisor := service.NewTimingAdvisor(history, cfg.Resolver.LookupTimeout, log)
	conversions := service.NewConversionService(resolver, analyzer, advisor, cfg.Batch.Concurrency, log)
	quoteService := service.NewQuoteService(quotes, history, rateCache, log)

	scorer := service.NewRouteScorer(routes, cfg.Routes.DefaultHistoryScore, cfg.Resolver.LookupTimeout, log)
	routeService := service.NewRouteService(routes, routes, scorer, cfg.Resolver.LookupTimeout, log)
	batch := service.NewBatchOptimizer(resolver, routeService, cfg.Batch.Concurrency, log, rec)

	// Router
	router := handler.NewRouter(log, rec, nil,
		handler.NewRateHandler(resolver, conversions, quoteService, log),
		handler.NewRouteHandler(routeService, batch, log),
	)

	server := &http.Server{
		Addr:    cfg.Address(),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", map[string]interface{}{"address": cfg.Address()})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down", map[string]interface{}{"timeout": cfg.Server.ShutdownTimeout.String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// buildCache returns the configured rate cache and a function releasing it
func buildCache(ctx context.Context, cfg *config.Config, log logger.Logger) (service.RateCache, func(), error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Error("Error closing redis client", map[string]interface{}{"error": err.Error()})
			}
		}
		return cache.NewRedisRateCache(client, cfg.Cache.TTL, log), closeFn, nil
	default:
		rateCache := cache.NewRateCache(cfg.Cache.TTL)
		if cfg.Cache.JanitorInterval > 0 {
			go rateCache.RunJanitor(ctx, cfg.Cache.JanitorInterval)
		}
		return rateCache, func() {}, nil
	}
}

func buildProviders(cfg *config.Config, log logger.Logger) []service.WeightedProvider {
	httpClient := &http.Client{Timeout: cfg.Aggregator.ProviderTimeout}

	providers := make([]service.WeightedProvider, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		wp := service.WeightedProvider{Weight: p.Weight}
		switch p.Type {
		case config.ProviderTypeTreasury:
			treasury := api.NewTreasuryRateProvider(p.Name, httpClient, log)
			if p.BaseURL != "" {
				treasury = treasury.WithBaseURL(p.BaseURL)
			}
			wp.Provider = treasury
		case config.ProviderTypeHTTP:
			wp.Provider = api.NewHTTPRateProvider(p.Name, p.BaseURL, p.APIKey, httpClient, log)
		}
		providers = append(providers, wp)
	}
	return providers
}
