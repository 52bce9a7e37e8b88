package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mattilda/school-ledger/api"
	"github.com/mattilda/school-ledger/auth"
	"github.com/mattilda/school-ledger/cache"
	"github.com/mattilda/school-ledger/config"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger := a.cfg, a.logger

	// Initialize store
	store, err := a.openStore(true)
	if err != nil {
		return err
	}
	defer store.Close()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Cache
	cacheManager, redisClient, err := buildCache(ctx, cfg, reg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Auth
	authSvc := auth.NewService(store,
		auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiration, cfg.JWT.RefreshTokenExpiration),
		logger.Named("auth"))
	authSvc.BcryptCost = cfg.Auth.BcryptCost

	// Initialize handler
	handler := api.NewHandler(store, cacheManager, authSvc, logger.Named("api"))
	handler.Engine.PageSize = cfg.Statement.PageSize
	handler.Engine.Concurrency = cfg.Statement.Concurrency
	handler.Metrics = api.NewMetrics(reg)

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		RequireAuth:     cfg.Auth.Required,
		EnableScenarios: !cfg.IsProduction(),
		Gatherer:        reg,
	})

	// Background cache sweeper
	sweeper := api.NewCacheSweeper(cacheManager, logger.Named("sweeper"))
	sweeper.Enabled = cfg.Scheduler.Enabled
	if cfg.Scheduler.SweepInterval > 0 {
		sweeper.Interval = cfg.Scheduler.SweepInterval
	}
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("database", cfg.Database.Path),
			zap.String("cache_backend", cfg.Cache.Backend),
			zap.Bool("auth_required", cfg.Auth.Required))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// buildCache creates one Store per tier on the configured backend. The
// returned client is nil for the memory backend.
func buildCache(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *zap.Logger) (*cache.Manager, *redis.Client, error) {
	tiers := []cache.Tier{
		{Name: cache.TierAPI, TTL: cfg.Cache.APITTL, Capacity: cfg.Cache.APICapacity},
		{Name: cache.TierStatic, TTL: cfg.Cache.StaticTTL, Capacity: cfg.Cache.StaticCapacity},
	}
	metrics := cache.NewMetrics(reg)
	cacheLogger := logger.Named("cache")

	if cfg.Cache.Backend != "redis" {
		return cache.NewMemoryManager(tiers, metrics, cacheLogger), nil, nil
	}

	client, err := cache.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	stores := make(map[string]cache.Store, len(tiers))
	for _, t := range tiers {
		stores[t.Name] = cache.NewRedis(client, cfg.Redis.Prefix, t, cacheLogger)
	}
	logger.Info("redis cache connected", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))
	return cache.NewManager(stores, metrics, cacheLogger), client, nil
}
