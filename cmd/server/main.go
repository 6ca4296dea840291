// Command server runs the shortlinker HTTP redirect/admin API, the click
// analytics pipeline, the rollup and retention schedulers, and the IPC
// control socket the shortlinker-cli talks to.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shortlinker/shortlinker/internal/api"
	"github.com/shortlinker/shortlinker/internal/cache"
	"github.com/shortlinker/shortlinker/internal/clicks"
	"github.com/shortlinker/shortlinker/internal/config"
	"github.com/shortlinker/shortlinker/internal/ipc"
	"github.com/shortlinker/shortlinker/internal/metrics"
	"github.com/shortlinker/shortlinker/internal/redirect"
	"github.com/shortlinker/shortlinker/internal/redisx"
	"github.com/shortlinker/shortlinker/internal/reload"
	"github.com/shortlinker/shortlinker/internal/storage"
	"github.com/shortlinker/shortlinker/internal/system/eventbus"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	store, err := storage.Open(cfg.DatabaseURL, 0)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer store.Close()
	logger.Info("storage connected")

	redisClient, err := redisx.New(cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("redis connected")

	l0 := cache.NewExistenceFilter(cfg.Cache.ExistenceFilterCapacity)
	l1 := cache.NewObjectCache(cfg.Cache.ObjectCacheCapacity, cfg.Cache.ObjectCacheTTL)
	l2 := cache.NewNegativeCache(cfg.Cache.NegativeCacheCapacity, cfg.Cache.NegativeCacheTTL)
	composite := cache.New(l0, l1, l2, metrics.Recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bootCodes, err := store.LoadAllCodes(ctx)
	if err != nil {
		logger.Fatal("failed to load codes for initial cache build", zap.Error(err))
	}
	if err := composite.Rebuild(ctx, bootCodes, cfg.Cache.ExistenceFilterFPRate); err != nil {
		logger.Fatal("failed to build initial cache", zap.Error(err))
	}
	logger.Info("cache pre-populated", zap.Int("codes", len(bootCodes)))

	bus := eventbus.New()

	geo := geoLocator(cfg, logger)

	ingress := clicks.NewIngress(cfg.Clicks.ChannelCapacity, logger)
	aggregator := clicks.NewAggregator(ingress, store, geo, bus, clicks.Config{
		BatchSize:     cfg.Clicks.BatchSize,
		FlushInterval: cfg.Clicks.FlushInterval,
	}, logger)
	go aggregator.Run(ctx)

	rollups := clicks.NewRollupScheduler(store, logger)
	rollups.Start()
	defer rollups.Stop()

	retention := clicks.NewRetentionScheduler(store, cfg.Clicks.RetentionWindow, logger)
	retention.Start()
	defer retention.Stop()

	coordinator := reload.New(composite, store, cfg.Cache.ExistenceFilterFPRate, bus, logger)
	if _, err := coordinator.Reload(ctx, reload.TargetConfig); err != nil {
		logger.Warn("initial config load failed", zap.Error(err))
	}

	ipcHandler := ipc.NewCommandHandler(store, composite, coordinator, logger)
	ipcServer := ipc.NewServer(cfg.IPC.SocketPath, cfg.IPC.LockfilePath, ipcHandler, logger)
	if err := ipcServer.Start(); err != nil {
		logger.Fatal("failed to start ipc server", zap.Error(err))
	}
	go func() {
		if err := ipcServer.Serve(ctx); err != nil {
			logger.Error("ipc server stopped", zap.Error(err))
		}
	}()
	defer ipcServer.Stop()

	resolver := redirect.New(composite, store, 500*time.Millisecond, logger)

	router := api.NewRouter(api.RouterConfig{
		Redirect:        api.NewRedirectHandler(resolver, ingress, logger),
		Links:           api.NewLinksAPI(store, composite, logger),
		Analytics:       api.NewAnalyticsAPI(store, bus, logger),
		Config:          api.NewConfigAPI(store, coordinator, logger),
		Store:           store,
		Redis:           redisClient,
		AdminToken:      cfg.AdminToken,
		FrontendURL:     cfg.FrontendURL,
		IsProduction:    cfg.IsProduction,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Log:             logger,
	})

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case <-ipcHandler.Done():
		logger.Info("shutdown requested over ipc")
	}

	cancel()
	<-aggregator.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}

// geoLocator wires the configured GeoIP backend: a local MaxMind database
// takes priority, then the external HTTP API, then a no-op.
func geoLocator(cfg *config.Config, log *zap.Logger) clicks.GeoLocator {
	if cfg.GeoIP.MMDBPath != "" {
		locator, err := clicks.NewMaxmindLocator(cfg.GeoIP.MMDBPath)
		if err != nil {
			log.Warn("failed to open maxmind database, falling back", zap.Error(err))
		} else {
			return locator
		}
	}
	if cfg.GeoIP.ExternalAPIURL != "" {
		return clicks.NewHTTPLocator(cfg.GeoIP.ExternalAPIURL, cfg.GeoIP.ExternalAPIKey, cfg.GeoIP.CacheTTL)
	}
	return clicks.NoopLocator{}
}
