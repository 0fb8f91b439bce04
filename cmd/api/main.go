package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/collections"
	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/internal/homecontent"
	"github.com/angelmondragon/storefront-backend/internal/offers"
	"github.com/angelmondragon/storefront-backend/internal/resolver"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(runCtx, cfg.DB, logg)
	if err != nil {
		logg.Error(runCtx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(runCtx, cfg, logg, dbClient); err != nil {
		logg.Error(runCtx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(runCtx, cfg.Redis, logg)
		if err != nil {
			logg.Error(runCtx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(runCtx, "redis not configured, home content cache and idempotency disabled")
	}

	var pubsubClient *pubsub.Client
	publisher := events.Publisher(events.Noop{})
	if cfg.PubSub.Enabled() {
		pubsubClient, err = pubsub.NewClient(runCtx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(runCtx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		publisher = events.NewPublisher(pubsubClient, pubsubClient.CurationTopic(), logg)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	curationMetrics := metrics.NewCurationMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	productResolver := resolver.New(catalogRepo, curationMetrics, logg)

	var homeCache homecontent.Cache
	if redisClient != nil {
		homeCache = homecontent.NewRedisCache(redisClient, cfg.Cache.HomeContentTTL, curationMetrics, logg)
	}

	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:        catalogRepo,
		Invalidator: homeCache,
		Logger:      logg,
	})
	exitOnErr(runCtx, logg, "failed to create catalog service", err)

	homeContentService, err := homecontent.NewService(homecontent.ServiceParams{
		Repo:      homecontent.NewRepository(dbClient.DB()),
		Resolver:  productResolver,
		Cache:     homeCache,
		Publisher: publisher,
		Logger:    logg,
	})
	exitOnErr(runCtx, logg, "failed to create home content service", err)

	collectionService, err := collections.NewService(collections.ServiceParams{
		Repo:      collections.NewRepository(dbClient.DB()),
		DB:        dbClient,
		Products:  catalogRepo,
		Resolver:  productResolver,
		Publisher: publisher,
		Logger:    logg,
	})
	exitOnErr(runCtx, logg, "failed to create collections service", err)

	offerService, err := offers.NewService(offers.ServiceParams{
		Repo:      offers.NewRepository(dbClient.DB()),
		Products:  catalogRepo,
		Publisher: publisher,
		Logger:    logg,
	})
	exitOnErr(runCtx, logg, "failed to create offers service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			httpMetrics,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
			catalogService,
			homeContentService,
			collectionService,
			offerService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if pubsubClient != nil {
		errs = multierr.Append(errs, pubsubClient.Close())
	}
	if redisClient != nil {
		errs = multierr.Append(errs, redisClient.Close())
	}
	errs = multierr.Append(errs, dbClient.Close())

	if errs != nil {
		logg.Error(ctx, "error during shutdown", errs)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func exitOnErr(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
