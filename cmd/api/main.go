package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/newsletter"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/preferences"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/session"
	"github.com/angelmondragon/storefront-backend/internal/wishlist"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/env"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i].Close())
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	closers = append(closers, dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var (
		sessionStore session.Store
		redisPinger  controllers.Pinger
		deps         routes.Dependencies
	)
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		closers = append(closers, redisClient)

		store, err := session.NewRedisStore(redisClient, cfg.Session.TTL)
		if err != nil {
			return err
		}
		sessionStore = store
		redisPinger = redisClient
		deps.Idempotency = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, sessions are kept in memory and idempotency replay is disabled")
		sessionStore = session.NewMemoryStore()
	}

	sessions, err := session.NewSessions(sessionStore)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	policy := pricing.PolicyFromConfig(cfg.Pricing)

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}
	productLookup, err := catalog.NewCachedLookup(catalogService, cfg.Catalog.CacheSize, cfg.Catalog.CacheTTL, metrics.NewCacheMetrics(registry))
	if err != nil {
		return err
	}

	cartService, err := cart.NewService(cart.ServiceParams{
		Store:   sessions,
		Catalog: productLookup,
		Policy:  policy,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Store:   sessions,
		Catalog: productLookup,
		Cart:    cartService,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	preferencesService, err := preferences.NewService(sessions, logg)
	if err != nil {
		return err
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ordersService, err := orders.NewService(orders.ServiceParams{
		Tx:                 dbClient,
		Repo:               orders.NewRepository(dbClient.DB()),
		Carts:              sessions,
		Outbox:             outboxService,
		Policy:             policy,
		CardGatewayEnabled: cfg.FeatureFlags.CardGatewayEnabled,
		Metrics:            metrics.NewCheckoutMetrics(registry),
		Logger:             logg,
	})
	if err != nil {
		return err
	}

	newsletterService, err := newsletter.NewService(newsletter.ServiceParams{
		Tx:     dbClient,
		Repo:   newsletter.NewRepository(dbClient.DB()),
		Outbox: outboxService,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	deps.Config = cfg
	deps.Logger = logg
	deps.DB = dbClient
	deps.Redis = redisPinger
	deps.Gatherer = registry
	deps.HTTPMetrics = metrics.NewHTTPMetrics(registry)
	deps.Catalog = catalogService
	deps.ProductLookup = productLookup
	deps.Cart = cartService
	deps.Wishlist = wishlistService
	deps.Preferences = preferencesService
	deps.Orders = ordersService
	deps.Newsletter = newsletterService

	addr := ":" + env.First(cfg.App.Port, "PORT")
	ctx = logg.WithFields(ctx, map[string]any{
		"env":   cfg.App.Env,
		"addr":  addr,
		"redis": cfg.Redis.Enabled(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logg.Info(ctx, "api server stopped")
	return nil
}
