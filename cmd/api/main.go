package main

import (
	"context"
	"net/http"
	"os"

	"github.com/entradago/entradago-backend/api/routes"
	"github.com/entradago/entradago-backend/internal/cart"
	"github.com/entradago/entradago-backend/internal/catalog"
	"github.com/entradago/entradago-backend/internal/payment"
	"github.com/entradago/entradago-backend/internal/persist"
	"github.com/entradago/entradago-backend/internal/selection"
	"github.com/entradago/entradago-backend/internal/wishlist"
	"github.com/entradago/entradago-backend/pkg/config"
	"github.com/entradago/entradago-backend/pkg/db"
	"github.com/entradago/entradago-backend/pkg/logger"
	"github.com/entradago/entradago-backend/pkg/metrics"
	"github.com/entradago/entradago-backend/pkg/redis"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
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
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	var redisClient *redis.Client
	if cfg.Cart.SnapshotDriver == config.SnapshotDriverRedis {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	var bridge persist.Bridge
	if redisClient != nil {
		bridge, err = persist.NewRedisBridge(redisClient)
	} else {
		bridge, err = persist.NewGormBridge(dbClient.DB())
	}
	if err != nil {
		logg.Error(context.Background(), "failed to prepare cart snapshots", err)
		os.Exit(1)
	}

	cartManager, err := cart.NewManager(cart.ManagerParams{
		Bridge:           bridge,
		FallbackCurrency: cfg.Cart.FallbackCurrency,
		Logger:           logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart manager", err)
		os.Exit(1)
	}

	catalogClient, err := catalog.NewClient(cfg.Catalog, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog client", err)
		os.Exit(1)
	}

	selectionService, err := selection.NewService(catalogClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create selection service", err)
		os.Exit(1)
	}

	provider, err := payment.NewProvider(cfg.Payment, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment provider", err)
		os.Exit(1)
	}

	settlement, err := payment.NewSettlement(cfg.Settlement, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement client", err)
		os.Exit(1)
	}

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	checkoutService, err := payment.NewService(payment.ServiceParams{
		Provider: provider,
		Backend:  settlement,
		Carts:    cartManager,
		Logger:   logg,
		Metrics:  checkoutMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		DB:     dbClient.DB(),
		Carts:  cartManager,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"snapshot_driver": cfg.Cart.SnapshotDriver,
	})
	logg.Info(ctx, "starting api server")

	var redisPinger interface {
		Ping(ctx context.Context) error
	}
	if redisClient != nil {
		redisPinger = redisClient
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisPinger,
			cartManager,
			selectionService,
			checkoutService,
			wishlistService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
