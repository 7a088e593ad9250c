package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tillpoint/tillpoint-backend/api/routes"
	"github.com/tillpoint/tillpoint-backend/internal/auth"
	"github.com/tillpoint/tillpoint-backend/internal/customers"
	"github.com/tillpoint/tillpoint-backend/internal/dashboard"
	"github.com/tillpoint/tillpoint-backend/internal/paymentmethods"
	"github.com/tillpoint/tillpoint-backend/internal/products"
	"github.com/tillpoint/tillpoint-backend/internal/sales"
	"github.com/tillpoint/tillpoint-backend/internal/stock"
	"github.com/tillpoint/tillpoint-backend/internal/stores"
	"github.com/tillpoint/tillpoint-backend/internal/suppliers"
	"github.com/tillpoint/tillpoint-backend/internal/users"
	"github.com/tillpoint/tillpoint-backend/pkg/config"
	"github.com/tillpoint/tillpoint-backend/pkg/db"
	"github.com/tillpoint/tillpoint-backend/pkg/logger"
	"github.com/tillpoint/tillpoint-backend/pkg/metrics"
	"github.com/tillpoint/tillpoint-backend/pkg/migrate"
	"github.com/tillpoint/tillpoint-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	svcs, err := buildServices(cfg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
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
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			svcs,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}

func buildServices(cfg *config.Config, dbClient *db.Client) (routes.Services, error) {
	conn := dbClient.DB()

	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	stockRepo := stock.NewRepository(conn)
	salesRepo := sales.NewRepository(conn)
	customerRepo := customers.NewRepository(conn)
	supplierRepo := suppliers.NewRepository(conn)

	authService, err := auth.NewService(userRepo, dbClient, cfg.JWT, cfg.Password)
	if err != nil {
		return routes.Services{}, err
	}
	productService, err := products.NewService(productRepo)
	if err != nil {
		return routes.Services{}, err
	}
	stockService, err := stock.NewService(stockRepo, dbClient)
	if err != nil {
		return routes.Services{}, err
	}
	salesService, err := sales.NewService(salesRepo, stockRepo, dbClient)
	if err != nil {
		return routes.Services{}, err
	}
	customerService, err := customers.NewService(customerRepo)
	if err != nil {
		return routes.Services{}, err
	}
	supplierService, err := suppliers.NewService(supplierRepo)
	if err != nil {
		return routes.Services{}, err
	}
	storeService, err := stores.NewService(conn)
	if err != nil {
		return routes.Services{}, err
	}
	methodService, err := paymentmethods.NewService(conn)
	if err != nil {
		return routes.Services{}, err
	}
	dashboardService, err := dashboard.NewService(conn, productRepo)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:           authService,
		Products:       productService,
		Stock:          stockService,
		Sales:          salesService,
		Customers:      customerService,
		Suppliers:      supplierService,
		Stores:         storeService,
		PaymentMethods: methodService,
		Dashboard:      dashboardService,
	}, nil
}
