package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/velafit/coachrewards-backend/api/routes"
	"github.com/velafit/coachrewards-backend/internal/audit"
	"github.com/velafit/coachrewards-backend/internal/bonus"
	"github.com/velafit/coachrewards-backend/internal/commission"
	"github.com/velafit/coachrewards-backend/internal/eligibility"
	"github.com/velafit/coachrewards-backend/internal/ledger"
	"github.com/velafit/coachrewards-backend/internal/orders"
	"github.com/velafit/coachrewards-backend/internal/partnership"
	"github.com/velafit/coachrewards-backend/internal/tier"
	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/db"
	"github.com/velafit/coachrewards-backend/pkg/logger"
	"github.com/velafit/coachrewards-backend/pkg/metrics"
	"github.com/velafit/coachrewards-backend/pkg/migrate"
	"github.com/velafit/coachrewards-backend/pkg/redis"
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

	ledgerRepo := ledger.NewRepository(dbClient.DB())
	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())

	// With a base URL the order system is queried over HTTP; without one the
	// locally mirrored snapshots serve reads.
	var orderProvider orders.Provider = ordersRepo
	if cfg.Orders.BaseURL != "" {
		ordersClient, err := orders.NewClient(cfg.Orders)
		if err != nil {
			logg.Error(context.Background(), "failed to create orders client", err)
			os.Exit(1)
		}
		orderProvider = ordersClient
	}

	eligibilityRepo := eligibility.NewRepository(dbClient.DB())
	eligibilityService, err := eligibility.NewService(cfg.Eligibility, eligibilityRepo, orderProvider, ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create eligibility service", err)
		os.Exit(1)
	}

	calc := bonus.NewCalculator(cfg.Commission)
	resolver, err := tier.NewResolver(ledgerRepo, cfg.Commission)
	if err != nil {
		logg.Error(context.Background(), "failed to create tier resolver", err)
		os.Exit(1)
	}

	partnershipRepo := partnership.NewRepository(dbClient.DB())
	partnershipService, err := partnership.NewService(cfg.Partnership, partnershipRepo, calc, resolver)
	if err != nil {
		logg.Error(context.Background(), "failed to create partnership service", err)
		os.Exit(1)
	}

	auditRepo := audit.NewRepository(dbClient.DB())
	auditService, err := audit.NewService(cfg.Audit, auditRepo, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	engine, err := commission.NewEngine(calc, resolver, orderProvider, ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission engine", err)
		os.Exit(1)
	}

	commissionMetrics := metrics.NewCommissionMetrics(prometheus.DefaultRegisterer)
	commissionHandler, err := commission.NewHandler(
		dbClient,
		ledgerRepo,
		orderProvider,
		eligibilityService,
		partnershipService,
		engine,
		auditService,
		commission.NopNotifier{},
		commissionMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission handler", err)
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
			ledgerRepo,
			ledgerService,
			ordersRepo,
			eligibilityService,
			partnershipService,
			engine,
			commissionHandler,
			resolver,
			auditService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
