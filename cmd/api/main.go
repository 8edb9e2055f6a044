package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/veloramarket/loyalty-backend/api/routes"
	"github.com/veloramarket/loyalty-backend/internal/draws"
	"github.com/veloramarket/loyalty-backend/internal/ledger"
	"github.com/veloramarket/loyalty-backend/internal/lottery"
	"github.com/veloramarket/loyalty-backend/internal/rewards"
	"github.com/veloramarket/loyalty-backend/pkg/config"
	"github.com/veloramarket/loyalty-backend/pkg/db"
	"github.com/veloramarket/loyalty-backend/pkg/logger"
	"github.com/veloramarket/loyalty-backend/pkg/migrate"
	"github.com/veloramarket/loyalty-backend/pkg/outbox"
	"github.com/veloramarket/loyalty-backend/pkg/redis"
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), dbClient, outboxService, cfg.Loyalty.AccrueMaxRetries)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	rewardsService, err := rewards.NewService(rewards.NewRepository(dbClient.DB()), dbClient, outboxService, ledgerService)
	if err != nil {
		logg.Error(context.Background(), "failed to create rewards service", err)
		os.Exit(1)
	}

	lotteryService, err := lottery.NewService(lottery.NewRepository(dbClient.DB()), dbClient, outboxService, cfg.Lottery.TicketPrefix, cfg.Lottery.TicketSuffixLen)
	if err != nil {
		logg.Error(context.Background(), "failed to create lottery service", err)
		os.Exit(1)
	}

	drawsService, err := draws.NewService(draws.NewRepository(dbClient.DB()), dbClient, outboxService, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create draws service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, ledgerService, rewardsService, lotteryService, drawsService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
