package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veloramarket/loyalty-backend/api/controllers"
	"github.com/veloramarket/loyalty-backend/api/middleware"
	"github.com/veloramarket/loyalty-backend/internal/draws"
	"github.com/veloramarket/loyalty-backend/internal/ledger"
	"github.com/veloramarket/loyalty-backend/internal/lottery"
	"github.com/veloramarket/loyalty-backend/internal/rewards"
	"github.com/veloramarket/loyalty-backend/pkg/config"
	"github.com/veloramarket/loyalty-backend/pkg/db"
	"github.com/veloramarket/loyalty-backend/pkg/logger"
	"github.com/veloramarket/loyalty-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ledgerService ledger.Service,
	rewardsService rewards.Service,
	lotteryService lottery.Service,
	drawsService draws.Service,
) http.Handler {
	// A typed nil *redis.Client must not leak into the interface params below.
	var idempotencyStore redis.IdempotencyStore
	var redisPinger redis.Pinger
	if redisClient != nil {
		idempotencyStore = redisClient
		redisPinger = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/loyalty", func(r chi.Router) {
			r.Route("/accounts/{accountId}", func(r chi.Router) {
				r.Get("/", controllers.LoyaltyAccount(ledgerService, logg))
				r.Get("/transactions", controllers.LoyaltyTransactions(ledgerService, logg))
				r.With(middleware.RequireRole(logg, "service", "admin")).
					Post("/accrue", controllers.LoyaltyAccrue(ledgerService, logg))
			})
			r.Post("/redeem", controllers.LoyaltyRedeem(rewardsService, logg))
		})

		r.Get("/rewards", controllers.RewardsList(rewardsService, logg))

		r.Route("/lottery", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, "service", "admin")).
				Post("/orders/{orderId}/tickets", controllers.LotteryIssueTickets(lotteryService, logg))
			r.Get("/accounts/{accountId}/tickets", controllers.LotteryAccountTickets(lotteryService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, "admin"))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/rewards", func(r chi.Router) {
			r.Post("/", controllers.AdminRewardCreate(rewardsService, logg))
			r.Patch("/{rewardId}", controllers.AdminRewardUpdate(rewardsService, logg))
			r.Post("/{rewardId}/deactivate", controllers.AdminRewardDeactivate(rewardsService, logg))
		})

		r.Route("/draws", func(r chi.Router) {
			r.Post("/", controllers.AdminDrawCreate(drawsService, logg))
			r.Get("/", controllers.AdminDrawList(drawsService, logg))
			r.Get("/{drawId}", controllers.AdminDrawGet(drawsService, logg))
			r.Post("/{drawId}/perform", controllers.AdminDrawPerform(drawsService, logg))
		})

		r.Post("/loyalty/accounts/{accountId}/adjust", controllers.LoyaltyAdjust(ledgerService, logg))
	})

	return r
}
