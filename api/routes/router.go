package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/velafit/coachrewards-backend/api/controllers"
	"github.com/velafit/coachrewards-backend/api/middleware"
	"github.com/velafit/coachrewards-backend/internal/audit"
	"github.com/velafit/coachrewards-backend/internal/commission"
	"github.com/velafit/coachrewards-backend/internal/eligibility"
	"github.com/velafit/coachrewards-backend/internal/ledger"
	"github.com/velafit/coachrewards-backend/internal/orders"
	"github.com/velafit/coachrewards-backend/internal/partnership"
	"github.com/velafit/coachrewards-backend/internal/tier"
	"github.com/velafit/coachrewards-backend/pkg/config"
	"github.com/velafit/coachrewards-backend/pkg/db"
	"github.com/velafit/coachrewards-backend/pkg/logger"
	"github.com/velafit/coachrewards-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ledgerRepo ledger.Repository,
	ledgerService ledger.Service,
	ordersRepo *orders.Repository,
	eligibilityService eligibility.Service,
	partnershipService partnership.Service,
	commissionEngine commission.Engine,
	commissionHandler *commission.Handler,
	tierResolver *tier.Resolver,
	auditService audit.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	overridePolicy := middleware.NewRateLimitPolicy(
		"override",
		cfg.RateLimit.OverrideWindow,
		cfg.RateLimit.OverrideIPLimit,
		cfg.RateLimit.OverrideUserLimit,
	)
	overrideLimiter := func(next http.Handler) http.Handler { return next }
	var redisP redis.Pinger
	if redisClient != nil {
		overrideLimiter = middleware.RateLimit(overridePolicy, redisClient, logg)
		redisP = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/referrals", func(r chi.Router) {
			r.Post("/", controllers.RecordReferral(ledgerService, logg))
		})

		r.Post("/orders/snapshots", controllers.IngestOrderSnapshot(ordersRepo, logg))
		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Post("/complete", controllers.CompleteOrder(commissionHandler, logg))
			r.Get("/eligibility", controllers.GetEligibility(eligibilityService, logg))
		})

		r.Post("/eligibility/evaluate", controllers.EvaluateEligibility(eligibilityService, logg))

		r.Route("/coaches/{coachId}", func(r chi.Router) {
			r.Get("/referrals", controllers.ListCoachReferrals(ledgerRepo, logg))
			r.Get("/balance", controllers.CoachBalance(ledgerService, logg))
			r.Get("/tier", controllers.GetCoachTier(tierResolver, logg))
		})

		r.Route("/customers/{customerId}", func(r chi.Router) {
			r.Get("/partner", controllers.GetPartner(partnershipService, logg))
			r.Get("/credits/balance", controllers.SpendableBalance(ledgerService, logg))
		})

		r.Route("/partnerships", func(r chi.Router) {
			r.Post("/", controllers.SelectPartner(partnershipService, logg))
			r.Post("/commission/preview", controllers.PreviewPartnerCommission(partnershipService, logg))
		})

		r.Post("/commissions/preview", controllers.PreviewCommission(commissionEngine, logg))

		r.Route("/credits", func(r chi.Router) {
			r.Post("/", controllers.GrantCredit(ledgerService, logg))
			r.Post("/redeem", controllers.RedeemCredit(ledgerService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.With(overrideLimiter).
			Post("/orders/{orderId}/eligibility/override", controllers.OverrideEligibility(eligibilityService, auditService, logg))

		r.Delete("/referrals/{referralId}", controllers.RemoveDuplicateReferral(ledgerService, logg))
		r.Post("/coaches/{coachId}/balance/reconcile", controllers.ReconcileCoachBalance(ledgerService, logg))

		r.Route("/audit", func(r chi.Router) {
			r.Get("/events", controllers.QueryAuditEvents(auditService, logg))
			r.Get("/stats", controllers.AuditStats(auditService, logg))
			r.Get("/export", controllers.ExportAuditCSV(auditService, logg))
		})
	})

	return r
}
