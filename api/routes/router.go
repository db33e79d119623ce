package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bidhaus/backend/api/controllers"
	webhookcontrollers "github.com/bidhaus/backend/api/controllers/webhooks"
	"github.com/bidhaus/backend/api/middleware"
	"github.com/bidhaus/backend/internal/ledger"
	"github.com/bidhaus/backend/internal/payments"
	"github.com/bidhaus/backend/internal/referrals"
	"github.com/bidhaus/backend/internal/sellers"
	stripewebhook "github.com/bidhaus/backend/internal/webhooks/stripe"
	"github.com/bidhaus/backend/pkg/config"
	"github.com/bidhaus/backend/pkg/db"
	"github.com/bidhaus/backend/pkg/logger"
	pkgredis "github.com/bidhaus/backend/pkg/redis"
	"github.com/bidhaus/backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	metricsGatherer prometheus.Gatherer,
	ledgerService ledger.Service,
	referralService referrals.Service,
	paymentService payments.Service,
	sellerService sellers.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
) http.Handler {
	var idemStore pkgredis.IdempotencyStore
	var redisPinger pkgredis.Pinger
	if redisClient != nil {
		idemStore = redisClient
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

	if metricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/bidcoins", func(r chi.Router) {
			r.With(middleware.RequireGranter(logg)).Post("/earn", controllers.BidcoinEarn(ledgerService, logg))
			r.Post("/spend", controllers.BidcoinSpend(ledgerService, logg))
			r.Get("/balance", controllers.BidcoinBalance(ledgerService, logg))
			r.Get("/history", controllers.BidcoinHistory(ledgerService, logg))
		})

		r.Route("/referrals", func(r chi.Router) {
			r.Post("/claim", controllers.ReferralClaim(referralService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/auction", controllers.AuctionPayment(paymentService, logg))
			r.Post("/{paymentIntentId}/confirm", controllers.ConfirmPayment(paymentService, logg))
			r.With(middleware.RequireGranter(logg)).Post("/{paymentIntentId}/refund", controllers.RefundPayment(paymentService, logg))
		})

		r.Route("/sellers", func(r chi.Router) {
			r.Post("/account", controllers.SellerAccountCreate(sellerService, logg))
			r.Get("/account/status", controllers.SellerAccountStatus(sellerService, logg))
		})
	})

	return r
}
