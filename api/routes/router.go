package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface dispatches to.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	Ready            map[string]controllers.Pinger
	Idempotency      pkgredis.IdempotencyStore
	MetricsGatherer  prometheus.Gatherer
	Accounts         controllers.AccountVerifier
	Cart             controllers.CartService
	Checkout         controllers.OrderCreator
	Orders           controllers.OrderReader
	Payments         controllers.PaymentService
	Promocodes       controllers.PromocodeCreator
	StripeWebhooks   webhookcontrollers.StripeWebhookService
	StripeVerifier   webhookcontrollers.EventVerifier
	StripeEventGuard webhookcontrollers.WebhookGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.Ready, logg))
	})

	if p.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhooks, p.StripeVerifier, p.StripeEventGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Idempotency, logg))

		r.Post("/account/verify", controllers.AccountVerify(p.Accounts, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(p.Cart, logg))
			r.Delete("/", controllers.CartClear(p.Cart, logg))
			r.Post("/items", controllers.CartAddItem(p.Cart, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(p.Cart, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(p.Cart, logg))
			r.Post("/promocode", controllers.CartApplyPromocode(p.Cart, logg))
			r.Delete("/promocode", controllers.CartRemovePromocode(p.Cart, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(p.Checkout, logg))
			r.Get("/", controllers.OrderList(p.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(p.Orders, logg))
			r.Post("/{orderId}/payments", controllers.PaymentCreate(p.Payments, logg))
		})

		r.Route("/payments/{sessionId}", func(r chi.Router) {
			r.Post("/capture", controllers.PaymentCapture(p.Payments, logg))
			r.Post("/cancel", controllers.PaymentCancel(p.Payments, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
			r.Post("/promocodes", controllers.AdminPromocodeCreate(p.Promocodes, logg))
		})
	})

	return r
}
