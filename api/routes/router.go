package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orderdeskhq/orderdesk-backend/api/controllers"
	"github.com/orderdeskhq/orderdesk-backend/api/middleware"
	addresssvc "github.com/orderdeskhq/orderdesk-backend/internal/addresses"
	cartsvc "github.com/orderdeskhq/orderdesk-backend/internal/cart"
	customersvc "github.com/orderdeskhq/orderdesk-backend/internal/customers"
	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	pricingsvc "github.com/orderdeskhq/orderdesk-backend/internal/pricing"
	submitsvc "github.com/orderdeskhq/orderdesk-backend/internal/submit"
	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	pkgredis "github.com/orderdeskhq/orderdesk-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs. The router wires the
// composer services onto the draft routes and keeps health and metrics
// outside the auth boundary.
type Deps struct {
	Cfg        *config.Config
	Logg       *logger.Logger
	Registry   *draft.Registry
	Customers  *customersvc.Service
	Addresses  *addresssvc.Service
	Cart       *cartsvc.Service
	Pricing    *pricingsvc.Service
	Submit     *submitsvc.Service
	Redis      *pkgredis.Client
	EventsPing pkgredis.Pinger
	Metrics    prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Cfg
	logg := deps.Logg
	currency := deps.Pricing.Currency()

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, redisPinger(deps.Redis), deps.EventsPing, logg))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/drafts", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole("admin", logg),
			middleware.Idempotency(idempotencyStore(deps.Redis), logg),
		)

		r.Post("/", controllers.DraftCreate(deps.Registry, currency, logg))

		r.Route("/{draftId}", func(r chi.Router) {
			r.Get("/", controllers.DraftGet(deps.Registry, currency, logg))
			r.Delete("/", controllers.DraftDiscard(deps.Registry, logg))

			r.Put("/customer/query", controllers.CustomerQuery(deps.Registry, deps.Customers, currency, logg))
			r.Get("/customer/suggestions", controllers.CustomerSuggestions(deps.Registry, currency, logg))
			r.Post("/customer/select", controllers.CustomerSelect(deps.Registry, deps.Customers, currency, logg))
			r.Post("/customer", controllers.CustomerCreate(deps.Registry, deps.Customers, currency, logg))

			r.Put("/destination", controllers.DestinationSet(deps.Registry, deps.Addresses, currency, logg))
			r.Get("/addresses", controllers.AddressList(deps.Registry, currency, logg))
			r.Post("/addresses/select", controllers.AddressSelect(deps.Registry, deps.Addresses, currency, logg))
			r.Post("/addresses", controllers.AddressCreate(deps.Registry, deps.Addresses, currency, logg))

			r.Get("/products", controllers.ProductSearch(deps.Cart, logg))
			r.Post("/cart/items", controllers.CartAddProduct(deps.Registry, deps.Cart, currency, logg))
			r.Route("/cart/items/{lineKey}", func(r chi.Router) {
				r.Put("/options", controllers.CartSetOption(deps.Registry, deps.Cart, currency, logg))
				r.Put("/quantity", controllers.CartSetQuantityInput(deps.Registry, deps.Cart, currency, logg))
				r.Post("/quantity/commit", controllers.CartCommitQuantity(deps.Registry, deps.Cart, currency, logg))
				r.Delete("/", controllers.CartRemoveLine(deps.Registry, deps.Cart, currency, logg))
			})

			r.Get("/totals", controllers.PricingTotals(deps.Registry, deps.Pricing, currency, logg))
			r.Put("/shipping/manual-fee", controllers.ManualFeeInput(deps.Registry, deps.Pricing, currency, logg))
			r.Post("/shipping/manual-fee/commit", controllers.ManualFeeCommit(deps.Registry, deps.Pricing, currency, logg))
			r.Post("/coupon", controllers.CouponApply(deps.Registry, deps.Pricing, currency, logg))
			r.Delete("/coupon", controllers.CouponClear(deps.Registry, deps.Pricing, currency, logg))

			r.Put("/delivery", controllers.DeliverySet(deps.Registry, deps.Submit, currency, logg))
			r.Post("/validate", controllers.SubmitValidate(deps.Registry, deps.Submit, logg))
			r.Post("/submit", controllers.Submit(deps.Registry, deps.Submit, logg))
		})
	})

	return r
}

// nil *Client must stay nil as an interface, not a typed nil.
func redisPinger(c *pkgredis.Client) pkgredis.Pinger {
	if c == nil {
		return nil
	}
	return c
}

func idempotencyStore(c *pkgredis.Client) pkgredis.IdempotencyStore {
	if c == nil {
		return nil
	}
	return c
}
