package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/identity"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

const serviceName = "storefront"

// Services groups the application services exposed over HTTP.
type Services struct {
	Carts     *service.CartService
	Orders    *service.OrderService
	Addresses *service.AddressService
	Inventory *service.InventoryService
}

// RouterOptions holds the deployment-specific parts of the router.
type RouterOptions struct {
	PprofCIDRs  []string
	CORSOrigins []string
	RateLimit   middleware.RateLimitConfig
}

// NewRouter creates a chi router with all storefront routes registered.
// Every /api/v1 route requires a caller identity; admin routes also require
// the admin role.
func NewRouter(
	svcs Services,
	resolve middleware.ClaimsResolver,
	healthHandler *health.Handler,
	logger *slog.Logger,
	opts RouterOptions,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, opts.PprofCIDRs, logger)

	cartHandler := NewCartHandler(svcs.Carts, logger)
	orderHandler := NewOrderHandler(svcs.Orders, logger)
	addressHandler := NewAddressHandler(svcs.Addresses, logger)
	inventoryHandler := NewInventoryHandler(svcs.Inventory, logger)
	admin := middleware.RequireRole(identity.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(middleware.CORSConfig{
			AllowedOrigins: opts.CORSOrigins,
			AllowedHeaders: []string{
				"Content-Type", "Authorization", HeaderIdempotencyKey, middleware.HeaderCorrelationID,
				identity.HeaderUserID, identity.HeaderUserEmail, identity.HeaderUserRole,
			},
			ExposedHeaders: []string{middleware.HeaderCorrelationID},
		}))
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(resolve))
		r.Use(middleware.RateLimit(opts.RateLimit, logger))
		r.Use(middleware.RequestLogger(logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Patch("/items/{productId}", cartHandler.UpdateItemQuantity)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
			r.Post("/items/{productId}/reprice", cartHandler.RepriceItem)
		})

		r.Route("/carts", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", cartHandler.ListCarts)
			r.Delete("/{cartId}/items/{productId}", cartHandler.RemoveCartItem)
		})

		r.With(admin).Post("/products/{productId}/reprice", cartHandler.RepriceProduct)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.PlaceOrder)
			r.Get("/", orderHandler.ListOrders)
			r.Get("/{id}", orderHandler.GetOrder)
			r.With(admin).Patch("/{id}/status", orderHandler.UpdateOrderStatus)
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Post("/", addressHandler.CreateAddress)
			r.Get("/{id}", addressHandler.GetAddress)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(admin)
			r.Get("/{productId}", inventoryHandler.GetStock)
			r.Post("/{productId}/restock", inventoryHandler.Restock)
			r.Post("/{productId}/decrement", inventoryHandler.Decrement)
		})
	})

	return r
}
