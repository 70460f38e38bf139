package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/service"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/health"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/middleware"
)

// RouterConfig carries what the router needs besides the services.
type RouterConfig struct {
	ServiceName   string
	ShopName      string
	SessionCookie string
	SecureCookie  bool
	CORS          middleware.CORSConfig
	PprofCIDRs    []string

	// Per-IP limit on login attempts. Zero means unlimited.
	LoginRateLimit float64
	LoginRateBurst int
}

// Services groups the application services the handlers call.
type Services struct {
	Orders     *service.OrderService
	Catalog    *service.CatalogService
	Promotions *service.PromotionService
	Auth       *service.AuthService
}

// NewRouter creates a chi router with all shop routes registered.
func NewRouter(cfg RouterConfig, svcs Services, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	orderHandler := NewOrderHandler(svcs.Orders, cfg.ShopName, logger)
	catalogHandler := NewCatalogHandler(svcs.Catalog, logger)
	promotionHandler := NewPromotionHandler(svcs.Promotions, logger)
	authHandler := NewAuthHandler(svcs.Auth, cfg.SessionCookie, cfg.SecureCookie, logger)

	authenticate := middleware.Authenticate(cfg.SessionCookie, SessionResolver(svcs.Auth))
	staff := middleware.RequireRole(domain.RoleAdmin, domain.RoleStaff)
	admin := middleware.RequireRole(domain.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Auth endpoints (public)
		r.With(middleware.RateLimit(cfg.LoginRateLimit, cfg.LoginRateBurst, logger)).
			Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)

		// Back-office endpoints (session required)
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(staff)

			r.Get("/auth/me", authHandler.Me)

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orderHandler.CreateOrder)
				r.Get("/", orderHandler.ListOrders)
				r.Get("/{id}", orderHandler.GetOrder)
				r.Put("/{id}/items", orderHandler.UpdateItems)
				r.Patch("/{id}/status", orderHandler.UpdateOrderStatus)
				r.Post("/{id}/cancel", orderHandler.CancelOrder)
				r.Post("/{id}/ready", orderHandler.MarkReady)
				r.Post("/{id}/ship", orderHandler.StartShipping)
				r.Post("/{id}/complete", orderHandler.CompleteDelivery)
				r.Post("/{id}/payments", orderHandler.AddPayment)
				r.Get("/{id}/payments", orderHandler.ListPayments)
				r.Get("/{id}/receipt", orderHandler.Receipt)
			})
			r.Get("/fulfillment", orderHandler.Fulfillment)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", catalogHandler.ListProducts)
				r.Get("/{id}", catalogHandler.GetProduct)
				r.Get("/{id}/transactions", catalogHandler.ListTransactions)
				r.Get("/{id}/price", promotionHandler.PreviewPrice)
				r.Post("/{id}/adjust", catalogHandler.AdjustStock)

				r.With(admin).Post("/", catalogHandler.CreateProduct)
				r.With(admin).Put("/{id}", catalogHandler.UpdateProduct)
			})

			r.Route("/promotions", func(r chi.Router) {
				r.Get("/", promotionHandler.ListPromotions)
				r.Get("/{id}", promotionHandler.GetPromotion)

				r.With(admin).Post("/", promotionHandler.CreatePromotion)
				r.With(admin).Post("/{id}/deactivate", promotionHandler.Deactivate)
			})

			r.Route("/carriers", func(r chi.Router) {
				r.Get("/", catalogHandler.ListCarriers)
				r.Post("/", catalogHandler.CreateCarrier)
			})
			r.Route("/customers", catalogHandler.partyRoutes(domain.PartyCustomer))
			r.Route("/suppliers", catalogHandler.partyRoutes(domain.PartySupplier))
		})
	})

	return r
}
