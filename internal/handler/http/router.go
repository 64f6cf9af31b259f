package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/shopcart/internal/service"
	"github.com/utafrali/shopcart/pkg/health"
	"github.com/utafrali/shopcart/pkg/middleware"
)

// RouterConfig carries the router's tunables.
type RouterConfig struct {
	CORS           middleware.CORSConfig
	RateLimitRPS   int
	RateLimitBurst int
}

// ContentTypeJSON enforces that requests with a body have
// Content-Type: application/json. Bodyless requests (logout, checkout) pass.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"success":false,"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter creates a chi router with all shopcart routes registered.
func NewRouter(
	authService *service.AuthService,
	itemService *service.ItemService,
	cartService *service.CartService,
	checkoutService *service.CheckoutService,
	orderService *service.OrderService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing("shopcart"))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.RequestLogger(logger))

	// Health and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	userHandler := NewUserHandler(authService, logger)
	itemHandler := NewItemHandler(itemService, logger)
	cartHandler := NewCartHandler(cartService, logger)
	orderHandler := NewOrderHandler(checkoutService, orderService, logger)

	requireAuth := middleware.Auth(authService.Validate, logger)
	// Re-enrich the context logger once the account is known; the global
	// RequestLogger runs before auth and cannot see it.
	logAccount := middleware.RequestLogger(logger)
	limitAuthBursts := middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)

	r.Route("/users", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.With(limitAuthBursts).Post("/", userHandler.Register)
		r.With(limitAuthBursts).Post("/login", userHandler.Login)
		r.Get("/", userHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, logAccount)
			r.Post("/logout", userHandler.Logout)
			r.Get("/me", userHandler.Me)
		})
	})

	r.Route("/items", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", itemHandler.Create)
		r.Get("/", itemHandler.List)
		r.Get("/{id}", itemHandler.Get)
	})

	r.Route("/carts", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", cartHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, logAccount)
			r.Post("/", cartHandler.AddItem)
			r.Get("/my-cart", cartHandler.MyCart)
			r.Delete("/my-cart/items/{itemId}", cartHandler.RemoveItem)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", orderHandler.List)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, logAccount)
			r.Post("/", orderHandler.Checkout)
			r.Get("/my-orders", orderHandler.MyOrders)
			r.Get("/{id}", orderHandler.Get)
		})
	})

	return r
}
