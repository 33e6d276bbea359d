package transport

import (
	"net/http"

	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

type RouterConfig struct {
	Payments *PaymentHandler
	Carts    *CartHandler
	Orders   *OrderHandler

	Tokens     middleware.TokenParser
	Limiter    *middleware.RateLimiter
	Metrics    *metrics.ServerMetrics
	Gatherer   prometheus.Gatherer
	CORSOrigin string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.CORS(cfg.CORSOrigin))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Tokens))
		r.Use(cfg.Limiter.Middleware)
		r.Use(middleware.RequireAuth)

		r.Route("/payments", func(r chi.Router) {
			r.Post("/initialize", cfg.Payments.Initialize)
			r.Post("/verify", cfg.Payments.Verify)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Carts.Get)
			r.Delete("/", cfg.Carts.Clear)
			r.Post("/items", cfg.Carts.AddItem)
			r.Put("/items", cfg.Carts.UpdateItem)
			r.Delete("/items", cfg.Carts.RemoveItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", cfg.Orders.List)
			r.Get("/{orderID}", cfg.Orders.Get)
			r.With(middleware.RequireRole(auth.RoleAdmin)).
				Patch("/{orderID}/status", cfg.Orders.UpdateStatus)
		})
	})

	return r
}
