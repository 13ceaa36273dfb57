package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/rogerio-castellano/inventory-orders/docs"
	"github.com/rogerio-castellano/inventory-orders/internal/auth"
	"github.com/rogerio-castellano/inventory-orders/internal/http/handlers"
	rl "github.com/rogerio-castellano/inventory-orders/internal/http/rate_limiter"
	"github.com/rogerio-castellano/inventory-orders/internal/idempotency"
)

type RouterConfig struct {
	Server         *handlers.Server
	Issuer         *auth.Issuer
	Limiter        *rl.Limiter
	Idempotency    idempotency.Store
	IdempotencyTTL time.Duration
	Logger         *zap.Logger
}

// NewRouter mounts every route. Reads are public; writes and the dashboard need a Bearer
// token and are rate limited per client.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	idem := cfg.Idempotency
	if idem == nil {
		idem = idempotency.NewMemoryStore()
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rl.New(1, 3)
	}
	s := cfg.Server

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/", s.HealthHandler)
	r.Post("/login", s.LoginHandler)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Get("/inventory", s.GetProductsHandler)
	r.Get("/inventory/{id}", s.GetProductByIDHandler)
	r.Get("/inventory/{id}/shipments", s.GetShipmentsHandler)
	r.Get("/orders", s.GetOrdersHandler)
	r.Get("/order/{id}", s.GetOrderByIDHandler)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Issuer))
		r.Use(limiter.Middleware)
		r.Use(idempotency.Middleware(idem, cfg.IdempotencyTTL, logger))

		r.Post("/inventory", s.CreateProductHandler)
		r.Put("/inventory", s.UpdateProductHandler)
		r.Post("/inventory/import", s.ImportProductsHandler)
		r.Post("/inventory/{id}/shipments", s.ReceiveShipmentHandler)
		r.Post("/order", s.CreateOrderHandler)
		r.Put("/order", s.UpdateOrderHandler)
		r.Get("/metrics/dashboard", s.GetDashboardMetricsHandler)
	})

	return r
}
