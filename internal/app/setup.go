// Package app contains the application setup for the storefront service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/avelichko/storefront/internal/config"
	"github.com/avelichko/storefront/internal/service"
	"github.com/avelichko/storefront/internal/store"
	"github.com/avelichko/storefront/internal/transport/rest"
	"github.com/avelichko/storefront/pkg/messaging"
	"github.com/avelichko/storefront/pkg/server"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Dependencies struct {
	OrderService   service.OrderService
	UserService    service.UserService
	ProductService service.ProductService
	Logger         *slog.Logger
	metricsHandler http.Handler
}

func SetupDependencies(dbPool *pgxpool.Pool, publisher messaging.Publisher, registry *prometheus.Registry, logger *slog.Logger) *Dependencies {
	userStore := store.NewPgUserStore(dbPool)
	productStore := store.NewPgProductStore(dbPool)
	orderStore := store.NewPgOrderStore(dbPool)

	// Order validation reads users and products through the same store
	// interfaces the CRUD services use; the clock defaults to time.Now.
	validator := service.NewValidator(userStore, productStore, nil)

	return &Dependencies{
		OrderService:   service.NewService(orderStore, validator, publisher, logger),
		UserService:    service.NewUserService(userStore),
		ProductService: service.NewProductService(productStore),
		Logger:         logger,
		metricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
}

// SetupHttpHandler initializes the HTTP routes for the storefront application.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	rest.NewOrderHandler(deps.OrderService, deps.Logger).RegisterRoutes(mux)
	rest.NewUserHandler(deps.UserService, deps.Logger).RegisterRoutes(mux)
	rest.NewProductHandler(deps.ProductService, deps.Logger).RegisterRoutes(mux)
	if deps.metricsHandler != nil {
		mux.Method(http.MethodGet, "/metrics", deps.metricsHandler)
	}
}

// SetupHttpServer creates and configures an HTTP server for the storefront application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
