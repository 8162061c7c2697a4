package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fv-bodegones/storefront-service/internal/config"
	"github.com/fv-bodegones/storefront-service/internal/handlers"
	"github.com/fv-bodegones/storefront-service/internal/logging"
	"github.com/fv-bodegones/storefront-service/internal/metrics"
	"github.com/fv-bodegones/storefront-service/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	config     *config.Config
	router     *gin.Engine
	handlers   *handlers.Handlers
	httpServer *http.Server
	logger     *logging.Logger
}

// New builds the router. gatherer backs /metrics.
func New(h *handlers.Handlers, cfg *config.Config, m *metrics.Metrics, gatherer prometheus.Gatherer) *Server {
	logger := logging.NewLogger("http")

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Metrics(m),
	)

	s := &Server{
		config:   cfg,
		router:   router,
		handlers: h,
		logger:   logger,
	}

	s.setupRoutes(gatherer)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	h := s.handlers

	s.router.GET("/health", h.Health)
	s.router.GET("/ready", h.Ready)
	s.router.GET("/live", h.Live)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	{
		api.GET("/categories", h.ListCategories)
		api.GET("/categories/:id", h.GetCategory)
		api.POST("/categories", h.CreateCategory)
		api.PUT("/categories/:id", h.UpdateCategory)
		api.DELETE("/categories/:id", h.DeleteCategory)

		api.GET("/products", h.ListProducts)
		api.GET("/products/featured", h.FeaturedProducts)
		api.GET("/products/category/:categoryId", h.ProductsByCategory)
		api.GET("/products/:id", h.GetProduct)
		api.POST("/products", h.CreateProduct)
		api.PUT("/products/:id", h.UpdateProduct)
		api.DELETE("/products/:id", h.DeleteProduct)

		api.GET("/sponsors", h.ListSponsors)

		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.UpdateSettings)

		api.GET("/dollar-rate", h.GetDollarRate)
		api.POST("/convert", h.Convert)

		api.POST("/orders/quote", h.QuoteOrder)
		api.POST("/orders", h.CreateOrder)
		api.GET("/orders", h.ListOrders)
		api.GET("/orders/:id", h.GetOrder)
		api.GET("/orders/:id/items", h.GetOrderItems)
		api.PATCH("/orders/:id/status", h.UpdateOrderStatus)
	}

	admin := api.Group("/admin")
	{
		admin.GET("/products/counts", h.ProductCounts)

		admin.GET("/sponsors", h.AdminListSponsors)
		admin.GET("/sponsors/:id", h.GetSponsor)
		admin.POST("/sponsors", h.CreateSponsor)
		admin.PUT("/sponsors/:id", h.UpdateSponsor)
		admin.DELETE("/sponsors/:id", h.DeleteSponsor)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting server", logging.Fields{"addr": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
