package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fv-bodegones/storefront-service/internal/clients"
	"github.com/fv-bodegones/storefront-service/internal/config"
	"github.com/fv-bodegones/storefront-service/internal/events"
	"github.com/fv-bodegones/storefront-service/internal/exchange"
	"github.com/fv-bodegones/storefront-service/internal/handlers"
	"github.com/fv-bodegones/storefront-service/internal/metrics"
	"github.com/fv-bodegones/storefront-service/internal/middleware"
	"github.com/fv-bodegones/storefront-service/internal/repository"
	"github.com/fv-bodegones/storefront-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRate struct{}

func (fixedRate) GetRate(ctx context.Context) (exchange.RateResult, error) {
	return exchange.RateResult{ExchangeRate: exchange.ExchangeRate{Rate: decimal.RequireFromString("36.50")}}, nil
}

func (fixedRate) ConvertToLocal(ctx context.Context, amountUSD decimal.Decimal) decimal.Decimal {
	return amountUSD.Mul(decimal.RequireFromString("36.50"))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{Port: 0},
		Store:  config.StoreConfig{DefaultTaxPercentage: decimal.NewFromInt(16)},
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	store := repository.NewMemoryStore()

	orders := service.NewOrderService(store, store, store, nil, fixedRate{}, events.NoopPublisher{},
		clients.NewWhatsAppLinker(""), m, cfg)
	catalog := service.NewCatalogService(store, store, store, store, cfg)
	h := handlers.NewHandlers(orders, catalog, fixedRate{}, cfg, nil)

	return New(h, cfg, m, reg)
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/live", http.StatusOK},
		{http.MethodGet, "/api/categories", http.StatusOK},
		{http.MethodGet, "/api/products", http.StatusOK},
		{http.MethodGet, "/api/products/featured", http.StatusOK},
		{http.MethodGet, "/api/products/category/none", http.StatusNotFound},
		{http.MethodGet, "/api/admin/products/counts", http.StatusOK},
		{http.MethodGet, "/api/sponsors", http.StatusOK},
		{http.MethodGet, "/api/admin/sponsors", http.StatusOK},
		{http.MethodGet, "/api/settings", http.StatusOK},
		{http.MethodGet, "/api/dollar-rate", http.StatusOK},
		{http.MethodGet, "/api/orders", http.StatusOK},
		{http.MethodGet, "/api/orders/none", http.StatusNotFound},
		{http.MethodGet, "/api/nowhere", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestServer_RequestIDAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(middleware.HeaderRequestID))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `storefront_http_requests_total{method="GET",route="/health",status="200"} 1`), body)
}
