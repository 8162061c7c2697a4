package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/fv-bodegones/storefront-service/internal/apperrors"
	"github.com/fv-bodegones/storefront-service/internal/config"
	"github.com/fv-bodegones/storefront-service/internal/exchange"
	"github.com/fv-bodegones/storefront-service/internal/logging"
	"github.com/fv-bodegones/storefront-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// RateService is the part of the exchange rate cache the API exposes.
type RateService interface {
	GetRate(ctx context.Context) (exchange.RateResult, error)
	ConvertToLocal(ctx context.Context, amountUSD decimal.Decimal) decimal.Decimal
}

var log = logging.NewLogger("handlers")

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Handlers holds all HTTP handlers for the storefront service.
type Handlers struct {
	orderService   *service.OrderService
	catalogService *service.CatalogService
	rates          RateService
	checks         map[string]ReadinessCheck
	config         *config.Config
	logger         *logging.Logger
}

// NewHandlers creates a new handlers instance. checks are run by /ready.
func NewHandlers(
	orderService *service.OrderService,
	catalogService *service.CatalogService,
	rates RateService,
	cfg *config.Config,
	checks map[string]ReadinessCheck,
) *Handlers {
	return &Handlers{
		orderService:   orderService,
		catalogService: catalogService,
		rates:          rates,
		checks:         checks,
		config:         cfg,
		logger:         log,
	}
}

func (h *Handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.logger.Warn("Failed to bind request", logging.Fields{
			"path":  c.FullPath(),
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func handleError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if validationErr, ok := apperrors.AsValidation(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   validationErr.Message,
			"field":   validationErr.Field,
			"details": validationErr.Details,
		})
		return
	}

	if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	if errors.Is(err, exchange.ErrRateUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "exchange rate unavailable"})
		return
	}

	log.Error("Request failed", logging.Fields{
		"path":  c.FullPath(),
		"error": err.Error(),
	})
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
