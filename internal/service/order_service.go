package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fv-bodegones/storefront-service/internal/apperrors"
	"github.com/fv-bodegones/storefront-service/internal/clients"
	"github.com/fv-bodegones/storefront-service/internal/config"
	"github.com/fv-bodegones/storefront-service/internal/events"
	"github.com/fv-bodegones/storefront-service/internal/exchange"
	"github.com/fv-bodegones/storefront-service/internal/logging"
	"github.com/fv-bodegones/storefront-service/internal/metrics"
	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/fv-bodegones/storefront-service/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	defaultOrderListLimit = 50
	maxOrderListLimit     = 200
)

const (
	noticeRateDegraded    = "Exchange rate could not be refreshed; bolívar amounts use the last known rate."
	noticeRateUnavailable = "Exchange rate unavailable; bolívar amounts are not shown."
)

// RateProvider hands out the current USD→VES rate.
type RateProvider interface {
	GetRate(ctx context.Context) (exchange.RateResult, error)
}

// Quote is a fully priced checkout. Amounts are USD unless suffixed VES.
type Quote struct {
	Lines          []*models.OrderItem  `json:"lines"`
	Total          decimal.Decimal      `json:"total"`
	PreTaxSubtotal decimal.Decimal      `json:"pre_tax_subtotal"`
	TaxAmount      decimal.Decimal      `json:"tax_amount"`
	TaxPercentage  decimal.Decimal      `json:"tax_percentage"`
	ExchangeRate   *exchange.RateResult `json:"exchange_rate,omitempty"`
	TotalVES       decimal.Decimal      `json:"total_ves"`
	RateDegraded   bool                 `json:"rate_degraded"`
	RateNotice     string               `json:"rate_notice,omitempty"`
	Summary        string               `json:"summary"`
	WhatsAppURL    string               `json:"whatsapp_url,omitempty"`
}

// PlacedOrder is the result of a successful checkout.
type PlacedOrder struct {
	Order *models.Order       `json:"order"`
	Items []*models.OrderItem `json:"items"`
	Quote *Quote              `json:"quote"`
}

// OrderService prices, places and tracks customer orders.
type OrderService struct {
	orderRepo      repository.OrderRepository
	productRepo    repository.ProductRepository
	settingsRepo   repository.SettingsRepository
	orderCache     repository.OrderCache
	rates          RateProvider
	eventPublisher events.OrderEventPublisher
	whatsapp       *clients.WhatsAppLinker
	metrics        *metrics.Metrics
	config         *config.Config
	logger         *logging.Logger
}

// NewOrderService creates a new order service. orderCache may be nil.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	settingsRepo repository.SettingsRepository,
	orderCache repository.OrderCache,
	rates RateProvider,
	eventPublisher events.OrderEventPublisher,
	whatsapp *clients.WhatsAppLinker,
	m *metrics.Metrics,
	cfg *config.Config,
) *OrderService {
	return &OrderService{
		orderRepo:      orderRepo,
		productRepo:    productRepo,
		settingsRepo:   settingsRepo,
		orderCache:     orderCache,
		rates:          rates,
		eventPublisher: eventPublisher,
		whatsapp:       whatsapp,
		metrics:        m,
		config:         cfg,
		logger:         logging.NewLogger("order-service"),
	}
}

// QuoteOrder prices a checkout without storing anything.
func (s *OrderService) QuoteOrder(ctx context.Context, req *models.CreateOrderRequest) (*Quote, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	return s.buildQuote(ctx, req)
}

// PlaceOrder prices the request from the catalog and stores it. Any totals
// the client computed are ignored.
func (s *OrderService) PlaceOrder(ctx context.Context, req *models.CreateOrderRequest) (*PlacedOrder, error) {
	s.logger.Info("Placing order", logging.Fields{
		"customer_phone": req.CustomerPhone,
		"item_count":     len(req.Items),
	})

	placed, err := s.placeOrder(ctx, req)
	if err != nil {
		s.metrics.OrderFailed()
		return nil, err
	}

	s.metrics.OrderPlaced(placed.Order.Total)
	s.logger.Info("Order placed", logging.Fields{
		"order_id":      placed.Order.ID,
		"total":         placed.Order.Total.String(),
		"rate_degraded": placed.Quote.RateDegraded,
	})
	return placed, nil
}

func (s *OrderService) placeOrder(ctx context.Context, req *models.CreateOrderRequest) (*PlacedOrder, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	quote, err := s.buildQuote(ctx, req)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   strings.TrimSpace(req.CustomerPhone),
		CustomerEmail:   req.CustomerEmail,
		CustomerAddress: req.CustomerAddress,
		Notes:           req.Notes,
		Total:           quote.Total,
		Status:          models.OrderStatusPending,
	}

	items := make([]*models.OrderItem, len(quote.Lines))
	for i, line := range quote.Lines {
		cp := *line
		items[i] = &cp
	}

	if err := s.orderRepo.Create(ctx, order, items); err != nil {
		s.logger.Error("Failed to create order", logging.Fields{"error": err.Error()})
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.NewValidationError("items", "one or more products no longer exist")
		}
		return nil, err
	}

	if s.cachingEnabled() {
		if err := s.orderCache.Set(ctx, order); err != nil {
			s.logger.Error("Failed to cache order", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	if s.config.Features.EnableOrderEvents {
		if err := s.eventPublisher.PublishOrderCreated(ctx, order, items); err != nil {
			s.logger.Error("Failed to publish order created event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	return &PlacedOrder{Order: order, Items: items, Quote: quote}, nil
}

func (s *OrderService) buildQuote(ctx context.Context, req *models.CreateOrderRequest) (*Quote, error) {
	settings, err := currentSettings(ctx, s.settingsRepo, s.config)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productRepo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]*models.OrderItem, 0, len(req.Items))
	pricing := make([]OrderLine, 0, len(req.Items))
	for i, item := range req.Items {
		p, ok := products[item.ProductID]
		if !ok {
			return nil, apperrors.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "product not found")
		}

		line := OrderLine{UnitPrice: p.Price, Quantity: item.Quantity, Unit: p.MeasurementType}
		subtotal, err := ComputeLineSubtotal(line)
		if err != nil {
			return nil, lineValidationError(i, err)
		}

		pricing = append(pricing, line)
		lines = append(lines, &models.OrderItem{
			ProductID:       p.ID,
			ProductName:     p.Name,
			Price:           p.Price,
			Quantity:        item.Quantity,
			MeasurementType: p.MeasurementType,
			Subtotal:        subtotal,
		})
	}

	breakdown, err := ComputeOrderTotal(pricing, settings.TaxPercentage)
	if err != nil {
		var lerr *LineError
		if errors.As(err, &lerr) {
			return nil, lineValidationError(lerr.Index, lerr.Err)
		}
		return nil, apperrors.NewValidationError("tax_percentage", err.Error())
	}
	rounded := breakdown.Rounded()

	quote := &Quote{
		Lines:          lines,
		Total:          rounded.Total,
		PreTaxSubtotal: rounded.PreTaxSubtotal,
		TaxAmount:      rounded.TaxAmount,
		TaxPercentage:  rounded.TaxPercentage,
		TotalVES:       decimal.Zero,
	}
	s.applyRate(ctx, quote)

	summaryLines := make([]SummaryLine, len(lines))
	for i, line := range lines {
		summaryLines[i] = SummaryLine{
			Name:      line.ProductName,
			Unit:      line.MeasurementType,
			UnitPrice: line.Price,
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal,
		}
	}
	quote.Summary = RenderOrderSummary(SummaryCustomer{
		Name:    req.CustomerName,
		Phone:   req.CustomerPhone,
		Address: req.CustomerAddress,
		Notes:   req.Notes,
	}, summaryLines, breakdown, quote.TotalVES)

	link, err := s.whatsapp.OrderLink(settings.WhatsAppContact(), quote.Summary)
	if err != nil {
		s.logger.Warn("No WhatsApp link for order", logging.Fields{"error": err.Error()})
	} else {
		quote.WhatsAppURL = link
	}

	return quote, nil
}

// applyRate fills the bolívar side of a quote. A missing rate never fails the
// quote; it is reported through RateNotice.
func (s *OrderService) applyRate(ctx context.Context, quote *Quote) {
	rate, err := s.rates.GetRate(ctx)
	if err != nil {
		s.logger.Warn("Quoting without exchange rate", logging.Fields{"error": err.Error()})
		quote.RateNotice = noticeRateUnavailable
		return
	}

	quote.ExchangeRate = &rate
	quote.TotalVES = quote.Total.Mul(rate.Rate).Round(currencyPlaces)
	if rate.Degraded {
		quote.RateDegraded = true
		quote.RateNotice = noticeRateDegraded
	}
}

func lineValidationError(index int, err error) error {
	field := "quantity"
	if errors.Is(err, ErrInvalidPrice) {
		field = "price"
	}
	return &apperrors.ValidationError{
		Field:   fmt.Sprintf("items[%d].%s", index, field),
		Message: err.Error(),
	}
}

// GetOrder retrieves an order by ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.logger.Debug("Getting order", logging.Fields{"order_id": id})

	if s.cachingEnabled() {
		if order, err := s.orderCache.Get(ctx, id); err == nil && order != nil {
			s.logger.Debug("Order found in cache", logging.Fields{"order_id": id})
			return order, nil
		}
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cachingEnabled() {
		if err := s.orderCache.Set(ctx, order); err != nil {
			s.logger.Warn("Failed to cache order", logging.Fields{"order_id": id, "error": err.Error()})
		}
	}

	return order, nil
}

// ListOrders returns a page of orders, newest first, and the total count.
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderListFilter) ([]*models.Order, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultOrderListLimit
	}
	if filter.Limit > maxOrderListLimit {
		filter.Limit = maxOrderListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return s.orderRepo.List(ctx, filter)
}

func (s *OrderService) GetOrderItems(ctx context.Context, orderID string) ([]*models.OrderItem, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orderRepo.GetItems(ctx, orderID)
}

// UpdateOrderStatus moves an order to a new status.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	if req.Status == "" {
		return nil, apperrors.NewValidationError("status", "is required")
	}
	if !req.Status.Valid() {
		return nil, apperrors.NewValidationError("status", fmt.Sprintf("unknown status %q", req.Status))
	}

	s.logger.Info("Updating order status", logging.Fields{
		"order_id":   id,
		"new_status": req.Status,
	})

	current, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !isValidStatusTransition(current.Status, req.Status) {
		return nil, apperrors.NewValidationError("status", fmt.Sprintf(
			"invalid status transition from %s to %s",
			current.Status,
			req.Status,
		))
	}

	previousStatus := current.Status

	order, err := s.orderRepo.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return nil, err
	}

	if s.cachingEnabled() {
		if err := s.orderCache.Delete(ctx, id); err != nil {
			s.logger.Warn("Failed to invalidate cached order", logging.Fields{"order_id": id, "error": err.Error()})
		}
	}

	if s.config.Features.EnableOrderEvents {
		if err := s.eventPublisher.PublishOrderStatusChanged(ctx, order, previousStatus); err != nil {
			s.logger.Error("Failed to publish status change event", logging.Fields{
				"order_id": order.ID,
				"error":    err.Error(),
			})
		}
	}

	return order, nil
}

func (s *OrderService) cachingEnabled() bool {
	return s.orderCache != nil && s.config.Features.EnableOrderCaching
}

// Delivered and cancelled orders are final. Any other status may move to any
// status, since the store works orders by hand.
func isValidStatusTransition(from, to models.OrderStatus) bool {
	switch from {
	case models.OrderStatusDelivered, models.OrderStatusCancelled:
		return from == to
	}
	return true
}
