package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusDelivered,
		OrderStatusCancelled:
		return true
	}
	return false
}

// Order is a placed customer order. Total is tax-inclusive USD.
type Order struct {
	ID              string          `json:"id"`
	CustomerName    string          `json:"customer_name"`
	CustomerPhone   string          `json:"customer_phone"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	CustomerAddress string          `json:"customer_address,omitempty"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is one priced line of an order, snapshotting the product's name,
// price and measurement type at the time of purchase.
type OrderItem struct {
	ID              string          `json:"id,omitempty"`
	OrderID         string          `json:"order_id,omitempty"`
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Price           decimal.Decimal `json:"price"`
	Quantity        decimal.Decimal `json:"quantity"`
	MeasurementType MeasurementUnit `json:"measurement_type"`
	Subtotal        decimal.Decimal `json:"subtotal"`
}

// OrderItemRequest asks for Quantity of a product. Quantity is a unit count
// or, for weight products, grams.
type OrderItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// CreateOrderRequest is the checkout payload. Prices and totals are always
// computed server-side from the catalog.
type CreateOrderRequest struct {
	CustomerName    string             `json:"customer_name" validate:"required,max=200"`
	CustomerPhone   string             `json:"customer_phone" validate:"required,max=30"`
	CustomerEmail   string             `json:"customer_email,omitempty" validate:"omitempty,email,max=200"`
	CustomerAddress string             `json:"customer_address,omitempty" validate:"max=500"`
	Notes           string             `json:"notes,omitempty" validate:"max=1000"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}

type OrderListFilter struct {
	Status *OrderStatus
	Limit  int
	Offset int
}

// ParseOrderStatus converts a raw status string into an OrderStatus.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown order status %q", s)
	}
	return status, nil
}
