package service

import (
	"testing"

	"github.com/fv-bodegones/storefront-service/internal/apperrors"
	"github.com/fv-bodegones/storefront-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStruct_CreateOrderRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       models.CreateOrderRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing_name",
			req:       models.CreateOrderRequest{CustomerPhone: "0414", Items: []models.OrderItemRequest{{ProductID: "p1", Quantity: d("1")}}},
			wantField: "customer_name",
			wantMsg:   "is required",
		},
		{
			name:      "no_items",
			req:       models.CreateOrderRequest{CustomerName: "A", CustomerPhone: "0414", Items: []models.OrderItemRequest{}},
			wantField: "items",
			wantMsg:   "must contain at least 1 item(s)",
		},
		{
			name:      "item_without_product",
			req:       models.CreateOrderRequest{CustomerName: "A", CustomerPhone: "0414", Items: []models.OrderItemRequest{{ProductID: "p1", Quantity: d("1")}, {Quantity: d("2")}}},
			wantField: "items[1].product_id",
			wantMsg:   "is required",
		},
		{
			name:      "bad_email",
			req:       models.CreateOrderRequest{CustomerName: "A", CustomerPhone: "0414", CustomerEmail: "not-an-email", Items: []models.OrderItemRequest{{ProductID: "p1", Quantity: d("1")}}},
			wantField: "customer_email",
			wantMsg:   "must be a valid email address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStruct(&tt.req)
			require.Error(t, err)

			verr, ok := apperrors.AsValidation(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Equal(t, tt.wantMsg, verr.Message)
			assert.NotEmpty(t, verr.Details)
		})
	}
}

func TestValidateStruct_ReportsEveryField(t *testing.T) {
	err := validateStruct(&models.CreateOrderRequest{})

	verr, ok := apperrors.AsValidation(err)
	require.True(t, ok)

	details, ok := verr.Details.([]FieldError)
	require.True(t, ok)

	var fields []string
	for _, d := range details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"customer_name", "customer_phone", "items"}, fields)
}

func TestValidateStruct_Valid(t *testing.T) {
	req := models.CreateOrderRequest{
		CustomerName:  "María",
		CustomerPhone: "0414-555-1234",
		CustomerEmail: "maria@example.com",
		Items:         []models.OrderItemRequest{{ProductID: "p1", Quantity: d("250")}},
	}
	assert.NoError(t, validateStruct(&req))
}
