package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type convertRequest struct {
	AmountUSD *decimal.Decimal `json:"amount_usd"`
}

// GetDollarRate handles GET /api/dollar-rate
func (h *Handlers) GetDollarRate(c *gin.Context) {
	rate, err := h.rates.GetRate(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rate)
}

// Convert handles POST /api/convert. amount_ves is zero when no rate can be
// obtained.
func (h *Handlers) Convert(c *gin.Context) {
	var req convertRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if req.AmountUSD == nil || req.AmountUSD.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "amount_usd must be a non-negative number",
			"field": "amount_usd",
		})
		return
	}

	ves := h.rates.ConvertToLocal(c.Request.Context(), *req.AmountUSD)

	c.JSON(http.StatusOK, gin.H{
		"amount_usd": *req.AmountUSD,
		"amount_ves": ves.Round(2),
	})
}
