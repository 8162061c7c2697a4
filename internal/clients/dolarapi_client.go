package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fv-bodegones/storefront-service/internal/config"
	"github.com/fv-bodegones/storefront-service/internal/exchange"
	"github.com/fv-bodegones/storefront-service/internal/logging"
	"github.com/fv-bodegones/storefront-service/internal/middleware"
	"github.com/shopspring/decimal"
)

var _ exchange.RateSource = (*DolarAPIClient)(nil)

// DolarAPIClient reads USD→VES quotes from a DolarApi-compatible endpoint.
type DolarAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewDolarAPIClient(cfg config.RateSourceConfig) *DolarAPIClient {
	return &DolarAPIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logging.NewLogger("dolarapi-client"),
	}
}

type dolarQuote struct {
	Source    string              `json:"fuente"`
	Name      string              `json:"nombre"`
	Buy       decimal.NullDecimal `json:"compra"`
	Sell      decimal.NullDecimal `json:"venta"`
	Average   decimal.NullDecimal `json:"promedio"`
	UpdatedAt string              `json:"fechaActualizacion"`
}

// FetchRate returns the official (BCV) quote, or the first quote listed when
// no official one is published.
func (c *DolarAPIClient) FetchRate(ctx context.Context) (*exchange.ExchangeRate, error) {
	url := fmt.Sprintf("%s/v1/dolares", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	var quotes []dolarQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, fmt.Errorf("%w: %v", exchange.ErrInvalidRateData, err)
	}

	quote, ok := selectOfficialQuote(quotes)
	if !ok {
		return nil, fmt.Errorf("%w: no quotes returned", exchange.ErrInvalidRateData)
	}
	if !quote.Average.Valid {
		return nil, fmt.Errorf("%w: quote %q has no average", exchange.ErrInvalidRateData, quote.Name)
	}

	c.logger.Debug("Exchange rate received", logging.Fields{
		"source":   quote.Source,
		"name":     quote.Name,
		"promedio": quote.Average.Decimal.String(),
	})

	return &exchange.ExchangeRate{
		Rate:        quote.Average.Decimal,
		Buy:         quote.Buy.Decimal,
		Sell:        quote.Sell.Decimal,
		Source:      quote.Source,
		Name:        quote.Name,
		PublishedAt: parsePublishedAt(quote.UpdatedAt),
	}, nil
}

func selectOfficialQuote(quotes []dolarQuote) (dolarQuote, bool) {
	if len(quotes) == 0 {
		return dolarQuote{}, false
	}
	for _, q := range quotes {
		name := strings.ToLower(q.Name)
		source := strings.ToLower(q.Source)
		if strings.Contains(name, "bcv") || strings.Contains(name, "oficial") || strings.Contains(source, "bcv") {
			return q, true
		}
	}
	return quotes[0], true
}

func parsePublishedAt(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
