// Package metrics exposes the service's Prometheus collectors. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "storefront"

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

type Metrics struct {
	rateFetches   *prometheus.CounterVec
	rateDegraded  prometheus.Counter
	exchangeRate  prometheus.Gauge
	ordersPlaced  *prometheus.CounterVec
	orderTotalUSD prometheus.Histogram
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. Pass
// prometheus.NewRegistry() in tests to avoid clashing with the default
// registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		rateFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_rate_fetches_total",
			Help:      "Upstream exchange rate fetches by outcome.",
		}, []string{"outcome"}),
		rateDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_rate_degraded_total",
			Help:      "Requests served a cached exchange rate after a failed fetch.",
		}),
		exchangeRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "exchange_rate_usd_ves",
			Help:      "Current USD to VES exchange rate.",
		}),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders placed by outcome.",
		}, []string{"outcome"}),
		orderTotalUSD: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_total_usd",
			Help:      "Tax-inclusive order totals in USD.",
			Buckets:   []float64{5, 10, 20, 50, 100, 200, 500, 1000},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.rateFetches,
		m.rateDegraded,
		m.exchangeRate,
		m.ordersPlaced,
		m.orderTotalUSD,
		m.httpRequests,
		m.httpDuration,
	)

	return m
}

func (m *Metrics) RateFetched(outcome string) {
	if m == nil {
		return
	}
	m.rateFetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RateDegraded() {
	if m == nil {
		return
	}
	m.rateDegraded.Inc()
}

func (m *Metrics) SetExchangeRate(rate decimal.Decimal) {
	if m == nil {
		return
	}
	m.exchangeRate.Set(rate.InexactFloat64())
}

func (m *Metrics) OrderPlaced(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(OutcomeSuccess).Inc()
	m.orderTotalUSD.Observe(total.InexactFloat64())
}

func (m *Metrics) OrderFailed() {
	if m == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(OutcomeError).Inc()
}

func (m *Metrics) ObserveHTTP(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
