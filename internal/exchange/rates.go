// Package exchange keeps the USD→VES exchange rate used to show bolívar
// prices. RateService caches the last good rate, coalesces concurrent
// fetches into one, spaces calls to the upstream source, persists the rate
// across restarts, and falls back to a stale rate when the source fails.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fv-bodegones/storefront-service/internal/logging"
	"github.com/fv-bodegones/storefront-service/internal/metrics"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrInvalidRateData is returned when the source answers with a rate that
	// is missing, zero or negative.
	ErrInvalidRateData = errors.New("invalid rate data")

	// ErrRateUnavailable is returned when no rate has ever been obtained and
	// the source cannot be reached.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)

const (
	DefaultTTL             = 5 * time.Minute
	DefaultRefreshInterval = 10 * time.Minute
	DefaultMinInterval     = time.Second
	DefaultFetchTimeout    = 15 * time.Second

	fetchKey = "usd-ves"
)

// ExchangeRate is a USD→VES quote. Rate is the average of buy and sell as
// published by the source.
type ExchangeRate struct {
	Rate        decimal.Decimal `json:"rate"`
	Buy         decimal.Decimal `json:"buy"`
	Sell        decimal.Decimal `json:"sell"`
	Source      string          `json:"source"`
	Name        string          `json:"name"`
	PublishedAt time.Time       `json:"published_at"`
	FetchedAt   time.Time       `json:"fetched_at"`
}

// RateResult is a rate handed to callers. Degraded is set when the source
// failed and a previously cached rate is being served instead.
type RateResult struct {
	ExchangeRate
	Degraded bool `json:"degraded"`
}

// RateSource fetches the current rate from the outside world.
type RateSource interface {
	FetchRate(ctx context.Context) (*ExchangeRate, error)
}

// RateStore persists the last good rate across restarts.
type RateStore interface {
	Load(ctx context.Context) (*ExchangeRate, error)
	Save(ctx context.Context, rate *ExchangeRate) error
}

// State is the lifecycle position of the cached rate.
type State int

const (
	StateUninitialized State = iota
	StateFetching
	StateFresh
	StateStale
	StateFetchFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateFetching:
		return "fetching"
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	case StateFetchFailed:
		return "fetch_failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Options struct {
	TTL             time.Duration
	RefreshInterval time.Duration
	// MinInterval is the minimum spacing between the starts of two upstream
	// fetches. Zero disables spacing.
	MinInterval  time.Duration
	FetchTimeout time.Duration
	Now          func() time.Time
	Metrics      *metrics.Metrics
}

// RateService is the process-wide exchange rate cache. Build one in main and
// share it.
type RateService struct {
	source          RateSource
	store           RateStore
	ttl             time.Duration
	refreshInterval time.Duration
	fetchTimeout    time.Duration
	limiter         *rate.Limiter
	group           singleflight.Group
	now             func() time.Time
	metrics         *metrics.Metrics
	logger          *logging.Logger

	mu       sync.RWMutex
	current  *ExchangeRate
	fetching bool
	failed   bool
}

// NewRateService creates a rate service. store may be nil, in which case the
// rate only lives in memory.
func NewRateService(source RateSource, store RateStore, opts Options) *RateService {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &RateService{
		source:          source,
		store:           store,
		ttl:             opts.TTL,
		refreshInterval: opts.RefreshInterval,
		fetchTimeout:    opts.FetchTimeout,
		limiter:         rate.NewLimiter(limit, 1),
		now:             opts.Now,
		metrics:         opts.Metrics,
		logger:          logging.NewLogger("rate-service"),
	}
}

// Warm loads the persisted rate, if any. A warmed rate younger than the TTL
// is served as fresh; an older one is kept as a fallback.
func (s *RateService) Warm(ctx context.Context) error {
	if s.store == nil {
		return nil
	}

	stored, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load persisted rate: %w", err)
	}
	if stored == nil {
		s.logger.Info("No persisted exchange rate")
		return nil
	}
	if err := validateRate(stored); err != nil {
		s.logger.Warn("Ignoring persisted exchange rate", logging.Fields{"error": err.Error()})
		return nil
	}

	s.mu.Lock()
	if s.current == nil || stored.FetchedAt.After(s.current.FetchedAt) {
		s.current = stored
	}
	s.mu.Unlock()

	s.metrics.SetExchangeRate(stored.Rate)
	s.logger.Info("Exchange rate restored", logging.Fields{
		"rate":       stored.Rate.String(),
		"fetched_at": stored.FetchedAt,
	})
	return nil
}

// GetRate returns the cached rate while it is fresh, and otherwise fetches a
// new one. When the fetch fails, or fetch spacing would delay a retry, the
// last known rate is returned with Degraded set; with no rate at all the
// error wraps ErrRateUnavailable.
func (s *RateService) GetRate(ctx context.Context) (RateResult, error) {
	if r, ok := s.freshRate(); ok {
		return RateResult{ExchangeRate: r}, nil
	}
	if r, ok := s.throttledRate(); ok {
		s.metrics.RateDegraded()
		s.logger.Debug("Fetch spacing active, serving cached exchange rate", logging.Fields{
			"rate":       r.Rate.String(),
			"fetched_at": r.FetchedAt,
		})
		return RateResult{ExchangeRate: r, Degraded: true}, nil
	}
	return s.Refresh(ctx)
}

// Refresh fetches a new rate regardless of freshness. Callers that overlap
// an in-flight fetch share its outcome.
func (s *RateService) Refresh(ctx context.Context) (RateResult, error) {
	ch := s.group.DoChan(fetchKey, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return RateResult{}, ctx.Err()
	case res = <-ch:
	}

	if res.Err == nil {
		return RateResult{ExchangeRate: *res.Val.(*ExchangeRate)}, nil
	}

	if prev, ok := s.lastRate(); ok {
		s.metrics.RateDegraded()
		s.logger.Warn("Serving cached exchange rate", logging.Fields{
			"rate":       prev.Rate.String(),
			"fetched_at": prev.FetchedAt,
			"error":      res.Err.Error(),
		})
		return RateResult{ExchangeRate: prev, Degraded: true}, nil
	}

	return RateResult{}, fmt.Errorf("%w: %v", ErrRateUnavailable, res.Err)
}

// ConvertToLocal converts a USD amount to bolívares. It returns zero when no
// rate can be obtained.
func (s *RateService) ConvertToLocal(ctx context.Context, amountUSD decimal.Decimal) decimal.Decimal {
	r, err := s.GetRate(ctx)
	if err != nil {
		return decimal.Zero
	}
	return amountUSD.Mul(r.Rate)
}

// State reports where the cache is in its lifecycle.
func (s *RateService) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.fetching:
		return StateFetching
	case s.failed:
		return StateFetchFailed
	case s.current == nil:
		return StateUninitialized
	case s.now().Sub(s.current.FetchedAt) < s.ttl:
		return StateFresh
	default:
		return StateStale
	}
}

// Run refreshes the rate every refresh interval until ctx is cancelled. It
// fetches once on start unless the cache is already fresh.
func (s *RateService) Run(ctx context.Context) {
	s.logger.Info("Starting exchange rate refresher", logging.Fields{
		"interval": s.refreshInterval.String(),
	})

	if _, ok := s.freshRate(); !ok {
		s.backgroundRefresh(ctx)
	}

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Exchange rate refresher stopped")
			return
		case <-ticker.C:
			s.backgroundRefresh(ctx)
		}
	}
}

func (s *RateService) backgroundRefresh(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("Background exchange rate refresh failed", logging.Fields{"error": err.Error()})
	}
}

func (s *RateService) fetch(ctx context.Context) (*ExchangeRate, error) {
	s.setFetching(true)
	defer s.setFetching(false)

	if err := s.limiter.Wait(ctx); err != nil {
		s.markFailed()
		return nil, err
	}

	started := s.now()
	r, err := s.source.FetchRate(ctx)
	if err == nil {
		err = validateRate(r)
	}
	if err != nil {
		s.markFailed()
		s.metrics.RateFetched(metrics.OutcomeError)
		s.logger.Error("Exchange rate fetch failed", logging.Fields{
			"error":    err.Error(),
			"duration": s.now().Sub(started).String(),
		})
		return nil, err
	}

	fetched := *r
	fetched.FetchedAt = s.now()

	s.mu.Lock()
	s.current = &fetched
	s.failed = false
	s.mu.Unlock()

	s.metrics.RateFetched(metrics.OutcomeSuccess)
	s.metrics.SetExchangeRate(fetched.Rate)
	s.logger.Info("Exchange rate refreshed", logging.Fields{
		"rate":   fetched.Rate.String(),
		"source": fetched.Source,
	})

	if s.store != nil {
		if err := s.store.Save(ctx, &fetched); err != nil {
			s.logger.Warn("Failed to persist exchange rate", logging.Fields{"error": err.Error()})
		}
	}

	out := fetched
	return &out, nil
}

func (s *RateService) freshRate() (ExchangeRate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil || s.now().Sub(s.current.FetchedAt) >= s.ttl {
		return ExchangeRate{}, false
	}
	return *s.current, true
}

// throttledRate returns the last known rate when no fetch is in flight and
// the spacing limiter would hold a new fetch back.
func (s *RateService) throttledRate() (ExchangeRate, bool) {
	if s.limiter.Limit() == rate.Inf {
		return ExchangeRate{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil || s.fetching || s.limiter.Tokens() >= 1 {
		return ExchangeRate{}, false
	}
	return *s.current, true
}

func (s *RateService) lastRate() (ExchangeRate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return ExchangeRate{}, false
	}
	return *s.current, true
}

func (s *RateService) setFetching(v bool) {
	s.mu.Lock()
	s.fetching = v
	s.mu.Unlock()
}

func (s *RateService) markFailed() {
	s.mu.Lock()
	s.failed = true
	s.mu.Unlock()
}

func validateRate(r *ExchangeRate) error {
	if r == nil {
		return fmt.Errorf("%w: empty response", ErrInvalidRateData)
	}
	if !r.Rate.IsPositive() {
		return fmt.Errorf("%w: rate %s must be positive", ErrInvalidRateData, r.Rate)
	}
	return nil
}
