package rebalance

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/etnz/rebalance/logger"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=prices.go -destination=mocks/mock_prices.go -package=mocks

// PriceProvider returns the current price of a ticker, or an error wrapping
// ErrPriceUnavailable when the ticker cannot be priced.
type PriceProvider interface {
	Price(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// BatchPriceProvider can price many tickers in a single request.
// Tickers missing from the returned map are unavailable.
type BatchPriceProvider interface {
	PriceProvider
	Prices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
}

// PriceFunc adapts a function to the PriceProvider interface.
type PriceFunc func(ctx context.Context, ticker string) (decimal.Decimal, error)

func (f PriceFunc) Price(ctx context.Context, ticker string) (decimal.Decimal, error) {
	return f(ctx, ticker)
}

// PriceSource tells where a price comes from.
type PriceSource string

const (
	FromPortfolio   PriceSource = "portfolio"
	FromProvider    PriceSource = "provider"
	FromPlaceholder PriceSource = "placeholder"
)

// Price is a resolved price.
type Price struct {
	Value  Money
	Source PriceSource
}

// Estimated is true for placeholder prices.
func (p Price) Estimated() bool { return p.Source == FromPlaceholder }

// PriceMap holds resolved prices by ticker.
type PriceMap map[string]Price

// PlaceholderFunc returns a stand-in price for a ticker that could not be
// priced. Returning false disallows the placeholder for that ticker.
type PlaceholderFunc func(ticker string) (decimal.Decimal, bool)

// FixedPlaceholder returns the same placeholder price for every ticker.
func FixedPlaceholder(price decimal.Decimal) PlaceholderFunc {
	return func(string) (decimal.Decimal, bool) { return price, price.IsPositive() }
}

const defaultLookupTimeout = 10 * time.Second

// PricingOptions control price resolution.
type PricingOptions struct {
	// Refresh looks up every ticker, even those carrying a price. The carried
	// price becomes the fallback.
	Refresh bool
	// LookupTimeout bounds each provider call. Zero means no timeout.
	LookupTimeout time.Duration
	// Placeholder is used when a ticker cannot be priced. Nil skips the ticker instead.
	Placeholder PlaceholderFunc
}

// ResolvePrices prices every ticker once. Known prices are used as is unless
// opts.Refresh is set. The provider is called at most once per distinct ticker,
// in a single request if it is a BatchPriceProvider. Failures degrade to the
// known price, then to the placeholder, else the ticker is left out of the
// returned map and reported as Skipped.
func ResolvePrices(ctx context.Context, provider PriceProvider, currency string, tickers []string, known map[string]decimal.Decimal, opts PricingOptions) (PriceMap, []Warning) {
	log := logger.FromContext(ctx)
	var ws warnings

	tickers = unique(tickers)
	prices := make(PriceMap, len(tickers))

	var lookups []string
	for _, t := range tickers {
		if p, ok := known[t]; ok && !opts.Refresh {
			prices[t] = Price{Value: M(p, currency), Source: FromPortfolio}
			continue
		}
		lookups = append(lookups, t)
	}

	fetched, failures := lookup(ctx, provider, lookups, opts.LookupTimeout)
	for _, t := range lookups {
		if p, ok := fetched[t]; ok {
			prices[t] = Price{Value: M(p, currency), Source: FromProvider}
			continue
		}
		cause := failures[t]
		log.Warnw("price lookup failed", "ticker", t, "error", cause)

		if p, ok := known[t]; ok {
			prices[t] = Price{Value: M(p, currency), Source: FromPortfolio}
			ws.add(PriceUnavailable, t, "%v, using the portfolio price %s", cause, prices[t].Value)
			continue
		}
		if opts.Placeholder != nil {
			if p, ok := opts.Placeholder(t); ok && p.IsPositive() {
				prices[t] = Price{Value: M(p, currency), Source: FromPlaceholder}
				ws.add(PriceUnavailable, t, "%v, using the estimated price %s", cause, prices[t].Value)
				continue
			}
		}
		ws.add(Skipped, t, "%v, no fallback price allowed", cause)
	}
	return prices, ws
}

// lookup calls the provider once per ticker and returns positive prices and
// the reason of each failure.
func lookup(ctx context.Context, provider PriceProvider, tickers []string, timeout time.Duration) (map[string]decimal.Decimal, map[string]error) {
	prices := make(map[string]decimal.Decimal, len(tickers))
	failures := make(map[string]error)
	if len(tickers) == 0 {
		return prices, failures
	}
	if provider == nil {
		for _, t := range tickers {
			failures[t] = fmt.Errorf("%w: no price provider", ErrPriceUnavailable)
		}
		return prices, failures
	}

	accept := func(t string, p decimal.Decimal, err error) {
		switch {
		case err != nil:
			failures[t] = err
		case !p.IsPositive():
			failures[t] = fmt.Errorf("%w: invalid price %s", ErrPriceUnavailable, p)
		default:
			prices[t] = p
		}
	}

	if batch, ok := provider.(BatchPriceProvider); ok && len(tickers) > 1 {
		cctx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		res, err := batch.Prices(cctx, tickers)
		for _, t := range tickers {
			p, found := res[t]
			switch {
			case found:
				accept(t, p, nil)
			case err != nil:
				accept(t, p, err)
			default:
				accept(t, p, fmt.Errorf("%w: not in batch response", ErrPriceUnavailable))
			}
		}
		return prices, failures
	}

	for _, t := range tickers {
		cctx, cancel := withTimeout(ctx, timeout)
		p, err := provider.Price(cctx, t)
		cancel()
		accept(t, p, err)
	}
	return prices, failures
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// unique returns tickers without duplicates, first occurrence order.
func unique(tickers []string) []string {
	seen := make(map[string]bool, len(tickers))
	res := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if seen[t] {
			continue
		}
		seen[t] = true
		res = append(res, t)
	}
	return res
}

// Memo wraps a provider so that each ticker is looked up once for the
// provider's lifetime, successes and failures alike. Timeouts and
// cancellations are not remembered, the next call tries again. The result is a
// BatchPriceProvider only if provider is one. It is safe for concurrent use.
func Memo(provider PriceProvider) PriceProvider {
	m := &memo{provider: provider, cache: make(map[string]memoEntry)}
	if batch, ok := provider.(BatchPriceProvider); ok {
		return &batchMemo{memo: m, batch: batch}
	}
	return m
}

type memoEntry struct {
	price decimal.Decimal
	err   error
}

type memo struct {
	provider PriceProvider
	mu       sync.Mutex
	cache    map[string]memoEntry
}

func (m *memo) Price(ctx context.Context, ticker string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.cache[ticker]; ok {
		return e.price, e.err
	}
	p, err := m.provider.Price(ctx, ticker)
	if !expired(err) {
		m.cache[ticker] = memoEntry{price: p, err: err}
	}
	return p, err
}

// expired reports whether err comes from a canceled or timed out context:
// the answer belongs to that call, not to the ticker.
func expired(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

type batchMemo struct {
	*memo
	batch BatchPriceProvider
}

// Prices only asks the wrapped provider for tickers never seen before.
// A failed batch is not cached, it can be retried.
func (m *batchMemo) Prices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var missing []string
	for _, t := range tickers {
		if _, ok := m.cache[t]; !ok && !slices.Contains(missing, t) {
			missing = append(missing, t)
		}
	}
	var err error
	if len(missing) > 0 {
		var res map[string]decimal.Decimal
		res, err = m.batch.Prices(ctx, missing)
		for _, t := range missing {
			if p, found := res[t]; found {
				m.cache[t] = memoEntry{price: p}
			} else if err == nil {
				m.cache[t] = memoEntry{err: fmt.Errorf("%w: not in batch response", ErrPriceUnavailable)}
			}
		}
	}

	res := make(map[string]decimal.Decimal, len(tickers))
	for _, t := range tickers {
		if e, ok := m.cache[t]; ok && e.err == nil {
			res[t] = e.price
		}
	}
	return res, err
}
