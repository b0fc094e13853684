package rebalance

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// D parses a decimal constant.
func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// priced returns a holding carrying a known price.
func priced(ticker string, qty float64, price string) Holding {
	return Holding{Ticker: ticker, Quantity: Q(qty), Price: decimal.NewNullDecimal(D(price))}
}

func mustPortfolio(t *testing.T, holdings ...Holding) *Portfolio {
	t.Helper()
	p, err := NewPortfolio(holdings...)
	if err != nil {
		t.Fatalf("NewPortfolio() error = %v", err)
	}
	return p
}

// quotes is a PriceProvider serving fixed prices and counting lookups.
// Tickers not in the map are unavailable.
type quotes struct {
	mu     sync.Mutex
	prices map[string]string
	calls  map[string]int
}

func newQuotes(prices map[string]string) *quotes {
	return &quotes{prices: prices, calls: make(map[string]int)}
}

func (q *quotes) Price(_ context.Context, ticker string) (decimal.Decimal, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls[ticker]++
	p, ok := q.prices[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: unknown ticker %s", ErrPriceUnavailable, ticker)
	}
	return D(p), nil
}

// batchQuotes is a BatchPriceProvider counting batch requests.
type batchQuotes struct {
	*quotes
	batches [][]string
}

func (b *batchQuotes) Prices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	b.batches = append(b.batches, tickers)
	res := make(map[string]decimal.Decimal)
	for _, t := range tickers {
		if p, ok := b.prices[t]; ok {
			res[t] = D(p)
		}
	}
	return res, nil
}

// tradeLines summarizes trades for comparison.
func tradeLines(trades []Trade) []string {
	var lines []string
	for _, t := range trades {
		line := fmt.Sprintf("%s %s %s @%s", t.Action, t.Ticker, t.Quantity, t.Price.Decimal())
		if t.Estimated {
			line += " (estimated)"
		}
		lines = append(lines, line)
	}
	return lines
}

// kinds returns the kind of each warning.
func kinds(ws []Warning) []WarningKind {
	var res []WarningKind
	for _, w := range ws {
		res = append(res, w.Kind)
	}
	return res
}
