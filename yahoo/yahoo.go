// Package yahoo prices tickers with the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/logger"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"
)

// lookback covers week-ends and holidays when asking for the last daily close.
const lookback = 7 * 24 * time.Hour

// Provider is a rebalance.PriceProvider returning the last daily close.
type Provider struct {
	// fetch returns the closes of symbol between start and end, oldest first.
	fetch func(symbol string, start, end time.Time) ([]decimal.Decimal, error)
	now   func() time.Time
}

// New returns a provider querying Yahoo Finance.
func New() *Provider {
	return &Provider{fetch: closes, now: time.Now}
}

// Price implements rebalance.PriceProvider. The chart API has no context
// support, so a cancelled ctx abandons the request rather than stopping it.
func (p *Provider) Price(ctx context.Context, ticker string) (decimal.Decimal, error) {
	type result struct {
		closes []decimal.Decimal
		err    error
	}
	end := p.now()
	start := end.Add(-lookback)

	done := make(chan result, 1)
	go func() {
		c, err := p.fetch(ticker, start, end)
		done <- result{c, err}
	}()

	select {
	case <-ctx.Done():
		return decimal.Zero, fmt.Errorf("yahoo quote of %s: %w", ticker, ctx.Err())
	case r := <-done:
		if r.err != nil {
			logger.FromContext(ctx).Debugw("yahoo chart failed", "ticker", ticker, "error", r.err)
			return decimal.Zero, fmt.Errorf("%w: yahoo quote of %s: %v", rebalance.ErrPriceUnavailable, ticker, r.err)
		}
		for i := len(r.closes) - 1; i >= 0; i-- {
			if r.closes[i].IsPositive() {
				return r.closes[i], nil
			}
		}
		return decimal.Zero, fmt.Errorf("%w: yahoo has no recent close for %s", rebalance.ErrPriceUnavailable, ticker)
	}
}

// closes iterates the daily chart of symbol.
func closes(symbol string, start, end time.Time) ([]decimal.Decimal, error) {
	params := &chart.Params{
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Symbol:   symbol,
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	var res []decimal.Decimal
	for iter.Next() {
		res = append(res, iter.Bar().Close)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get prices for %s: %w", symbol, err)
	}
	return res, nil
}
