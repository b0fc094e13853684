package rebalance

import (
	"context"
	"math"

	"github.com/etnz/rebalance/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultQuantityDigits = 8
	defaultMinTradeAmount = 0.01
)

// Options tune a planning run. The zero value is valid: no dust threshold,
// fractional quantities kept to 8 decimals, no placeholder price.
type Options struct {
	PricingOptions
	// MinTradeAmount ignores tickers whose value gap is smaller than it.
	MinTradeAmount decimal.Decimal
	// QuantityDigits is the number of decimals kept on fractional quantities.
	// Quantities are truncated, so amounts never round up.
	QuantityDigits int32
}

// DefaultOptions returns the options used by the rbl command.
func DefaultOptions() Options {
	return Options{
		PricingOptions: PricingOptions{LookupTimeout: defaultLookupTimeout},
		MinTradeAmount: decimal.NewFromFloat(defaultMinTradeAmount),
		QuantityDigits: defaultQuantityDigits,
	}
}

func (o Options) digits() int32 {
	if o.QuantityDigits <= 0 {
		return defaultQuantityDigits
	}
	return o.QuantityDigits
}

// Result is the outcome of a planning run.
type Result struct {
	ID       uuid.UUID
	Currency string
	// CurrentValue is the value of the priced holdings before trading.
	CurrentValue   Money
	AvailableFunds Money
	// TotalInvestable is CurrentValue + AvailableFunds.
	TotalInvestable Money
	Trades          []Trade
	Projected       *Projection
	Prices          PriceMap
	// Scale is the ratio applied to buys to fit the budget, 1 when they fit.
	Scale    decimal.Decimal
	Warnings []Warning
}

// Total returns the sum of trade amounts for the given action.
func (r *Result) Total(action Action) Money {
	total := M(0, r.Currency)
	for _, t := range r.Trades {
		if t.Action == action {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// Skipped returns the tickers excluded from the plan for lack of a price.
func (r *Result) Skipped() []string {
	var tickers []string
	for _, w := range r.Warnings {
		if w.Kind == Skipped {
			tickers = append(tickers, w.Ticker)
		}
	}
	return tickers
}

// candidate is the trade considered for a ticker before the budget pass.
type candidate struct {
	ticker string
	action Action
	whole  bool
	qty    Quantity
	price  Price
}

// Plan computes the trades that move p toward the target allocation of tp in
// a single pass. Prices are resolved through provider, at most once per
// ticker. Only invalid input is an error; pricing failures, budget scaling and
// empty inputs are reported as warnings of a best-effort result.
func Plan(ctx context.Context, p *Portfolio, tp *TradePlan, provider PriceProvider, opts Options) (*Result, error) {
	if p == nil {
		p = new(Portfolio)
	}
	if tp == nil {
		return nil, invalidf("missing trade plan")
	}
	if err := tp.Validate(); err != nil {
		return nil, err
	}

	currency := tp.currency()
	r := &Result{
		ID:             uuid.New(),
		Currency:       currency,
		AvailableFunds: M(tp.AvailableFunds, currency),
		Scale:          decimal.NewFromInt(1),
	}
	log := logger.FromContext(ctx).With("run", r.ID.String())
	ctx = logger.WithContext(ctx, log)

	var ws warnings
	tickers := unique(append(p.Tickers(), tp.Tickers()...))
	prices, pws := ResolvePrices(ctx, provider, currency, tickers, p.knownPrices(), opts.PricingOptions)
	r.Prices = prices
	ws = append(ws, pws...)

	r.CurrentValue = p.Value(prices, currency)
	r.TotalInvestable = r.CurrentValue.Add(r.AvailableFunds)

	weights := tp.Weights()
	switch {
	case !r.TotalInvestable.IsPositive():
		ws.add(EmptyPortfolio, "", "nothing to invest: no priced holding and no available funds")
		weights = nil
	case weights == nil:
		ws.add(EmptyAllocation, "", "target allocation sums to 0%%, no target can be computed")
	default:
		if total := tp.Total(); math.Abs(float64(total)-100) > allocationTolerance {
			ws.add(AllocationNormalized, "", "target allocation sums to %s, weights were normalized", total)
		}
	}

	var candidates []candidate
	if weights != nil {
		candidates = r.candidates(p, tp, tickers, opts)
	}
	r.Trades = r.budget(candidates, opts, &ws)
	r.Projected = project(p, r, tickers, weights, tp.WholeUnits)
	r.Warnings = ws

	log.Infow("plan computed",
		"trades", len(r.Trades),
		"investable", r.TotalInvestable.String(),
		"buys", r.Total(Buy).String(),
		"sells", r.Total(Sell).String(),
		"warnings", len(r.Warnings))
	return r, nil
}

// candidates returns, in ticker order, the raw quantity to trade for each
// priced ticker whose value is off target.
func (r *Result) candidates(p *Portfolio, tp *TradePlan, tickers []string, opts Options) []candidate {
	minAmount := M(opts.MinTradeAmount, r.Currency)
	var res []candidate
	for _, t := range tickers {
		price, ok := r.Prices[t]
		if !ok {
			continue // skipped
		}
		h, held := p.Get(t)
		whole := tp.WholeUnits[t]
		if held {
			whole = h.WholeUnitsOnly
		}

		target := tp.target(r.TotalInvestable, t)
		current := price.Value.Mul(h.Quantity)
		delta := target.Sub(current)
		if delta.IsZero() || delta.Abs().LessThan(minAmount) {
			continue
		}

		c := candidate{ticker: t, whole: whole, price: price, qty: delta.Abs().DivPrice(price.Value)}
		if delta.IsPositive() {
			c.action = Buy
		} else {
			c.action = Sell
			c.qty = c.qty.Min(h.Quantity)
		}
		res = append(res, c)
	}
	return res
}

// budget rounds candidates into trades. Sells are rounded first: their
// proceeds plus the available funds form the pool for buys. Only when the
// rounded buys exceed the pool are all buys scaled by the same ratio before
// rounding.
func (r *Result) budget(candidates []candidate, opts Options, ws *warnings) []Trade {
	round := func(c candidate, q Quantity) Quantity {
		if c.whole {
			return q.Floor()
		}
		return q.Truncate(opts.digits())
	}

	pool := r.AvailableFunds
	naive := M(0, r.Currency)   // raw buy quantities
	rounded := M(0, r.Currency) // what would actually be spent
	for i, c := range candidates {
		if c.action == Sell {
			candidates[i].qty = round(c, c.qty)
			pool = pool.Add(c.price.Value.Mul(candidates[i].qty))
			continue
		}
		naive = naive.Add(c.price.Value.Mul(c.qty))
		rounded = rounded.Add(c.price.Value.Mul(round(c, c.qty)))
	}

	if rounded.GreaterThan(pool) {
		if pool.IsPositive() {
			// from the raw total, and truncated, so that scaled buys never
			// round above the pool.
			r.Scale, _ = pool.Decimal().QuoRem(naive.Decimal(), divisionPrecision)
		} else {
			r.Scale = decimal.Zero
		}
		ws.add(BudgetScaled, "", "buys worth %s exceed the %s available, scaled down to %s%%",
			rounded, pool, r.Scale.Mul(decimal.NewFromInt(100)).StringFixed(2))
	}

	var trades []Trade
	for _, c := range candidates {
		q := c.qty
		if c.action == Buy {
			q = round(c, q.Scale(r.Scale))
		}
		if q.IsZero() {
			continue
		}
		trades = append(trades, Trade{
			Ticker:    c.ticker,
			Action:    c.action,
			Quantity:  q,
			Price:     c.price.Value,
			Amount:    c.price.Value.Mul(q),
			Estimated: c.price.Estimated(),
		})
	}
	return trades
}

// knownPrices returns the prices carried by holdings.
func (p *Portfolio) knownPrices() map[string]decimal.Decimal {
	known := make(map[string]decimal.Decimal, len(p.holdings))
	for _, h := range p.holdings {
		if price, ok := h.KnownPrice(); ok {
			known[h.Ticker] = price
		}
	}
	return known
}
