package rebalance

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// ProjectedHolding is a holding after all trades, with its valuation.
type ProjectedHolding struct {
	Holding
	// Priced is false for holdings skipped for lack of a price: they keep
	// their quantity but have no value.
	Priced bool
	Value  Money
	Weight Percent
	Target Percent
}

// Drift is how far the holding ends from its target.
func (h ProjectedHolding) Drift() Percent { return h.Weight - h.Target }

func (h ProjectedHolding) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("ticker", h.Ticker)
	w.Append("quantity", h.Quantity)
	w.Optional("whole_units_only", h.WholeUnitsOnly)
	if h.Priced {
		w.Append("price", h.Price.Decimal)
		w.Append("value", h.Value)
		w.Append("weight", decimal.NewFromFloat(float64(h.Weight)).Round(4))
		w.Append("target", decimal.NewFromFloat(float64(h.Target)).Round(4))
	}
	return w.MarshalJSON()
}

// Projection is the portfolio resulting from applying a plan's trades.
type Projection struct {
	Holdings []ProjectedHolding
	// Cash is what remains of the available funds and sell proceeds.
	Cash Money
	// Value is the value of priced holdings plus Cash.
	Value Money
	// MaxDrift and MeanDrift summarize the absolute drift of every planned
	// ticker, percentage points.
	MaxDrift  Percent
	MeanDrift Percent
}

// Portfolio returns the projected holdings as a portfolio, ready to be saved
// and planned again.
func (p *Projection) Portfolio() *Portfolio {
	res := new(Portfolio)
	for _, h := range p.Holdings {
		// projected holdings come from a valid portfolio and trades, Add cannot fail.
		_ = res.Add(h.Holding)
	}
	return res
}

// project applies r.Trades to a copy of p.
// New tickers take their whole units flag from wholeUnits.
func project(p *Portfolio, r *Result, tickers []string, weights map[string]decimal.Decimal, wholeUnits map[string]bool) *Projection {
	after := p.clone()
	for _, t := range r.Trades {
		i, held := after.index[t.Ticker]
		if !held {
			after.index[t.Ticker] = len(after.holdings)
			after.holdings = append(after.holdings, Holding{Ticker: t.Ticker, WholeUnitsOnly: wholeUnits[t.Ticker]})
			i = after.index[t.Ticker]
		}
		after.holdings[i].Quantity = after.holdings[i].Quantity.Add(t.delta())
	}

	proj := &Projection{Cash: r.AvailableFunds.Add(r.Total(Sell)).Sub(r.Total(Buy))}
	proj.Value = proj.Cash
	for _, h := range after.holdings {
		if price, ok := r.Prices[h.Ticker]; ok {
			proj.Value = proj.Value.Add(price.Value.Mul(h.Quantity))
		}
	}

	for _, h := range after.holdings {
		if h.Quantity.IsZero() {
			continue
		}
		ph := ProjectedHolding{Holding: h, Value: M(0, r.Currency)}
		if price, ok := r.Prices[h.Ticker]; ok {
			ph.Priced = true
			ph.Value = price.Value.Mul(h.Quantity)
			if !price.Estimated() {
				ph.Price = decimal.NewNullDecimal(price.Value.Decimal())
			}
			ph.Weight = share(ph.Value, proj.Value)
			ph.Target = Percent(weights[h.Ticker].Mul(decimal.NewFromInt(100)).InexactFloat64())
		}
		proj.Holdings = append(proj.Holdings, ph)
	}

	// drift covers targets that ended with no holding too.
	var drifts []float64
	for _, t := range tickers {
		price, ok := r.Prices[t]
		if !ok || weights == nil {
			continue
		}
		var weight Percent
		if i, held := after.index[t]; held {
			weight = share(price.Value.Mul(after.holdings[i].Quantity), proj.Value)
		}
		target := Percent(weights[t].Mul(decimal.NewFromInt(100)).InexactFloat64())
		drifts = append(drifts, math.Abs(float64(weight-target)))
	}
	if m, err := stats.Max(drifts); err == nil {
		proj.MaxDrift = Percent(m)
	}
	if mean, err := stats.Mean(drifts); err == nil {
		proj.MeanDrift = Percent(mean)
	}
	return proj
}

// share returns v as a percentage of total, 0 when total is not positive.
func share(v, total Money) Percent {
	if !total.IsPositive() {
		return 0
	}
	return Percent(v.Ratio(total).Mul(decimal.NewFromInt(100)).InexactFloat64())
}
