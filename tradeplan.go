package rebalance

import (
	"errors"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// allocationTolerance is how far from 100 the target percentages may sum
// before the normalization is reported.
const allocationTolerance = 0.5

// TradePlan is the request: the cash to invest and the target allocation.
type TradePlan struct {
	AvailableFunds decimal.Decimal `json:"available_funds"`
	// TargetAllocation maps tickers to percentages in [0,100]. They are
	// relative weights and need not sum to 100.
	TargetAllocation map[string]float64 `json:"target_allocation"`
	// WholeUnits flags tickers that are not held yet but only trade in whole units.
	WholeUnits map[string]bool `json:"whole_units_only,omitempty"`
	// Currency of funds and prices, DefaultCurrency when empty.
	Currency string `json:"currency,omitempty"`
}

// currency returns the plan's currency.
func (tp *TradePlan) currency() string {
	if tp.Currency == "" {
		return DefaultCurrency
	}
	return tp.Currency
}

// Validate checks funds and percentages. All errors are returned joined.
func (tp *TradePlan) Validate() error {
	var errs []error
	if tp.AvailableFunds.IsNegative() {
		errs = append(errs, invalidf("available funds %s are negative", tp.AvailableFunds))
	}
	for _, ticker := range tp.Tickers() {
		pct := tp.TargetAllocation[ticker]
		switch trimmed := strings.TrimSpace(ticker); {
		case trimmed == "":
			errs = append(errs, invalidf("target allocation with an empty ticker"))
		case trimmed != ticker:
			errs = append(errs, invalidf("target allocation ticker %q has surrounding spaces", ticker))
		}
		if pct < 0 || pct > 100 {
			errs = append(errs, invalidf("target allocation for %s is %v%%, outside [0,100]", ticker, pct))
		}
	}
	return errors.Join(errs...)
}

// Tickers returns the targeted tickers, sorted.
func (tp *TradePlan) Tickers() []string {
	tickers := make([]string, 0, len(tp.TargetAllocation))
	for t := range tp.TargetAllocation {
		tickers = append(tickers, t)
	}
	slices.Sort(tickers)
	return tickers
}

// Total returns the sum of target percentages.
func (tp *TradePlan) Total() Percent {
	return Percent(tp.sum().InexactFloat64())
}

func (tp *TradePlan) sum() decimal.Decimal {
	var sum decimal.Decimal
	for _, t := range tp.Tickers() {
		sum = sum.Add(decimal.NewFromFloat(tp.TargetAllocation[t]))
	}
	return sum
}

// Weights returns the target allocation normalized by its sum. Weights are
// truncated, they never sum above 1.
// It returns nil if percentages sum to zero.
func (tp *TradePlan) Weights() map[string]decimal.Decimal {
	sum := tp.sum()
	if sum.IsZero() {
		return nil
	}
	weights := make(map[string]decimal.Decimal, len(tp.TargetAllocation))
	for t, pct := range tp.TargetAllocation {
		weights[t], _ = decimal.NewFromFloat(pct).QuoRem(sum, divisionPrecision)
	}
	return weights
}

// target returns the ticker's share of total in a single truncated division,
// so that targets never sum above total.
func (tp *TradePlan) target(total Money, ticker string) Money {
	sum := tp.sum()
	if sum.IsZero() {
		return M(0, total.Currency())
	}
	v, _ := total.Decimal().Mul(decimal.NewFromFloat(tp.TargetAllocation[ticker])).QuoRem(sum, divisionPrecision)
	return M(v, total.Currency())
}
