package rebalance

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is wrapped by every validation error: a malformed document,
// a negative quantity or fund, a percentage outside [0,100]. No plan is
// produced when it is returned.
var ErrInvalidInput = errors.New("invalid input")

// ErrPriceUnavailable is returned by price providers that cannot price a ticker.
var ErrPriceUnavailable = errors.New("price unavailable")

// invalidf returns an error wrapping ErrInvalidInput.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// WarningKind categorizes non-fatal issues of a planning run.
type WarningKind string

const (
	// PriceUnavailable: the provider could not price the ticker, a fallback price was used.
	PriceUnavailable WarningKind = "price_unavailable"
	// Skipped: the ticker could not be priced at all and is excluded from the plan.
	Skipped WarningKind = "skipped"
	// BudgetScaled: buys were scaled down to fit the available pool.
	BudgetScaled WarningKind = "budget_scaled"
	// EmptyPortfolio: nothing is held and no funds are available.
	EmptyPortfolio WarningKind = "empty_portfolio"
	// EmptyAllocation: target percentages sum to zero.
	EmptyAllocation WarningKind = "empty_allocation"
	// AllocationNormalized: target percentages were far from 100 and have been rescaled.
	AllocationNormalized WarningKind = "allocation_normalized"
)

// Warning is a structured non-fatal issue. Ticker is empty for run-wide warnings.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Ticker  string      `json:"ticker,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Ticker == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("%s %s: %s", w.Kind, w.Ticker, w.Message)
}

// warnings accumulates Warnings in order.
type warnings []Warning

func (ws *warnings) add(kind WarningKind, ticker, format string, args ...any) {
	*ws = append(*ws, Warning{Kind: kind, Ticker: ticker, Message: fmt.Sprintf(format, args...)})
}
