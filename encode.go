package rebalance

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// This file contains the JSON codecs of portfolios, trade plans and results.
// Decoders are strict: unknown fields are format errors, they usually are typos.

// jholding is a holding as read from a portfolio file.
type jholding struct {
	Ticker         string              `json:"ticker"`
	Quantity       *Quantity           `json:"quantity"`
	WholeUnitsOnly bool                `json:"whole_units_only"`
	Price          decimal.NullDecimal `json:"price"`
}

// DecodePortfolio reads a portfolio JSON array.
func DecodePortfolio(r io.Reader) (*Portfolio, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var content []jholding
	if err := dec.Decode(&content); err != nil {
		return nil, fmt.Errorf("%w: malformed portfolio: %w", ErrInvalidInput, err)
	}

	holdings := make([]Holding, 0, len(content))
	var errs []error
	for i, jh := range content {
		if jh.Quantity == nil {
			errs = append(errs, invalidf("holding #%d (%s) has no quantity", i+1, jh.Ticker))
			continue
		}
		holdings = append(holdings, Holding{
			Ticker:         jh.Ticker,
			Quantity:       *jh.Quantity,
			WholeUnitsOnly: jh.WholeUnitsOnly,
			Price:          jh.Price,
		})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewPortfolio(holdings...)
}

// MarshalJSON writes a holding with a stable field order.
func (h Holding) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("ticker", h.Ticker)
	w.Append("quantity", h.Quantity)
	w.Append("whole_units_only", h.WholeUnitsOnly)
	if h.Price.Valid {
		w.Append("price", h.Price.Decimal)
	}
	return w.MarshalJSON()
}

// MarshalJSON writes the portfolio as an array of holdings.
func (p *Portfolio) MarshalJSON() ([]byte, error) {
	holdings := p.holdings
	if holdings == nil {
		holdings = []Holding{}
	}
	return json.Marshal(holdings)
}

// EncodePortfolio writes p as an indented JSON array.
func EncodePortfolio(w io.Writer, p *Portfolio) error {
	return encodeIndent(w, p)
}

// jplan is a trade plan as read from a file.
type jplan struct {
	AvailableFunds   *decimal.Decimal   `json:"available_funds"`
	TargetAllocation map[string]float64 `json:"target_allocation"`
	WholeUnits       map[string]bool    `json:"whole_units_only"`
	Currency         string             `json:"currency"`
}

// DecodeTradePlan reads and validates a trade plan JSON object.
// A missing available_funds means no new cash.
func DecodeTradePlan(r io.Reader) (*TradePlan, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var jp jplan
	if err := dec.Decode(&jp); err != nil {
		return nil, fmt.Errorf("%w: malformed trade plan: %w", ErrInvalidInput, err)
	}
	alloc, err := trimKeys("target allocation", jp.TargetAllocation)
	if err != nil {
		return nil, err
	}
	whole, err := trimKeys("whole units", jp.WholeUnits)
	if err != nil {
		return nil, err
	}
	tp := &TradePlan{
		TargetAllocation: alloc,
		WholeUnits:       whole,
		Currency:         strings.ToUpper(strings.TrimSpace(jp.Currency)),
	}
	if jp.AvailableFunds != nil {
		tp.AvailableFunds = *jp.AvailableFunds
	}
	if tp.TargetAllocation == nil {
		tp.TargetAllocation = make(map[string]float64)
	}
	if err := tp.Validate(); err != nil {
		return nil, err
	}
	return tp, nil
}

// trimKeys returns m with its ticker keys trimmed. Keys that collide once
// trimmed are an error, as in DecodeAllocationCSV. Nil stays nil.
func trimKeys[V any](what string, m map[string]V) (map[string]V, error) {
	if m == nil {
		return nil, nil
	}
	res := make(map[string]V, len(m))
	var errs []error
	for _, k := range slices.Sorted(maps.Keys(m)) {
		t := strings.TrimSpace(k)
		if _, dup := res[t]; dup {
			errs = append(errs, invalidf("%s: duplicate entry for %s", what, t))
			continue
		}
		res[t] = m[k]
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return res, nil
}

// EncodeTradePlan writes tp as an indented JSON object.
func EncodeTradePlan(w io.Writer, tp *TradePlan) error {
	return encodeIndent(w, tp)
}

// MarshalJSON writes the result: a summary, the trades and the projection.
func (r *Result) MarshalJSON() ([]byte, error) {
	type summary struct {
		ID              string          `json:"id"`
		Currency        string          `json:"currency"`
		CurrentValue    Money           `json:"current_value"`
		AvailableFunds  Money           `json:"available_funds"`
		TotalInvestable Money           `json:"total_investable"`
		Buys            Money           `json:"buys"`
		Sells           Money           `json:"sells"`
		Scale           decimal.Decimal `json:"scale"`
	}
	trades := r.Trades
	if trades == nil {
		trades = []Trade{}
	}

	var w jsonObjectWriter
	w.EmbedFrom(summary{
		ID:              r.ID.String(),
		Currency:        r.Currency,
		CurrentValue:    r.CurrentValue,
		AvailableFunds:  r.AvailableFunds,
		TotalInvestable: r.TotalInvestable,
		Buys:            r.Total(Buy),
		Sells:           r.Total(Sell),
		Scale:           r.Scale,
	})
	w.Append("trades", trades)
	if r.Projected != nil {
		projected := r.Projected.Holdings
		if projected == nil {
			projected = []ProjectedHolding{}
		}
		w.Append("projected", projected)
		w.Append("cash", r.Projected.Cash)
	}
	w.Optional("warnings", r.Warnings)
	return w.MarshalJSON()
}

// EncodeResult writes r as an indented JSON object.
func EncodeResult(w io.Writer, r *Result) error {
	return encodeIndent(w, r)
}

func encodeIndent(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(w)
	return err
}

// LoadPortfolio reads a portfolio file, JSON or CSV by extension.
func LoadPortfolio(filename string) (*Portfolio, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		p, err := DecodePortfolioCSV(f)
		if err != nil {
			return nil, fmt.Errorf("format error in %q: %w", filename, err)
		}
		return p, nil
	}
	p, err := DecodePortfolio(f)
	if err != nil {
		return nil, fmt.Errorf("format error in %q: %w", filename, err)
	}
	return p, nil
}

// LoadTradePlan reads a trade plan file.
func LoadTradePlan(filename string) (*TradePlan, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tp, err := DecodeTradePlan(f)
	if err != nil {
		return nil, fmt.Errorf("format error in %q: %w", filename, err)
	}
	return tp, nil
}

// SavePortfolio writes p into filename as JSON.
func SavePortfolio(filename string, p *Portfolio) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := EncodePortfolio(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
