package rebalance

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// csvHolding is a row of a portfolio CSV file:
//
//	ticker,quantity,whole_units_only,price
//	VTI,12,true,231.40
//
// whole_units_only and price may be left empty.
type csvHolding struct {
	Ticker     string   `csv:"ticker"`
	Quantity   Quantity `csv:"quantity"`
	WholeUnits string   `csv:"whole_units_only,omitempty"`
	Price      string   `csv:"price,omitempty"`
}

// DecodePortfolioCSV reads a portfolio from CSV with a header line.
func DecodePortfolioCSV(r io.Reader) (*Portfolio, error) {
	var rows []csvHolding
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("%w: malformed portfolio CSV: %w", ErrInvalidInput, err)
	}

	holdings := make([]Holding, 0, len(rows))
	var errs []error
	for i, row := range rows {
		h := Holding{Ticker: row.Ticker, Quantity: row.Quantity}
		if s := strings.TrimSpace(row.WholeUnits); s != "" {
			whole, err := strconv.ParseBool(s)
			if err != nil {
				errs = append(errs, invalidf("line %d: whole_units_only %q is not a boolean", i+2, s))
				continue
			}
			h.WholeUnitsOnly = whole
		}
		if s := strings.TrimSpace(row.Price); s != "" {
			price, err := decimal.NewFromString(s)
			if err != nil {
				errs = append(errs, invalidf("line %d: price %q is not a number", i+2, s))
				continue
			}
			h.Price = decimal.NewNullDecimal(price)
		}
		holdings = append(holdings, h)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return NewPortfolio(holdings...)
}

// EncodePortfolioCSV writes p as CSV with a header line.
func EncodePortfolioCSV(w io.Writer, p *Portfolio) error {
	rows := make([]csvHolding, 0, p.Len())
	for h := range p.Holdings() {
		row := csvHolding{Ticker: h.Ticker, Quantity: h.Quantity}
		if h.WholeUnitsOnly {
			row.WholeUnits = "true"
		}
		if h.Price.Valid {
			row.Price = h.Price.Decimal.String()
		}
		rows = append(rows, row)
	}
	return gocsv.Marshal(rows, w)
}

// csvTarget is a row of a target allocation CSV file.
type csvTarget struct {
	Ticker  string  `csv:"ticker"`
	Percent float64 `csv:"percent"`
}

// DecodeAllocationCSV reads a target allocation from CSV with a header line:
//
//	ticker,percent
//	VTI,60
//	BND,40
func DecodeAllocationCSV(r io.Reader) (map[string]float64, error) {
	var rows []csvTarget
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("%w: malformed allocation CSV: %w", ErrInvalidInput, err)
	}
	alloc := make(map[string]float64, len(rows))
	var errs []error
	for i, row := range rows {
		t := strings.TrimSpace(row.Ticker)
		if _, dup := alloc[t]; dup {
			errs = append(errs, invalidf("line %d: duplicate target for %s", i+2, t))
			continue
		}
		alloc[t] = row.Percent
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return alloc, nil
}

// csvTicker is a row of a watch list CSV file.
type csvTicker struct {
	Ticker string `csv:"ticker"`
}

// DecodeWatchList reads a list of tickers, either a JSON array of strings or
// a CSV file with a ticker column. Blank and repeated tickers are dropped.
func DecodeWatchList(r io.Reader) ([]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var tickers []string
	if trimmed := bytes.TrimSpace(content); len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &tickers); err != nil {
			return nil, fmt.Errorf("%w: malformed watch list: %w", ErrInvalidInput, err)
		}
	} else {
		var rows []csvTicker
		if err := gocsv.UnmarshalBytes(content, &rows); err != nil {
			return nil, fmt.Errorf("%w: malformed watch list CSV: %w", ErrInvalidInput, err)
		}
		for _, row := range rows {
			tickers = append(tickers, row.Ticker)
		}
	}

	res := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if t = strings.TrimSpace(t); t != "" {
			res = append(res, t)
		}
	}
	return unique(res), nil
}
