package rebalance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodePortfolio(t *testing.T) {
	in := `[
		{"ticker": "VTI", "quantity": 12, "whole_units_only": true, "price": 231.4},
		{"ticker": " BTC ", "quantity": 0.5}
	]`
	p, err := DecodePortfolio(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodePortfolio() error = %v", err)
	}
	if diff := cmp.Diff([]string{"VTI", "BTC"}, p.Tickers()); diff != "" {
		t.Errorf("DecodePortfolio() tickers mismatch (-want +got):\n%s", diff)
	}
	vti, _ := p.Get("VTI")
	if !vti.WholeUnitsOnly || !vti.Quantity.Equal(Q(12)) {
		t.Errorf("DecodePortfolio() VTI = %+v, want 12 whole units", vti)
	}
	if price, ok := vti.KnownPrice(); !ok || !price.Equal(D("231.4")) {
		t.Errorf("DecodePortfolio() VTI price = %v, %v, want 231.4", price, ok)
	}
	btc, _ := p.Get("BTC")
	if _, ok := btc.KnownPrice(); ok || btc.WholeUnitsOnly {
		t.Errorf("DecodePortfolio() BTC = %+v, want fractional without price", btc)
	}
}

func TestDecodePortfolio_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not an array", `{"ticker": "VTI"}`},
		{"unknown field", `[{"ticker": "VTI", "quantity": 1, "qty": 2}]`},
		{"missing quantity", `[{"ticker": "VTI"}]`},
		{"negative quantity", `[{"ticker": "VTI", "quantity": -1}]`},
		{"zero price", `[{"ticker": "VTI", "quantity": 1, "price": 0}]`},
		{"empty ticker", `[{"ticker": "", "quantity": 1}]`},
		{"duplicate ticker", `[{"ticker": "VTI", "quantity": 1}, {"ticker": "VTI", "quantity": 2}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePortfolio(strings.NewReader(tt.in))
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("DecodePortfolio() error = %v, want %v", err, ErrInvalidInput)
			}
		})
	}
}

func TestEncodePortfolio(t *testing.T) {
	p := mustPortfolio(t,
		Holding{Ticker: "VTI", Quantity: Q(12), WholeUnitsOnly: true, Price: priced("VTI", 0, "231.4").Price},
		Holding{Ticker: "BTC", Quantity: Q(0.5)},
	)
	var buf bytes.Buffer
	if err := EncodePortfolio(&buf, p); err != nil {
		t.Fatalf("EncodePortfolio() error = %v", err)
	}
	want := `[
  {
    "ticker": "VTI",
    "quantity": 12,
    "whole_units_only": true,
    "price": 231.4
  },
  {
    "ticker": "BTC",
    "quantity": 0.5,
    "whole_units_only": false
  }
]
`
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("EncodePortfolio() mismatch (-want +got):\n%s", diff)
	}

	back, err := DecodePortfolio(&buf)
	if err != nil {
		t.Fatalf("DecodePortfolio() error = %v", err)
	}
	if back.Len() != 2 {
		t.Errorf("DecodePortfolio() read %d holdings, want 2", back.Len())
	}
}

func TestDecodeTradePlan(t *testing.T) {
	in := `{"available_funds": 1000, "target_allocation": {"VTI": 60, "BND": 40}, "currency": " eur"}`
	tp, err := DecodeTradePlan(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeTradePlan() error = %v", err)
	}
	if !tp.AvailableFunds.Equal(D("1000")) {
		t.Errorf("DecodeTradePlan() funds = %s, want 1000", tp.AvailableFunds)
	}
	if tp.Currency != "EUR" {
		t.Errorf("DecodeTradePlan() currency = %q, want %q", tp.Currency, "EUR")
	}
	if diff := cmp.Diff(map[string]float64{"VTI": 60, "BND": 40}, tp.TargetAllocation); diff != "" {
		t.Errorf("DecodeTradePlan() allocation mismatch (-want +got):\n%s", diff)
	}

	tp, err = DecodeTradePlan(strings.NewReader(`{"target_allocation": {" AAPL ": 100}, "whole_units_only": {"AAPL\t": true}}`))
	if err != nil {
		t.Fatalf("DecodeTradePlan() error = %v", err)
	}
	if diff := cmp.Diff(map[string]float64{"AAPL": 100}, tp.TargetAllocation); diff != "" {
		t.Errorf("DecodeTradePlan() allocation mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]bool{"AAPL": true}, tp.WholeUnits); diff != "" {
		t.Errorf("DecodeTradePlan() whole units mismatch (-want +got):\n%s", diff)
	}

	tp, err = DecodeTradePlan(strings.NewReader(`{"target_allocation": {}}`))
	if err != nil {
		t.Fatalf("DecodeTradePlan() error = %v", err)
	}
	if !tp.AvailableFunds.IsZero() || tp.currency() != DefaultCurrency {
		t.Errorf("DecodeTradePlan() = %+v, want no funds in %s", tp, DefaultCurrency)
	}
}

func TestDecodeTradePlan_Invalid(t *testing.T) {
	for _, in := range []string{
		`{"available_funds": -10, "target_allocation": {"VTI": 100}}`,
		`{"target_allocation": {"VTI": 101}}`,
		`{"target_allocation": {"VTI": 100}, "cash": 3}`,
		`{"target_allocation": {"AAPL": 50, "AAPL ": 50}}`,
		`{"target_allocation": {"AAPL": 100}, "whole_units_only": {"AAPL": true, " AAPL": false}}`,
		`{"target_allocation": {" ": 100}}`,
		`[]`,
	} {
		if _, err := DecodeTradePlan(strings.NewReader(in)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("DecodeTradePlan(%s) error = %v, want %v", in, err, ErrInvalidInput)
		}
	}
}

func TestResultJSON(t *testing.T) {
	p := mustPortfolio(t, priced("AAPL", 10, "100"))
	tp := &TradePlan{AvailableFunds: D("1000"), TargetAllocation: map[string]float64{"AAPL": 50, "MSFT": 50, "XYZ": 0}}
	r, err := Plan(context.Background(), p, tp, newQuotes(map[string]string{"MSFT": "200"}), DefaultOptions())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	var buf bytes.Buffer
	if err := EncodeResult(&buf, r); err != nil {
		t.Fatalf("EncodeResult() error = %v", err)
	}
	out := buf.String()

	var got struct {
		ID       string `json:"id"`
		Currency string `json:"currency"`
		Buys     json.Number
		Trades   []map[string]any `json:"trades"`
		Warnings []Warning        `json:"warnings"`
	}
	dec := json.NewDecoder(strings.NewReader(out))
	dec.UseNumber()
	if err := dec.Decode(&got); err != nil {
		t.Fatalf("EncodeResult() wrote invalid JSON: %v\n%s", err, out)
	}
	if got.ID != r.ID.String() || got.Currency != "USD" || got.Buys.String() != "1000" {
		t.Errorf("EncodeResult() summary = %+v", got)
	}
	if len(got.Trades) != 1 || got.Trades[0]["action"] != "BUY" || got.Trades[0]["ticker"] != "MSFT" {
		t.Errorf("EncodeResult() trades = %v, want a single MSFT buy", got.Trades)
	}
	if diff := cmp.Diff([]WarningKind{Skipped}, kinds(got.Warnings)); diff != "" {
		t.Errorf("EncodeResult() warnings mismatch (-want +got):\n%s", diff)
	}

	var last int
	for _, key := range []string{`"id"`, `"total_investable"`, `"trades"`, `"projected"`, `"cash"`, `"warnings"`} {
		i := strings.Index(out, key)
		if i < last {
			t.Errorf("EncodeResult() key %s out of order in:\n%s", key, out)
		}
		last = i
	}
}
