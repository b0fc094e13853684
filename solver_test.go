package rebalance

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// checkBudget asserts that buys are paid by the funds and the sells.
func checkBudget(t *testing.T, r *Result) {
	t.Helper()
	if pool := r.AvailableFunds.Add(r.Total(Sell)); r.Total(Buy).GreaterThan(pool) {
		t.Errorf("buys %s exceed funds and sells %s", r.Total(Buy), pool)
	}
	if r.Projected != nil && r.Projected.Cash.IsNegative() {
		t.Errorf("projected cash %s is negative", r.Projected.Cash)
	}
}

// equal returns n tickers T0, T1... all with the same weight.
func equal(n int, weight float64) map[string]float64 {
	res := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		res[fmt.Sprintf("T%d", i)] = weight
	}
	return res
}

// whole flags the n tickers of equal as whole units only.
func whole(n int) map[string]bool {
	res := make(map[string]bool, n)
	for t := range equal(n, 0) {
		res[t] = true
	}
	return res
}

// flat quotes the n tickers of equal at the same price.
func flat(n int, price string) map[string]string {
	res := make(map[string]string, n)
	for t := range equal(n, 0) {
		res[t] = price
	}
	return res
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name      string
		holdings  []Holding
		plan      TradePlan
		quotes    map[string]string
		opts      func(*Options)
		want      []string
		warnings  []WarningKind
		wantCash  string
		wantScale string
	}{
		{
			name:     "new ticker with fresh funds",
			holdings: []Holding{priced("AAPL", 10, "100")},
			plan:     TradePlan{AvailableFunds: D("1000"), TargetAllocation: map[string]float64{"AAPL": 50, "MSFT": 50}},
			quotes:   map[string]string{"MSFT": "200"},
			want:     []string{"BUY MSFT 5 @200"},
			wantCash: "0",
		},
		{
			name:     "rebalance without funds",
			holdings: []Holding{priced("A", 70, "10"), priced("B", 30, "10")},
			plan:     TradePlan{TargetAllocation: map[string]float64{"A": 50, "B": 50}},
			want:     []string{"SELL A 20 @10", "BUY B 20 @10"},
			wantCash: "0",
		},
		{
			name:     "sell everything not targeted",
			holdings: []Holding{priced("A", 5, "10")},
			plan:     TradePlan{TargetAllocation: map[string]float64{"B": 100}},
			quotes:   map[string]string{"B": "10"},
			want:     []string{"SELL A 5 @10", "BUY B 5 @10"},
			wantCash: "0",
		},
		{
			name:     "whole units are floored",
			plan:     TradePlan{AvailableFunds: D("100"), TargetAllocation: map[string]float64{"A": 100}, WholeUnits: map[string]bool{"A": true}},
			quotes:   map[string]string{"A": "30"},
			want:     []string{"BUY A 3 @30"},
			wantCash: "10",
		},
		{
			name: "buys scaled to the sell proceeds",
			holdings: []Holding{
				{Ticker: "A", Quantity: Q(3), WholeUnitsOnly: true, Price: priced("A", 0, "10").Price},
			},
			plan:      TradePlan{TargetAllocation: map[string]float64{"A": 50, "B": 50}},
			quotes:    map[string]string{"B": "10"},
			want:      []string{"SELL A 1 @10", "BUY B 0.99999999 @10"},
			warnings:  []WarningKind{BudgetScaled},
			wantCash:  "0.0000001",
			wantScale: "0.666666666666666666",
		},
		{
			name:     "dust is ignored",
			holdings: []Holding{priced("A", 1, "10")},
			plan:     TradePlan{AvailableFunds: D("0.005"), TargetAllocation: map[string]float64{"A": 100}},
			wantCash: "0.005",
		},
		{
			name:     "relative weights are normalized",
			plan:     TradePlan{AvailableFunds: D("100"), TargetAllocation: map[string]float64{"A": 10, "B": 10}},
			quotes:   map[string]string{"A": "10", "B": "20"},
			want:     []string{"BUY A 5 @10", "BUY B 2.5 @20"},
			warnings: []WarningKind{AllocationNormalized},
			wantCash: "0",
		},
		{
			name:     "three equal whole unit targets",
			plan:     TradePlan{AvailableFunds: D("300"), TargetAllocation: equal(3, 1), WholeUnits: whole(3)},
			quotes:   flat(3, "10"),
			want:     []string{"BUY T0 10 @10", "BUY T1 10 @10", "BUY T2 10 @10"},
			warnings: []WarningKind{AllocationNormalized},
			wantCash: "0",
		},
		{
			name:      "six equal whole unit targets",
			plan:      TradePlan{AvailableFunds: D("600"), TargetAllocation: equal(6, 1), WholeUnits: whole(6)},
			quotes:    flat(6, "10"),
			want:      []string{"BUY T0 10 @10", "BUY T1 10 @10", "BUY T2 10 @10", "BUY T3 10 @10", "BUY T4 10 @10", "BUY T5 10 @10"},
			warnings:  []WarningKind{AllocationNormalized},
			wantCash:  "0",
			wantScale: "1",
		},
		{
			name: "six whole unit holdings on target",
			holdings: []Holding{
				{Ticker: "T0", Quantity: Q(10), WholeUnitsOnly: true, Price: decimal.NewNullDecimal(D("10"))},
				{Ticker: "T1", Quantity: Q(10), WholeUnitsOnly: true, Price: decimal.NewNullDecimal(D("10"))},
				{Ticker: "T2", Quantity: Q(10), WholeUnitsOnly: true, Price: decimal.NewNullDecimal(D("10"))},
				{Ticker: "T3", Quantity: Q(10), WholeUnitsOnly: true, Price: decimal.NewNullDecimal(D("10"))},
				{Ticker: "T4", Quantity: Q(10), WholeUnitsOnly: true, Price: decimal.NewNullDecimal(D("10"))},
				{Ticker: "T5", Quantity: Q(10), WholeUnitsOnly: true, Price: decimal.NewNullDecimal(D("10"))},
			},
			plan:      TradePlan{TargetAllocation: equal(6, 1)},
			opts:      func(o *Options) { *o = Options{} },
			warnings:  []WarningKind{AllocationNormalized},
			wantCash:  "0",
			wantScale: "1",
		},
		{
			name:     "unpriced target is skipped and its share kept in cash",
			plan:     TradePlan{AvailableFunds: D("100"), TargetAllocation: map[string]float64{"A": 50, "C": 50}},
			quotes:   map[string]string{"A": "10"},
			want:     []string{"BUY A 5 @10"},
			warnings: []WarningKind{Skipped},
			wantCash: "50",
		},
		{
			name:     "placeholder price is estimated",
			plan:     TradePlan{AvailableFunds: D("100"), TargetAllocation: map[string]float64{"A": 50, "C": 50}},
			quotes:   map[string]string{"A": "10"},
			opts:     func(o *Options) { o.Placeholder = FixedPlaceholder(D("1")) },
			want:     []string{"BUY A 5 @10", "BUY C 50 @1 (estimated)"},
			warnings: []WarningKind{PriceUnavailable},
			wantCash: "0",
		},
		{
			name:     "non positive quote is rejected",
			plan:     TradePlan{AvailableFunds: D("100"), TargetAllocation: map[string]float64{"A": 100}},
			quotes:   map[string]string{"A": "0"},
			warnings: []WarningKind{Skipped},
			wantCash: "100",
		},
		{
			name:     "nothing to invest",
			plan:     TradePlan{TargetAllocation: map[string]float64{"A": 100}},
			quotes:   map[string]string{"A": "10"},
			warnings: []WarningKind{EmptyPortfolio},
			wantCash: "0",
		},
		{
			name:     "empty allocation",
			holdings: []Holding{priced("A", 1, "10")},
			plan:     TradePlan{AvailableFunds: D("10"), TargetAllocation: map[string]float64{"A": 0}},
			warnings: []WarningKind{EmptyAllocation},
			wantCash: "10",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.opts != nil {
				tt.opts(&opts)
			}
			p := mustPortfolio(t, tt.holdings...)
			r, err := Plan(context.Background(), p, &tt.plan, newQuotes(tt.quotes), opts)
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, tradeLines(r.Trades)); diff != "" {
				t.Errorf("Plan() trades mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.warnings, kinds(r.Warnings)); diff != "" {
				t.Errorf("Plan() warnings mismatch (-want +got):\n%s", diff)
			}
			if got := r.Projected.Cash.Decimal(); !got.Equal(D(tt.wantCash)) {
				t.Errorf("Plan() cash = %s, want %s", got, tt.wantCash)
			}
			if tt.wantScale != "" && !r.Scale.Equal(D(tt.wantScale)) {
				t.Errorf("Plan() scale = %s, want %s", r.Scale, tt.wantScale)
			}
			checkBudget(t, r)
		})
	}
}

func TestPlan_LooksUpEachTickerOnce(t *testing.T) {
	p := mustPortfolio(t,
		Holding{Ticker: "A", Quantity: Q(1)},
		priced("B", 1, "20"),
	)
	tp := &TradePlan{AvailableFunds: D("10"), TargetAllocation: map[string]float64{"A": 40, "B": 40, "C": 20}}
	q := newQuotes(map[string]string{"A": "10", "B": "25", "C": "5"})

	if _, err := Plan(context.Background(), p, tp, q, DefaultOptions()); err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	want := map[string]int{"A": 1, "C": 1}
	if diff := cmp.Diff(want, q.calls); diff != "" {
		t.Errorf("Plan() lookups mismatch (-want +got):\n%s", diff)
	}
}

func TestPlan_BatchProvider(t *testing.T) {
	p := mustPortfolio(t,
		Holding{Ticker: "A", Quantity: Q(1)},
		Holding{Ticker: "B", Quantity: Q(1)},
	)
	tp := &TradePlan{TargetAllocation: map[string]float64{"A": 50, "B": 50}}
	b := &batchQuotes{quotes: newQuotes(map[string]string{"A": "10", "B": "20"})}

	r, err := Plan(context.Background(), p, tp, b, DefaultOptions())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(b.batches) != 1 {
		t.Errorf("Plan() sent %d batches, want 1", len(b.batches))
	}
	if len(b.calls) != 0 {
		t.Errorf("Plan() made single lookups %v, want none", b.calls)
	}
	want := []string{"BUY A 0.5 @10", "SELL B 0.25 @20"}
	if diff := cmp.Diff(want, tradeLines(r.Trades)); diff != "" {
		t.Errorf("Plan() trades mismatch (-want +got):\n%s", diff)
	}
	checkBudget(t, r)
}

func TestPlan_RefreshFallsBackToCarriedPrice(t *testing.T) {
	p := mustPortfolio(t, priced("A", 1, "10"))
	tp := &TradePlan{TargetAllocation: map[string]float64{"A": 100}}
	q := newQuotes(nil)
	opts := DefaultOptions()
	opts.Refresh = true

	r, err := Plan(context.Background(), p, tp, q, opts)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if q.calls["A"] != 1 {
		t.Errorf("Plan() looked up A %d times, want 1", q.calls["A"])
	}
	if got := r.Prices["A"]; got.Source != FromPortfolio || !got.Value.Decimal().Equal(D("10")) {
		t.Errorf("Plan() price of A = %v, want 10 from portfolio", got)
	}
	if diff := cmp.Diff([]WarningKind{PriceUnavailable}, kinds(r.Warnings)); diff != "" {
		t.Errorf("Plan() warnings mismatch (-want +got):\n%s", diff)
	}
	if len(r.Trades) != 0 {
		t.Errorf("Plan() trades = %v, want none", tradeLines(r.Trades))
	}
}

func TestPlan_UnpricedHoldingIsKept(t *testing.T) {
	p := mustPortfolio(t, Holding{Ticker: "A", Quantity: Q(2)})
	tp := &TradePlan{AvailableFunds: D("100"), TargetAllocation: map[string]float64{"A": 100}}

	r, err := Plan(context.Background(), p, tp, newQuotes(nil), DefaultOptions())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(r.Trades) != 0 {
		t.Errorf("Plan() trades = %v, want none", tradeLines(r.Trades))
	}
	if diff := cmp.Diff([]string{"A"}, r.Skipped()); diff != "" {
		t.Errorf("Skipped() mismatch (-want +got):\n%s", diff)
	}
	if len(r.Projected.Holdings) != 1 || r.Projected.Holdings[0].Priced {
		t.Fatalf("Plan() projected = %+v, want A unpriced", r.Projected.Holdings)
	}
	if !r.Projected.Holdings[0].Quantity.Equal(Q(2)) {
		t.Errorf("Plan() projected quantity = %s, want 2", r.Projected.Holdings[0].Quantity)
	}
}

func TestPlan_Projection(t *testing.T) {
	p := mustPortfolio(t, priced("AAPL", 10, "100"))
	tp := &TradePlan{AvailableFunds: D("1000"), TargetAllocation: map[string]float64{"AAPL": 50, "MSFT": 50}}

	r, err := Plan(context.Background(), p, tp, newQuotes(map[string]string{"MSFT": "200"}), DefaultOptions())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !r.CurrentValue.Equal(USD(1000)) || !r.TotalInvestable.Equal(USD(2000)) {
		t.Errorf("Plan() value = %s, investable = %s, want $1,000.00 and $2,000.00", r.CurrentValue, r.TotalInvestable)
	}

	type row struct {
		Ticker   string
		Quantity string
		Weight   Percent
	}
	var got []row
	for _, h := range r.Projected.Holdings {
		got = append(got, row{h.Ticker, h.Quantity.String(), h.Weight})
	}
	want := []row{{"AAPL", "10", 50}, {"MSFT", "5", 50}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Plan() projection mismatch (-want +got):\n%s", diff)
	}
	if !r.Projected.MaxDrift.Equal(0) {
		t.Errorf("Plan() max drift = %s, want 0", r.Projected.MaxDrift)
	}
}

func TestPlan_Idempotent(t *testing.T) {
	p := mustPortfolio(t, priced("A", 70, "10"), priced("B", 30, "10"))
	tp := &TradePlan{AvailableFunds: D("250"), TargetAllocation: map[string]float64{"A": 40, "B": 40, "C": 20}}
	q := newQuotes(map[string]string{"C": "4"})

	first, err := Plan(context.Background(), p, tp, q, DefaultOptions())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(first.Trades) == 0 {
		t.Fatalf("Plan() returned no trades")
	}

	again := &TradePlan{TargetAllocation: tp.TargetAllocation}
	second, err := Plan(context.Background(), first.Projected.Portfolio(), again, newQuotes(nil), DefaultOptions())
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(second.Trades) != 0 {
		t.Errorf("Plan() on the projection = %v, want no trades", tradeLines(second.Trades))
	}
}

func TestPlan_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		plan *TradePlan
	}{
		{"missing plan", nil},
		{"negative funds", &TradePlan{AvailableFunds: D("-1"), TargetAllocation: map[string]float64{"A": 100}}},
		{"percentage above 100", &TradePlan{TargetAllocation: map[string]float64{"A": 120}}},
		{"negative percentage", &TradePlan{TargetAllocation: map[string]float64{"A": -5}}},
		{"empty ticker", &TradePlan{TargetAllocation: map[string]float64{" ": 100}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := newQuotes(map[string]string{"A": "1"})
			_, err := Plan(context.Background(), nil, tt.plan, q, DefaultOptions())
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("Plan() error = %v, want %v", err, ErrInvalidInput)
			}
			if len(q.calls) != 0 {
				t.Errorf("Plan() looked up prices %v on invalid input", q.calls)
			}
		})
	}
}

func TestPlan_UnevenSplits(t *testing.T) {
	tests := []struct {
		name    string
		n       int
		whole   bool
		funds   string
		price   string
		wantQty string
	}{
		{name: "thirds in whole units", n: 3, whole: true, funds: "300", price: "10", wantQty: "10"},
		{name: "sixths in whole units", n: 6, whole: true, funds: "600", price: "10", wantQty: "10"},
		{name: "sevenths in whole units", n: 7, whole: true, funds: "1000", price: "7", wantQty: "20"},
		{name: "thirds in fractions", n: 3, funds: "100", price: "3", wantQty: "11.11111111"},
		{name: "sixths in fractions", n: 6, funds: "1000", price: "7", wantQty: "23.8095238"},
		{name: "sevenths in fractions", n: 7, funds: "100", price: "3", wantQty: "4.76190476"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp := &TradePlan{AvailableFunds: D(tt.funds), TargetAllocation: equal(tt.n, 100/float64(tt.n))}
			if tt.whole {
				tp.WholeUnits = whole(tt.n)
			}
			r, err := Plan(context.Background(), mustPortfolio(t), tp, newQuotes(flat(tt.n, tt.price)), DefaultOptions())
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			checkBudget(t, r)
			for _, w := range r.Warnings {
				if w.Kind == BudgetScaled {
					t.Errorf("Plan() warned %q, want no scaling of fresh funds", w.Message)
				}
			}
			if len(r.Trades) != tt.n {
				t.Fatalf("Plan() trades = %v, want %d buys", tradeLines(r.Trades), tt.n)
			}
			for _, tr := range r.Trades {
				if tr.Action != Buy || !tr.Quantity.Decimal().Equal(D(tt.wantQty)) {
					t.Errorf("Plan() trade = %s %s %s, want BUY %s", tr.Action, tr.Ticker, tr.Quantity, tt.wantQty)
				}
				if tt.whole && !tr.Quantity.IsInteger() {
					t.Errorf("Plan() quantity of %s = %s, want whole units", tr.Ticker, tr.Quantity)
				}
			}
			if r.Projected.Cash.Decimal().GreaterThanOrEqual(D(tt.price).Mul(decimal.NewFromInt(int64(tt.n)))) {
				t.Errorf("Plan() left %s in cash, enough for one more unit of each", r.Projected.Cash)
			}

			// planning again from the projection changes nothing.
			again := &TradePlan{AvailableFunds: r.Projected.Cash.Decimal(), TargetAllocation: tp.TargetAllocation}
			r2, err := Plan(context.Background(), r.Projected.Portfolio(), again, newQuotes(nil), DefaultOptions())
			if err != nil {
				t.Fatalf("Plan() again error = %v", err)
			}
			if len(r2.Trades) != 0 {
				t.Errorf("Plan() again trades = %v, want none", tradeLines(r2.Trades))
			}
		})
	}
}

func TestPlan_WeightsAreRelative(t *testing.T) {
	p := mustPortfolio(t, priced("A", 3, "10"), priced("B", 1, "7"))
	q := map[string]string{"A": "10", "B": "7"}

	var got [][]string
	for _, alloc := range []map[string]float64{{"A": 10, "B": 10}, {"A": 50, "B": 50}} {
		tp := &TradePlan{AvailableFunds: D("100"), TargetAllocation: alloc}
		r, err := Plan(context.Background(), p, tp, newQuotes(q), DefaultOptions())
		if err != nil {
			t.Fatalf("Plan(%v) error = %v", alloc, err)
		}
		got = append(got, tradeLines(r.Trades))
	}
	if len(got[1]) == 0 {
		t.Fatalf("Plan() trades = none, want some")
	}
	if diff := cmp.Diff(got[1], got[0]); diff != "" {
		t.Errorf("Plan() trades differ between 10/10 and 50/50 (-50/50 +10/10):\n%s", diff)
	}
}
