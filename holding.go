package rebalance

import (
	"errors"
	"iter"
	"strings"

	"github.com/shopspring/decimal"
)

// Holding is the position in a single ticker.
type Holding struct {
	Ticker   string   `json:"ticker"`
	Quantity Quantity `json:"quantity"`
	// WholeUnitsOnly is true for securities that only trade in integer quantities.
	WholeUnitsOnly bool `json:"whole_units_only"`
	// Price is the last known price, if any.
	Price decimal.NullDecimal `json:"price,omitempty"`
}

// KnownPrice returns the holding's carried price, if any.
func (h Holding) KnownPrice() (decimal.Decimal, bool) {
	return h.Price.Decimal, h.Price.Valid
}

func (h Holding) validate() error {
	if strings.TrimSpace(h.Ticker) == "" {
		return invalidf("holding with an empty ticker")
	}
	if h.Quantity.IsNegative() {
		return invalidf("holding %s has a negative quantity %s", h.Ticker, h.Quantity)
	}
	if h.Price.Valid && !h.Price.Decimal.IsPositive() {
		return invalidf("holding %s has a non positive price %s", h.Ticker, h.Price.Decimal)
	}
	return nil
}

// Portfolio is an ordered collection of holdings with unique tickers.
// Its zero value is an empty portfolio ready to use.
type Portfolio struct {
	holdings []Holding
	index    map[string]int
}

// NewPortfolio returns a portfolio made of the given holdings, in order.
// All validation errors are returned joined.
func NewPortfolio(holdings ...Holding) (*Portfolio, error) {
	p := new(Portfolio)
	var errs []error
	for _, h := range holdings {
		if err := p.Add(h); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return p, nil
}

// Add appends a holding. Tickers must be unique.
func (p *Portfolio) Add(h Holding) error {
	h.Ticker = strings.TrimSpace(h.Ticker)
	if err := h.validate(); err != nil {
		return err
	}
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if _, exists := p.index[h.Ticker]; exists {
		return invalidf("duplicate holding for ticker %s", h.Ticker)
	}
	p.index[h.Ticker] = len(p.holdings)
	p.holdings = append(p.holdings, h)
	return nil
}

// Len returns the number of holdings.
func (p *Portfolio) Len() int { return len(p.holdings) }

// Get returns the holding for ticker.
func (p *Portfolio) Get(ticker string) (Holding, bool) {
	i, ok := p.index[ticker]
	if !ok {
		return Holding{}, false
	}
	return p.holdings[i], true
}

// Holdings iterates over holdings in portfolio order.
func (p *Portfolio) Holdings() iter.Seq[Holding] {
	return func(yield func(Holding) bool) {
		for _, h := range p.holdings {
			if !yield(h) {
				return
			}
		}
	}
}

// Tickers returns the held tickers in portfolio order.
func (p *Portfolio) Tickers() []string {
	tickers := make([]string, 0, len(p.holdings))
	for _, h := range p.holdings {
		tickers = append(tickers, h.Ticker)
	}
	return tickers
}

// Value returns the sum of quantity × price over holdings priced in prices.
func (p *Portfolio) Value(prices PriceMap, currency string) Money {
	total := M(0, currency)
	for _, h := range p.holdings {
		price, ok := prices[h.Ticker]
		if !ok {
			continue
		}
		total = total.Add(price.Value.Mul(h.Quantity))
	}
	return total
}

// Distribution returns the share of each priced holding in the portfolio value.
// All shares are zero when the portfolio has no value.
func (p *Portfolio) Distribution(prices PriceMap, currency string) map[string]Percent {
	total := p.Value(prices, currency)
	dist := make(map[string]Percent, len(p.holdings))
	for _, h := range p.holdings {
		price, ok := prices[h.Ticker]
		if !ok {
			continue
		}
		if total.IsZero() {
			dist[h.Ticker] = 0
			continue
		}
		share := price.Value.Mul(h.Quantity).Ratio(total)
		dist[h.Ticker] = Percent(share.Mul(decimal.NewFromInt(100)).InexactFloat64())
	}
	return dist
}

// clone returns a deep copy of the portfolio.
func (p *Portfolio) clone() *Portfolio {
	c := &Portfolio{
		holdings: make([]Holding, len(p.holdings)),
		index:    make(map[string]int, len(p.holdings)),
	}
	copy(c.holdings, p.holdings)
	for k, v := range p.index {
		c.index[k] = v
	}
	return c
}
