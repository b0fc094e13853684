package renderer

import (
	"bytes"

	"github.com/etnz/rebalance"
	md "github.com/nao1215/markdown"
)

// ValueMarkdown renders the valuation and distribution of a portfolio.
func ValueMarkdown(p *rebalance.Portfolio, prices rebalance.PriceMap, currency string, ws []rebalance.Warning) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Portfolio Value")
	total := p.Value(prices, currency)
	dist := p.Distribution(prices, currency)

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight},
		Header:    []string{"Ticker", "Quantity", "Price", "Value", "Weight"},
	}
	for h := range p.Holdings() {
		price, ok := prices[h.Ticker]
		if !ok {
			table.Rows = append(table.Rows, []string{h.Ticker, h.Quantity.String(), "n/a", "n/a", ""})
			continue
		}
		table.Rows = append(table.Rows, []string{
			h.Ticker,
			h.Quantity.String(),
			priceLabel(price),
			price.Value.Mul(h.Quantity).String(),
			dist[h.Ticker].String(),
		})
	}
	table.Rows = append(table.Rows, []string{md.Bold("Total"), "", "", md.Bold(total.String()), ""})
	doc.Table(table)

	writeWarnings(doc, ws)
	return doc.String()
}

func priceLabel(p rebalance.Price) string {
	if p.Estimated() {
		return p.Value.String() + " (est.)"
	}
	return p.Value.String()
}
