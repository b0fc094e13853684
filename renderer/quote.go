package renderer

import (
	"bytes"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/eodhd"
	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"
)

// QuotesMarkdown renders the prices of tickers, in order.
func QuotesMarkdown(tickers []string, prices rebalance.PriceMap, ws []rebalance.Warning) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Quotes")
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignLeft},
		Header:    []string{"Ticker", "Price", "Source"},
	}
	for _, t := range tickers {
		p, ok := prices[t]
		if !ok {
			table.Rows = append(table.Rows, []string{t, "n/a", ""})
			continue
		}
		table.Rows = append(table.Rows, []string{t, priceLabel(p), string(p.Source)})
	}
	doc.Table(table)

	writeWarnings(doc, ws)
	return doc.String()
}

// SearchMarkdown renders security search results.
func SearchMarkdown(term string, results []eodhd.SearchResult) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Search: " + term)
	if len(results) == 0 {
		doc.PlainText("No security found.")
		return doc.String()
	}
	table := md.TableSet{
		Header: []string{"Ticker", "Name", "Type", "Currency", "ISIN", "Previous Close"},
	}
	for _, r := range results {
		table.Rows = append(table.Rows, []string{
			r.Ticker(),
			r.Name,
			r.Type,
			r.Currency,
			r.ISIN,
			decimal.NewFromFloat(r.PreviousClose).StringFixed(2),
		})
	}
	doc.Table(table)
	return doc.String()
}
