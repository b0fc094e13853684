package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/rebalance"
	md "github.com/nao1215/markdown"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// PlanMarkdown renders the trades, the projected portfolio and the warnings
// of a planning run.
func PlanMarkdown(r *rebalance.Result) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Rebalancing Plan")
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{md.Bold("Total Investable"), md.Bold(r.TotalInvestable.String())},
		Rows: [][]string{
			{"Current Value", r.CurrentValue.String()},
			{"Available Funds", r.AvailableFunds.String()},
			{"Buys", r.Total(rebalance.Buy).String()},
			{"Sells", r.Total(rebalance.Sell).String()},
		},
	})

	doc.H2("Trades")
	if len(r.Trades) == 0 {
		doc.PlainText("No trade needed, the portfolio is on target.")
	} else {
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight},
			Header:    []string{"Action", "Ticker", "Quantity", "Price", "Amount"},
		}
		for _, t := range r.Trades {
			price := t.Price.String()
			if t.Estimated {
				price += " (est.)"
			}
			table.Rows = append(table.Rows, []string{string(t.Action), t.Ticker, t.Quantity.String(), price, t.Amount.String()})
		}
		doc.Table(table)
	}
	if r.Scale.LessThan(one) {
		doc.PlainText(fmt.Sprintf("Buys were scaled to %s%% to fit the available cash.", r.Scale.Shift(2).StringFixed(2)))
	}

	if r.Projected != nil {
		doc.H2("Projected Portfolio")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignRight},
			Header:    []string{"Ticker", "Quantity", "Price", "Value", "Weight", "Target", "Drift"},
		}
		for _, h := range r.Projected.Holdings {
			if !h.Priced {
				table.Rows = append(table.Rows, []string{h.Ticker, h.Quantity.String(), "n/a", "n/a", "", "", ""})
				continue
			}
			table.Rows = append(table.Rows, []string{
				h.Ticker,
				h.Quantity.String(),
				r.Prices[h.Ticker].Value.String(),
				h.Value.String(),
				h.Weight.String(),
				h.Target.String(),
				h.Drift().SignedString(),
			})
		}
		table.Rows = append(table.Rows, []string{md.Bold("Cash"), "", "", r.Projected.Cash.String(), "", "", ""})
		doc.Table(table)
		doc.PlainText(fmt.Sprintf("Max drift %s, mean drift %s.", r.Projected.MaxDrift, r.Projected.MeanDrift))
	}

	writeWarnings(doc, r.Warnings)
	return doc.String()
}

func writeWarnings(doc *md.Markdown, ws []rebalance.Warning) {
	if len(ws) == 0 {
		return
	}
	doc.H2("Warnings")
	items := make([]string, 0, len(ws))
	for _, w := range ws {
		items = append(items, w.String())
	}
	doc.BulletList(items...)
}
