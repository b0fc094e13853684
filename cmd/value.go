package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type valueCmd struct {
	portfolioFile string
	refresh       bool
	raw           bool
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "display the value and distribution of a portfolio" }
func (*valueCmd) Usage() string {
	return `rbl value [-p <portfolio>] [-refresh]

  Prices every holding and displays its value and weight in the portfolio.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolioFile, "p", "portfolio.json", "Portfolio file, JSON or CSV")
	f.BoolVar(&c.refresh, "refresh", false, "Look up every price, even those in the portfolio")
	f.BoolVar(&c.raw, "raw", false, "Print raw markdown")
}

func (c *valueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	p, err := rebalance.LoadPortfolio(c.portfolioFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	provider, err := cfg.NewProvider()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating price provider: %v\n", err)
		return subcommands.ExitFailure
	}

	currency := cfg.Currency
	if currency == "" {
		currency = rebalance.DefaultCurrency
	}
	known := make(map[string]decimal.Decimal)
	for h := range p.Holdings() {
		if price, ok := h.KnownPrice(); ok {
			known[h.Ticker] = price
		}
	}
	opts := cfg.Options().PricingOptions
	opts.Refresh = c.refresh
	prices, warnings := rebalance.ResolvePrices(ctx, provider, currency, p.Tickers(), known, opts)

	md := renderer.ValueMarkdown(p, prices, currency, warnings)
	if c.raw {
		fmt.Fprint(stdout, md)
	} else {
		printMarkdown(md)
	}
	return subcommands.ExitSuccess
}
