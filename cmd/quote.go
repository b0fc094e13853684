package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
)

type quoteCmd struct {
	watchList string
	raw       bool
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "display the current price of tickers" }
func (*quoteCmd) Usage() string {
	return `rbl quote [-w <watch list>] [<ticker>...]

  Displays the current price of the tickers on the command line and in the
  watch list. A watch list is a JSON array of tickers, or a CSV file with a
  ticker column.
`
}

func (c *quoteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.watchList, "w", "", "Watch list file, JSON or CSV")
	f.BoolVar(&c.raw, "raw", false, "Print raw markdown")
}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	tickers := f.Args()
	if c.watchList != "" {
		file, err := os.Open(c.watchList)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening watch list: %v\n", err)
			return subcommands.ExitFailure
		}
		list, err := rebalance.DecodeWatchList(file)
		file.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading watch list %q: %v\n", c.watchList, err)
			return subcommands.ExitFailure
		}
		tickers = append(tickers, list...)
	}
	if len(tickers) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one ticker or a watch list is required.")
		return subcommands.ExitUsageError
	}

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
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
	// quotes never use a placeholder.
	opts := cfg.Options().PricingOptions
	opts.Placeholder = nil
	prices, warnings := rebalance.ResolvePrices(ctx, provider, currency, tickers, nil, opts)

	md := renderer.QuotesMarkdown(tickers, prices, warnings)
	if c.raw {
		fmt.Fprint(stdout, md)
	} else {
		printMarkdown(md)
	}
	return subcommands.ExitSuccess
}
