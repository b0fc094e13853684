package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/rebalance/eodhd"
	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
)

// searchCmd implements the "search" command.
type searchCmd struct {
	raw bool
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search tickers on EODHD" }
func (*searchCmd) Usage() string {
	return `rbl search <search term>

  Searches for securities via EOD Historical Data API and prints their
  ticker, ready to be used in a trade plan.

  Requires the EODHD_API_KEY environment variable to be set or passed with
  the -eodhd-api-key global flag.
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.raw, "raw", false, "Print raw markdown")
}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: a search term is required.")
		return subcommands.ExitUsageError
	}
	term := strings.Join(f.Args(), " ")

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	if cfg.EODHDAPIKey == "" {
		fmt.Fprintf(os.Stderr, "Error: EODHD API key is not set. Use -eodhd-api-key flag or %s environment variable\n", envEODHDAPIKey)
		return subcommands.ExitFailure
	}

	results, err := eodhd.New(cfg.EODHDAPIKey, eodhd.WithCache(cfg.CacheDir, eodhd.DefaultCacheTTL)).Search(ctx, term)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error searching securities: %v\n", err)
		return subcommands.ExitFailure
	}

	md := renderer.SearchMarkdown(term, results)
	if c.raw {
		fmt.Fprint(stdout, md)
	} else {
		printMarkdown(md)
	}
	return subcommands.ExitSuccess
}
