package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/renderer"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// planCmd holds the flags for the 'plan' subcommand.
type planCmd struct {
	portfolioFile  string
	planFile       string
	allocationFile string
	funds          string
	refresh        bool
	placeholder    float64
	json           bool
	raw            bool
	output         string
}

func (*planCmd) Name() string     { return "plan" }
func (*planCmd) Synopsis() string { return "compute the trades that rebalance a portfolio" }
func (*planCmd) Usage() string {
	return `rbl plan [-p <portfolio>] [-t <trade plan>] [-a <allocation.csv>] [-funds <amount>] [-o <file>]

  Computes the trades that move the portfolio toward the target allocation,
  investing the available funds. Prints the trades, the projected portfolio
  and the warnings.

Usage Examples:
# Plan with the default files.
$ rbl plan

# Invest 1000 more, save the projected portfolio.
$ rbl plan -funds 1000 -o next.json

`
}

func (c *planCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolioFile, "p", "portfolio.json", "Portfolio file, JSON or CSV")
	f.StringVar(&c.planFile, "t", "plan.json", "Trade plan file")
	f.StringVar(&c.allocationFile, "a", "", "CSV file of ticker,percent replacing the target allocation of the trade plan")
	f.StringVar(&c.funds, "funds", "", "Available funds replacing those of the trade plan")
	f.BoolVar(&c.refresh, "refresh", false, "Look up every price, even those in the portfolio")
	f.Float64Var(&c.placeholder, "placeholder", -1, "Price used for tickers that cannot be priced, 0 skips them. Defaults to the configuration")
	f.BoolVar(&c.json, "json", false, "Print the result as JSON")
	f.BoolVar(&c.raw, "raw", false, "Print raw markdown")
	f.StringVar(&c.output, "o", "", "Write the projected portfolio to this file")
}

func (c *planCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.placeholder >= 0 {
		cfg.Placeholder = c.placeholder
	}

	p, err := rebalance.LoadPortfolio(c.portfolioFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	tp, err := c.tradePlan(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading trade plan: %v\n", err)
		return subcommands.ExitFailure
	}

	provider, err := cfg.NewProvider()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating price provider: %v\n", err)
		return subcommands.ExitFailure
	}
	opts := cfg.Options()
	opts.Refresh = c.refresh

	r, err := rebalance.Plan(ctx, p, tp, provider, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing the plan: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.output != "" {
		if err := rebalance.SavePortfolio(c.output, r.Projected.Portfolio()); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving projected portfolio: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(os.Stderr, "Projected portfolio written to %s\n", c.output)
	}

	switch {
	case c.json:
		if err := rebalance.EncodeResult(stdout, r); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing result: %v\n", err)
			return subcommands.ExitFailure
		}
	case c.raw:
		fmt.Fprint(stdout, renderer.PlanMarkdown(r))
	default:
		printMarkdown(renderer.PlanMarkdown(r))
	}
	return subcommands.ExitSuccess
}

// tradePlan loads the trade plan file and applies the command line overrides.
// Without a trade plan file, the allocation file is required.
func (c *planCmd) tradePlan(cfg Config) (*rebalance.TradePlan, error) {
	tp := &rebalance.TradePlan{}
	if _, err := os.Stat(c.planFile); err == nil || c.allocationFile == "" {
		if tp, err = rebalance.LoadTradePlan(c.planFile); err != nil {
			return nil, err
		}
	}
	if c.allocationFile != "" {
		f, err := os.Open(c.allocationFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if tp.TargetAllocation, err = rebalance.DecodeAllocationCSV(f); err != nil {
			return nil, fmt.Errorf("format error in %q: %w", c.allocationFile, err)
		}
	}
	if c.funds != "" {
		funds, err := decimal.NewFromString(strings.TrimSpace(c.funds))
		if err != nil {
			return nil, fmt.Errorf("invalid funds %q: %w", c.funds, err)
		}
		tp.AvailableFunds = funds
	}
	if tp.Currency == "" {
		tp.Currency = cfg.Currency
	}
	return tp, tp.Validate()
}
