package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

// assistCmd is the subcommand for the AI assistant.
type assistCmd struct {
	portfolioFile string
	planFile      string
}

// Name returns the name of the command.
func (*assistCmd) Name() string { return "assist" }

// Synopsis returns a short-one line synopsis of the command.
func (*assistCmd) Synopsis() string { return "Start an interactive session with the AI assistant." }

// Usage returns a long-form usage string.
func (*assistCmd) Usage() string {
	return `rbl assist [-p <portfolio>] [-t <trade plan>] [<prompt>]

  Start an interactive session with the AI assistant. The assistant can value
  the portfolio and compute rebalancing plans.

  Requires the GEMINI_API_KEY environment variable.
`
}

// SetFlags sets the flags for the command.
func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.portfolioFile, "p", "portfolio.json", "Portfolio file, JSON or CSV")
	f.StringVar(&c.planFile, "t", "plan.json", "Trade plan file, optional")
}

// Execute executes the command.
func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	initialPrompt := strings.Join(f.Args(), " ")

	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	ws := &agent.Workspace{Options: cfg.Options()}
	if ws.Portfolio, err = rebalance.LoadPortfolio(c.portfolioFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := os.Stat(c.planFile); err == nil {
		if ws.TradePlan, err = rebalance.LoadTradePlan(c.planFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading trade plan: %v\n", err)
			return subcommands.ExitFailure
		}
		if ws.TradePlan.Currency == "" {
			ws.TradePlan.Currency = cfg.Currency
		}
	}
	if ws.Provider, err = cfg.NewProvider(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating price provider: %v\n", err)
		return subcommands.ExitFailure
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	a := agent.New(stdout, os.Stdin, agent.NewTrader(), agent.NewPlanner(ws))
	if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
		a.Render = func(md string) string {
			if out, err := r.Render(md); err == nil {
				return out
			}
			return md
		}
	}

	if err := a.Run(ctx, client, initialPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
