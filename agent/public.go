package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/docs"
	"github.com/etnz/rebalance/renderer"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:        "Facilitator",
		Description: "The facilitator is a helpful assistant that routes user questions to the right expert.",
		ModelName:   model,
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: `You are a friendly assistant helping a user rebalance an investment portfolio.

You do not compute anything yourself. You ask the experts and you relay their answers.
Always present trade lists as markdown tables. Never invent a price, a quantity or a ticker.`}},
			},
			Tools: []*genai.Tool{{FunctionDeclarations: NewDeclaration(experts)}},
		},
		Library: NewLibrary(experts),
	}
}

// NewTrader returns an expert on market information, searching the web.
func NewTrader() *Expert {
	return &Expert{
		Name:        "Trader",
		Description: "The trader knows the market: tickers, exchanges, asset classes and recent news about securities.",
		ModelName:   model,
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: `You are a trader. You answer questions about securities: their ticker, the exchange they trade on, their asset class and recent news.
Always quote the ticker in the form used by the exchange.`}},
			},
			Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
		},
	}
}

// Workspace is what the planner works on: the user's portfolio and trade plan.
type Workspace struct {
	Portfolio *rebalance.Portfolio
	TradePlan *rebalance.TradePlan
	Provider  rebalance.PriceProvider
	Options   rebalance.Options
}

// NewPlanner returns an expert computing rebalancing plans on ws.
func NewPlanner(ws *Workspace) *Expert {
	functions := []*Func{ws.planFunc(), ws.valueFunc(), topicFunc()}
	return &Expert{
		Name:        "Planner",
		Description: "The planner knows the user's portfolio and target allocation. It values the portfolio and computes the trades to rebalance it, possibly with other funds or another allocation. It also knows how the rbl tool works.",
		ModelName:   model,
		Config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: `You are a portfolio planner. Use your functions to value the portfolio and to compute rebalancing trades.
Report trades exactly as computed, with their warnings. When buys were scaled down, say so.`}},
			},
			Tools: []*genai.Tool{{FunctionDeclarations: NewDeclaration(functions)}},
		},
		Library: NewLibrary(functions),
	}
}

func (ws *Workspace) planFunc() *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "Plan",
			Description: "Computes the trades that rebalance the portfolio toward a target allocation, and the projected portfolio.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"available_funds": {
						Type:        genai.TypeNumber,
						Description: "New cash to invest. Defaults to the funds of the user's trade plan.",
					},
					"target_allocation": {
						Type:        genai.TypeString,
						Description: "Target percentages like 'VTI=60,BND=40'. Defaults to the user's target allocation.",
					},
				},
			},
			Response: &genai.Schema{Type: genai.TypeString, Description: "The plan in markdown."},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			tp, err := ws.tradePlan(args)
			if err != nil {
				return failure(id, "Plan", err)
			}
			r, err := rebalance.Plan(ctx, ws.Portfolio, tp, ws.Provider, ws.Options)
			if err != nil {
				return failure(id, "Plan", err)
			}
			return success(id, "Plan", renderer.PlanMarkdown(r))
		},
	}
}

// tradePlan returns the workspace trade plan overridden by args.
func (ws *Workspace) tradePlan(args map[string]any) (*rebalance.TradePlan, error) {
	tp := &rebalance.TradePlan{TargetAllocation: map[string]float64{}}
	if ws.TradePlan != nil {
		*tp = *ws.TradePlan
	}
	if v, ok := args["available_funds"]; ok {
		funds, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("invalid available_funds type got %T, expected number", v)
		}
		tp.AvailableFunds = decimal.NewFromFloat(funds)
	}
	if v, ok := args["target_allocation"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("invalid target_allocation type got %T, expected string", v)
		}
		alloc, err := parseAllocation(s)
		if err != nil {
			return nil, err
		}
		tp.TargetAllocation = alloc
	}
	return tp, nil
}

// parseAllocation reads "VTI=60,BND=40".
func parseAllocation(s string) (map[string]float64, error) {
	alloc := make(map[string]float64)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		ticker, pct, found := strings.Cut(item, "=")
		if !found {
			return nil, fmt.Errorf("invalid target %q, expected TICKER=PERCENT", item)
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(pct), "%"), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid percentage in %q: %w", item, err)
		}
		alloc[strings.TrimSpace(ticker)] = v
	}
	return alloc, nil
}

func (ws *Workspace) valueFunc() *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "Value",
			Description: "Values the user's portfolio at current prices and returns each holding's weight.",
			Response:    &genai.Schema{Type: genai.TypeString, Description: "The valuation in markdown."},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			p := ws.Portfolio
			if p == nil {
				p = new(rebalance.Portfolio)
			}
			currency := rebalance.DefaultCurrency
			if ws.TradePlan != nil && ws.TradePlan.Currency != "" {
				currency = ws.TradePlan.Currency
			}
			known := make(map[string]decimal.Decimal)
			for h := range p.Holdings() {
				if price, ok := h.KnownPrice(); ok {
					known[h.Ticker] = price
				}
			}
			prices, warnings := rebalance.ResolvePrices(ctx, ws.Provider, currency, p.Tickers(), known, ws.Options.PricingOptions)
			return success(id, "Value", renderer.ValueMarkdown(p, prices, currency, warnings))
		},
	}
}

func topicFunc() *Func {
	return &Func{
		Decl: &genai.FunctionDeclaration{
			Name:        "Topic",
			Description: "Returns the documentation of the rbl tool about a topic: portfolio, plan, pricing or config. '*' returns all topics.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"topic": {Type: genai.TypeString, Description: "The topic name."},
				},
				Required: []string{"topic"},
			},
			Response: &genai.Schema{Type: genai.TypeString, Description: "The documentation in markdown."},
		},
		Func: func(ctx context.Context, id string, args map[string]any) *genai.FunctionResponse {
			topic, _ := args["topic"].(string)
			content, err := docs.GetTopic(topic)
			if err != nil {
				return failure(id, "Topic", err)
			}
			return success(id, "Topic", content)
		},
	}
}
