// Package rebalance computes the trades that bring a portfolio to a target
// allocation in a single pass.
//
// A run takes the current holdings, the cash available to invest and the
// target weight of each ticker. It prices every ticker once, values the
// portfolio, and returns the BUY and SELL orders that close the gap to the
// targets, never spending more than the available funds plus the sell
// proceeds.
//
// The core functionalities include:
//   - Price resolution: tickers are priced once through a PriceProvider, with
//     a per lookup timeout, falling back to the price carried by the holding
//     or to an estimated placeholder price.
//   - Planning: Plan normalizes the target weights, computes the value gap of
//     each ticker, rounds quantities to whole or fractional units and scales
//     buys down to the budget.
//   - Projection: the portfolio resulting from the trades, with the weight
//     and drift of each holding, ready to be saved and planned again.
//   - Persistence: portfolios and trade plans are read from and written to
//     JSON or CSV files.
//
// Issues that do not prevent a plan, like an unavailable price, are reported
// as Warnings of the Result. Only invalid input is an error.
//
// This package serves as the foundational logic for the `rbl` command-line
// tool.
package rebalance
