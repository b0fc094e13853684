// Package eodhd prices tickers with the real-time API of EOD Historical Data.
//
// Tickers are EODHD codes, SYMBOL.EXCHANGE (e.g. "VTI.US"). A ticker without
// an exchange suffix gets the client's default exchange.
package eodhd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/rebalance"
	"github.com/etnz/rebalance/logger"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL  = "https://eodhd.com/api"
	defaultExchange = "US"
	// DefaultCacheTTL is how long a quote is served from the disk cache.
	DefaultCacheTTL = 15 * time.Minute
	// maxBatch is the number of tickers EODHD accepts in a single real-time request.
	maxBatch = 15
)

// Client is a rebalance.BatchPriceProvider backed by EODHD.
type Client struct {
	apiKey   string
	baseURL  string
	exchange string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") } }

// WithExchange sets the exchange appended to tickers without one.
func WithExchange(code string) Option { return func(c *Client) { c.exchange = code } }

// WithCache stores responses in dir for ttl. A zero ttl disables the cache.
func WithCache(dir string, ttl time.Duration) Option {
	return func(c *Client) { c.http = newCachingClient(dir, ttl) }
}

// New returns a client using the given API key.
func New(apiKey string, options ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		exchange: defaultExchange,
		http:     newCachingClient("", DefaultCacheTTL),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// code returns the EODHD code of a ticker.
func (c *Client) code(ticker string) string {
	if strings.Contains(ticker, ".") || c.exchange == "" {
		return ticker
	}
	return ticker + "." + c.exchange
}

// Price implements rebalance.PriceProvider.
func (c *Client) Price(ctx context.Context, ticker string) (decimal.Decimal, error) {
	prices, err := c.Prices(ctx, []string{ticker})
	if err != nil {
		return decimal.Zero, err
	}
	p, ok := prices[ticker]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: eodhd has no quote for %s", rebalance.ErrPriceUnavailable, ticker)
	}
	return p, nil
}

// Prices implements rebalance.BatchPriceProvider. Tickers are requested in
// chunks, the first ticker in the path and the others in the "s" parameter.
func (c *Client) Prices(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	log := logger.FromContext(ctx)
	res := make(map[string]decimal.Decimal, len(tickers))

	// codes are mapped back to the tickers the caller used.
	byCode := make(map[string]string, len(tickers))
	codes := make([]string, 0, len(tickers))
	for _, t := range tickers {
		code := c.code(t)
		if _, dup := byCode[code]; dup {
			continue
		}
		byCode[code] = t
		codes = append(codes, code)
	}

	for start := 0; start < len(codes); start += maxBatch {
		chunk := codes[start:min(start+maxBatch, len(codes))]
		quotes, err := c.realTime(ctx, chunk)
		if err != nil {
			return res, err
		}
		for code, price := range quotes {
			t, ok := byCode[code]
			if !ok {
				log.Debugw("unexpected quote", "code", code)
				continue
			}
			res[t] = price
		}
	}
	return res, nil
}

// realTime queries the real-time endpoint and returns the usable price of
// each code in the response.
func (c *Client) realTime(ctx context.Context, codes []string) (map[string]decimal.Decimal, error) {
	// https://eodhd.com/api/real-time/AAPL.US?api_token=demo&fmt=json&s=VTI.US,BND.US
	// {
	//   "code": "AAPL.US",
	//   "timestamp": 1700000000,
	//   "close": 189.71,
	//   "previousClose": 190.64,
	//   ...
	// }
	// the response is an array when several codes are requested.
	params := url.Values{}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")
	if len(codes) > 1 {
		params.Set("s", strings.Join(codes[1:], ","))
	}
	addr := fmt.Sprintf("%s/real-time/%s?%s", c.baseURL, url.PathEscape(codes[0]), params.Encode())

	var content any
	if err := jwget(ctx, c.http, addr, &content); err != nil {
		return nil, fmt.Errorf("eodhd real-time quote of %s: %w", strings.Join(codes, ","), err)
	}

	items, ok := content.([]any)
	if !ok {
		items = []any{content}
	}
	res := make(map[string]decimal.Decimal, len(items))
	for _, item := range items {
		code, err := jsonpath.Get("$.code", item)
		if err != nil {
			continue
		}
		s, ok := code.(string)
		if !ok {
			continue
		}
		if price, ok := quotePrice(item); ok {
			res[s] = price
		}
	}
	return res, nil
}

// quotePrice returns the last close of a quote, or the previous close when
// the market has not traded yet. EODHD reports missing values as "NA".
func quotePrice(item any) (decimal.Decimal, bool) {
	for _, path := range []string{"$.close", "$.previousClose"} {
		v, err := jsonpath.Get(path, item)
		if err != nil {
			continue
		}
		f, ok := v.(float64)
		if !ok || f <= 0 {
			continue
		}
		return decimal.NewFromFloat(f), true
	}
	return decimal.Zero, false
}
