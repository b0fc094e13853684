package eodhd

import (
	"context"
	"fmt"
	"net/url"
)

// SearchResult matches the structure of a single item in the EODHD search API response.
type SearchResult struct {
	Code              string  `json:"Code"`
	Exchange          string  `json:"Exchange"`
	Name              string  `json:"Name"`
	Type              string  `json:"Type"`
	Country           string  `json:"Country"`
	Currency          string  `json:"Currency"`
	ISIN              string  `json:"ISIN"`
	PreviousClose     float64 `json:"previousClose"`
	PreviousCloseDate string  `json:"previousCloseDate"`
}

// Ticker returns the code to use in a portfolio, SYMBOL.EXCHANGE.
func (r SearchResult) Ticker() string { return r.Code + "." + r.Exchange }

// Search searches for securities by name, ticker or ISIN.
func (c *Client) Search(ctx context.Context, searchTerm string) ([]SearchResult, error) {
	addr := fmt.Sprintf("%s/search/%s?api_token=%s&fmt=json", c.baseURL, url.PathEscape(searchTerm), url.QueryEscape(c.apiKey))

	var results []SearchResult
	if err := jwget(ctx, c.http, addr, &results); err != nil {
		return nil, err
	}
	return results, nil
}
