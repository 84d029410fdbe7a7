// Package finnhub provides a quote provider backed by the Finnhub REST API.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://finnhub.io/api/v1"

// Quote is the /quote payload. Finnhub answers unknown symbols with an
// all-zero quote rather than an error status.
type Quote struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	PercentChange float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Timestamp     int64   `json:"t"`
}

// Client for finnhub.io
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Finnhub client
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log.With().Str("client", "finnhub").Logger(),
	}
}

// WithBaseURL points the client at another endpoint (tests).
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Name identifies the provider in logs and configuration.
func (c *Client) Name() string {
	return "finnhub"
}

// FetchPrice returns the current price of symbol.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	quote, err := c.GetQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if quote.Current <= 0 && quote.Timestamp == 0 {
		return 0, fmt.Errorf("finnhub: no quote for symbol %s", symbol)
	}
	return quote.Current, nil
}

// GetQuote fetches the raw quote of symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("token", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finnhub request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("finnhub returned status %d", resp.StatusCode)
	}

	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to parse finnhub quote: %w", err)
	}

	c.log.Debug().Str("symbol", symbol).Float64("price", quote.Current).Msg("Fetched quote")
	return &quote, nil
}
