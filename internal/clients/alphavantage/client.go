// Package alphavantage provides a quote provider backed by the Alpha Vantage
// GLOBAL_QUOTE endpoint.
package alphavantage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://www.alphavantage.co/query"
	// freeTierDailyLimit is the number of requests the free plan allows per UTC day.
	freeTierDailyLimit = 25
)

// ErrRateLimitExceeded is returned when the daily request budget is spent
// or the API reports throttling.
type ErrRateLimitExceeded struct{}

func (ErrRateLimitExceeded) Error() string {
	return "alpha vantage rate limit exceeded"
}

// ErrInvalidAPIKey is returned when the API rejects the key.
type ErrInvalidAPIKey struct{}

func (ErrInvalidAPIKey) Error() string {
	return "alpha vantage: invalid API key"
}

// ErrSymbolNotFound is returned when the API has no quote for a symbol.
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("alpha vantage: no quote for symbol %s", e.Symbol)
}

// GlobalQuote is the parsed GLOBAL_QUOTE payload.
type GlobalQuote struct {
	Symbol           string
	Open             float64
	High             float64
	Low              float64
	Price            float64
	Volume           int64
	LatestTradingDay string
	PreviousClose    float64
	Change           float64
	ChangePercent    float64
}

// Client is a rate-limited Alpha Vantage client.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     zerolog.Logger

	mu         sync.Mutex
	dailyLimit int
	used       int
	resetAt    time.Time
}

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey string, log zerolog.Logger) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		log:        log.With().Str("client", "alphavantage").Logger(),
		dailyLimit: freeTierDailyLimit,
		resetAt:    nextMidnightUTC(),
	}
}

// WithBaseURL points the client at another endpoint (tests).
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// Name identifies the provider in logs and configuration.
func (c *Client) Name() string {
	return "alphavantage"
}

// FetchPrice returns the latest traded price of symbol.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	quote, err := c.GetGlobalQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return quote.Price, nil
}

// GetGlobalQuote fetches the GLOBAL_QUOTE of symbol.
func (c *Client) GetGlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error) {
	if err := c.checkRateLimit(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", c.apiKey)

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	quote, err := parseGlobalQuote(body)
	if err != nil {
		return nil, err
	}
	if quote.Symbol == "" {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}

	c.log.Debug().Str("symbol", symbol).Float64("price", quote.Price).Msg("Fetched global quote")
	return quote, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage returned status %d", resp.StatusCode)
	}

	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkAPIError detects error payloads, which Alpha Vantage sends with status 200.
func (c *Client) checkAPIError(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if bytes.HasPrefix(trimmed, []byte("Thank you for using Alpha Vantage")) {
		return ErrRateLimitExceeded{}
	}

	var probe struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil
	}

	switch {
	case probe.Note != "":
		return ErrRateLimitExceeded{}
	case strings.Contains(strings.ToLower(probe.Information), "api key"):
		return ErrInvalidAPIKey{}
	case probe.Information != "":
		return ErrRateLimitExceeded{}
	case probe.ErrorMessage != "":
		return fmt.Errorf("alpha vantage error: %s", probe.ErrorMessage)
	}
	return nil
}

// checkRateLimit consumes one request of the daily budget.
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().After(c.resetAt) {
		c.used = 0
		c.resetAt = nextMidnightUTC()
	}
	if c.used >= c.dailyLimit {
		return ErrRateLimitExceeded{}
	}
	c.used++
	return nil
}

// GetRemainingRequests returns how many requests are left today.
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dailyLimit - c.used
}

// ResetDailyCounter restores the full daily budget.
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.used = 0
	c.resetAt = nextMidnightUTC()
}

func nextMidnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}

func parseGlobalQuote(body []byte) (*GlobalQuote, error) {
	var payload struct {
		Quote map[string]string `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse global quote: %w", err)
	}

	q := payload.Quote
	return &GlobalQuote{
		Symbol:           q["01. symbol"],
		Open:             parseFloat64(q["02. open"]),
		High:             parseFloat64(q["03. high"]),
		Low:              parseFloat64(q["04. low"]),
		Price:            parseFloat64(q["05. price"]),
		Volume:           parseInt64(q["06. volume"]),
		LatestTradingDay: q["07. latest trading day"],
		PreviousClose:    parseFloat64(q["08. previous close"]),
		Change:           parseFloat64(q["09. change"]),
		ChangePercent:    parseFloat64(q["10. change percent"]),
	}, nil
}

// parseFloat64 parses Alpha Vantage numeric strings; placeholders become 0.
func parseFloat64(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	switch s {
	case "", "None", "null", "-":
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt64(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
