// Package exchangerate fetches currency rates from open.er-api.com with a
// persistent cache in front of it.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/investlog/internal/clientdata"
	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://open.er-api.com/v6/latest"

// Client for open.er-api.com
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new exchange rate client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "exchangerate").Logger(),
		cacheRepo: cacheRepo,
	}
}

// WithBaseURL points the client at another endpoint (tests).
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

type cachedExchangeRate struct {
	Rate float64 `json:"rate"`
}

type latestResponse struct {
	Result string             `json:"result"`
	Rates  map[string]float64 `json:"rates"`
}

// GetRate returns how many units of `to` one unit of `from` buys.
// A fresh cached rate is served first; if the API fails a stale cached
// rate is returned instead of an error.
func (c *Client) GetRate(ctx context.Context, from, to string) (float64, error) {
	if from == to {
		return 1.0, nil
	}

	cacheKey := from + ":" + to

	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh(ctx, clientdata.TableExchangeRate, cacheKey)
		if err == nil && data != nil {
			var cached cachedExchangeRate
			if err := json.Unmarshal(data, &cached); err == nil {
				c.log.Debug().Str("pair", cacheKey).Float64("rate", cached.Rate).Msg("Cache hit")
				return cached.Rate, nil
			}
		}
	}

	rate, err := c.fetch(ctx, from, to)
	if err != nil {
		if staleRate, ok := c.getStaleFromCache(ctx, cacheKey); ok {
			c.log.Warn().Err(err).Str("pair", cacheKey).Float64("rate", staleRate).Msg("API failed, using stale cached rate")
			return staleRate, nil
		}
		return 0, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(ctx, clientdata.TableExchangeRate, cacheKey, cachedExchangeRate{Rate: rate}, clientdata.TTLExchangeRate); err != nil {
			c.log.Warn().Err(err).Str("pair", cacheKey).Msg("Failed to cache exchange rate")
		}
	}

	c.log.Info().Str("pair", cacheKey).Float64("rate", rate).Msg("Fetched rate")
	return rate, nil
}

func (c *Client) fetch(ctx context.Context, from, to string) (float64, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, from)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Result != "" && result.Result != "success" {
		return 0, fmt.Errorf("API returned result %q", result.Result)
	}

	rate, ok := result.Rates[to]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("rate not found for %s->%s", from, to)
	}
	return rate, nil
}

// getStaleFromCache retrieves a cached rate even if expired.
func (c *Client) getStaleFromCache(ctx context.Context, cacheKey string) (float64, bool) {
	if c.cacheRepo == nil {
		return 0, false
	}

	data, err := c.cacheRepo.Get(ctx, clientdata.TableExchangeRate, cacheKey)
	if err != nil || data == nil {
		return 0, false
	}

	var cached cachedExchangeRate
	if err := json.Unmarshal(data, &cached); err != nil {
		return 0, false
	}
	return cached.Rate, true
}
