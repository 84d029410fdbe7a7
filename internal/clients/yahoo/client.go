// Package yahoo provides a quote provider backed by Yahoo Finance through
// go-yfinance.
package yahoo

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// quoteSource abstracts a go-yfinance ticker so tests can stub it.
type quoteSource interface {
	prices() (regular, pre, post, current float64, err error)
	close()
}

// tickerSource adapts a go-yfinance ticker to quoteSource.
type tickerSource struct {
	fetch   func() (regular, pre, post, current float64, err error)
	closeFn func()
}

func (s *tickerSource) prices() (regular, pre, post, current float64, err error) {
	return s.fetch()
}

func (s *tickerSource) close() {
	s.closeFn()
}

func openTicker(symbol string) (quoteSource, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, err
	}

	fetch := func() (regular, pre, post, current float64, err error) {
		quote, qErr := t.Quote()
		if qErr == nil && quote != nil {
			regular, pre, post = quote.RegularMarketPrice, quote.PreMarketPrice, quote.PostMarketPrice
			if regular > 0 || pre > 0 || post > 0 {
				return regular, pre, post, 0, nil
			}
		}

		info, iErr := t.Info()
		if iErr == nil && info != nil {
			return regular, pre, post, info.CurrentPrice, nil
		}
		if qErr != nil {
			return 0, 0, 0, 0, qErr
		}
		return 0, 0, 0, 0, iErr
	}

	return &tickerSource{fetch: fetch, closeFn: func() { t.Close() }}, nil
}

// Client fetches current prices from Yahoo Finance
type Client struct {
	open func(symbol string) (quoteSource, error)
	log  zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		open: openTicker,
		log:  log.With().Str("client", "yahoo").Logger(),
	}
}

// Name identifies the provider in logs and configuration.
func (c *Client) Name() string {
	return "yahoo"
}

// FetchPrice returns the regular market price of symbol, falling back to
// pre-market, post-market and finally the info endpoint's current price.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	src, err := c.open(symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to create ticker for %s: %w", symbol, err)
	}
	defer src.close()

	regular, pre, post, current, err := src.prices()
	if err != nil {
		return 0, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}

	for _, p := range []float64{regular, pre, post, current} {
		if p > 0 {
			c.log.Debug().Str("symbol", symbol).Float64("price", p).Msg("Fetched quote")
			return p, nil
		}
	}
	return 0, fmt.Errorf("yahoo: no valid price for %s", symbol)
}
