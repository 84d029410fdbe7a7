package services

import (
	"context"

	"github.com/aristath/investlog/internal/domain"
	"github.com/aristath/investlog/internal/modules/profit"
	"github.com/aristath/investlog/pkg/formulas"
	"github.com/rs/zerolog"
)

// RateProvider returns the exchange rate from one currency to another.
type RateProvider interface {
	GetRate(ctx context.Context, from, to string) (float64, error)
}

// Rate is the conversion applied to a response. When no rate could be
// obtained Currency stays the base currency and Rate is 1.
type Rate struct {
	From     domain.Currency `json:"from"`
	Currency domain.Currency `json:"currency"`
	Rate     float64         `json:"rate"`
}

// ConversionService converts base-currency amounts into the display currency
type ConversionService struct {
	rates   RateProvider
	base    domain.Currency
	display domain.Currency
	log     zerolog.Logger
}

// NewConversionService creates a new display currency conversion service
func NewConversionService(
	rates RateProvider,
	base, display domain.Currency,
	log zerolog.Logger,
) *ConversionService {
	return &ConversionService{
		rates:   rates,
		base:    base,
		display: display,
		log:     log.With().Str("service", "currency_conversion").Logger(),
	}
}

// Rate resolves the base → display rate. Failures fall back to showing
// base-currency amounts.
func (s *ConversionService) Rate(ctx context.Context) Rate {
	identity := Rate{From: s.base, Currency: s.base, Rate: 1}
	if s.base == s.display || s.display == "" {
		return identity
	}

	if s.rates == nil {
		s.log.Warn().
			Str("from", string(s.base)).
			Str("to", string(s.display)).
			Msg("Exchange rate provider not available, showing base currency")
		return identity
	}

	rate, err := s.rates.GetRate(ctx, string(s.base), string(s.display))
	if err != nil || rate <= 0 {
		s.log.Warn().
			Err(err).
			Str("from", string(s.base)).
			Str("to", string(s.display)).
			Msg("Failed to get exchange rate, showing base currency")
		return identity
	}

	return Rate{From: s.base, Currency: s.display, Rate: rate}
}

// ConvertPositions returns copies of positions with cost figures in the
// display currency. Share counts are unchanged.
func (s *ConversionService) ConvertPositions(ctx context.Context, positions []domain.Position) ([]domain.Position, Rate) {
	rate := s.Rate(ctx)

	converted := make([]domain.Position, len(positions))
	for i, p := range positions {
		p.TotalCost = formulas.Round2(formulas.Product(p.TotalCost, rate.Rate))
		p.AvgPrice = formulas.RoundTo(formulas.Product(p.AvgPrice, rate.Rate), 4)
		converted[i] = p
	}

	s.log.Debug().
		Int("positions", len(positions)).
		Str("currency", string(rate.Currency)).
		Float64("rate", rate.Rate).
		Msg("Converted positions")

	return converted, rate
}

// ConvertSummary returns a copy of a period summary with amounts in the
// display currency. The profit rate is currency independent.
func (s *ConversionService) ConvertSummary(ctx context.Context, summary profit.Summary) (profit.Summary, Rate) {
	rate := s.Rate(ctx)

	summary.Profit = formulas.Round2(formulas.Product(summary.Profit, rate.Rate))
	summary.TotalValue = formulas.Round2(formulas.Product(summary.TotalValue, rate.Rate))
	summary.StartValue = formulas.Round2(formulas.Product(summary.StartValue, rate.Rate))
	return summary, rate
}
