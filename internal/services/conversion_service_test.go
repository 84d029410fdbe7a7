package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/aristath/investlog/internal/domain"
	"github.com/aristath/investlog/internal/modules/profit"
	"github.com/aristath/investlog/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRateProvider for testing
type mockRateProvider struct {
	rates map[string]float64 // "FROM:TO" -> rate
	calls int
}

func (m *mockRateProvider) GetRate(_ context.Context, from, to string) (float64, error) {
	m.calls++
	key := from + ":" + to
	if rate, ok := m.rates[key]; ok {
		return rate, nil
	}
	return 0, fmt.Errorf("rate not found for %s", key)
}

func TestConvertPositions(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	rates := &mockRateProvider{rates: map[string]float64{"USD:CNY": 7.1}}
	svc := NewConversionService(rates, domain.CurrencyUSD, domain.CurrencyCNY, log)

	positions := []domain.Position{
		{Symbol: "AAPL", TotalShares: 10, TotalCost: 1500, AvgPrice: 150},
	}

	converted, rate := svc.ConvertPositions(context.Background(), positions)
	require.Len(t, converted, 1)

	assert.Equal(t, domain.CurrencyCNY, rate.Currency)
	assert.Equal(t, 7.1, rate.Rate)
	assert.Equal(t, 10650.0, converted[0].TotalCost)
	assert.Equal(t, 1065.0, converted[0].AvgPrice)
	assert.Equal(t, 10.0, converted[0].TotalShares)
	assert.Equal(t, 1500.0, positions[0].TotalCost, "input is not modified")
}

func TestConvert_SameCurrencySkipsLookup(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	rates := &mockRateProvider{}
	svc := NewConversionService(rates, domain.CurrencyUSD, domain.CurrencyUSD, log)

	rate := svc.Rate(context.Background())
	assert.Equal(t, 1.0, rate.Rate)
	assert.Equal(t, 0, rates.calls)
}

func TestConvert_FallsBackToBaseCurrency(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})

	for name, provider := range map[string]RateProvider{
		"provider error": &mockRateProvider{},
		"no provider":    nil,
	} {
		t.Run(name, func(t *testing.T) {
			svc := NewConversionService(provider, domain.CurrencyUSD, domain.CurrencyCNY, log)

			summary, rate := svc.ConvertSummary(context.Background(), profit.Summary{Profit: 100, TotalValue: 1600})
			assert.Equal(t, domain.CurrencyUSD, rate.Currency)
			assert.Equal(t, 1.0, rate.Rate)
			assert.Equal(t, 100.0, summary.Profit)
		})
	}
}

func TestConvertSummary(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	rates := &mockRateProvider{rates: map[string]float64{"USD:EUR": 0.9}}
	svc := NewConversionService(rates, domain.CurrencyUSD, domain.CurrencyEUR, log)

	in := profit.Summary{Period: "2025-12", Profit: 100, ProfitRate: 6.67, TotalValue: 1600, StartValue: 1500, Days: 2}
	out, _ := svc.ConvertSummary(context.Background(), in)

	assert.Equal(t, 90.0, out.Profit)
	assert.Equal(t, 1440.0, out.TotalValue)
	assert.Equal(t, 1350.0, out.StartValue)
	assert.Equal(t, 6.67, out.ProfitRate)
	assert.Equal(t, 2, out.Days)
}
