// Package domain provides core domain models and types.
package domain

import "time"

// Currency represents an ISO currency code
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCNY Currency = "CNY"
	CurrencyEUR Currency = "EUR"
)

// Instrument is a tradeable symbol. It is created implicitly by the first
// transaction that references it.
type Instrument struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Transaction is a single buy of an instrument.
// Total cost is always Price × Shares and is never stored.
type Transaction struct {
	ID        int64     `json:"id"`
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Price     float64   `json:"price"`
	Shares    float64   `json:"shares"`
	CreatedAt time.Time `json:"created_at"`
}

// Total returns price × shares
func (t Transaction) Total() float64 {
	return t.Price * t.Shares
}

// TransactionInput is the payload for creating or updating a transaction.
// Either Shares or Total must be set; Total is converted to shares at Price.
type TransactionInput struct {
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Date   string  `json:"date"`
	Price  float64 `json:"price"`
	Shares float64 `json:"shares,omitempty"`
	Total  float64 `json:"total,omitempty"`
}

// Position is the aggregated holding of one symbol across all transactions.
type Position struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	TotalShares      float64 `json:"total_shares"`
	TotalCost        float64 `json:"total_cost"`
	AvgPrice         float64 `json:"avg_price"`
	TransactionCount int     `json:"transaction_count"`
}

// PriceSnapshot is the closing price recorded for a symbol on a date.
type PriceSnapshot struct {
	Symbol    string    `json:"symbol"`
	Date      string    `json:"date"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceCacheEntry is the most recently fetched price of a symbol.
type PriceCacheEntry struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DailyProfit is the stored profit record of one calendar date.
type DailyProfit struct {
	Date           string    `json:"date"`
	Profit         float64   `json:"profit"`
	ProfitRate     float64   `json:"profit_rate"`
	TotalValue     float64   `json:"total_value"`
	IsMarketClosed bool      `json:"is_market_closed"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BatchItemResult reports the outcome of one item of a batch operation.
type BatchItemResult struct {
	Key     string  `json:"key"`
	Success bool    `json:"success"`
	Price   float64 `json:"price,omitempty"`
	ID      int64   `json:"id,omitempty"`
	Error   string  `json:"error,omitempty"`
}
