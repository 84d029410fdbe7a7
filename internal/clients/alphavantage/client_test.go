package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ibmQuote = `{
	"Global Quote": {
		"01. symbol": "IBM",
		"02. open": "185.00",
		"03. high": "186.50",
		"04. low": "184.50",
		"05. price": "186.20",
		"06. volume": "3456789",
		"07. latest trading day": "2024-01-15",
		"08. previous close": "185.00",
		"09. change": "1.20",
		"10. change percent": "0.65%"
	}
}`

func TestNewClient(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	assert.Equal(t, "test-key", client.apiKey)
	assert.Equal(t, "alphavantage", client.Name())
	assert.Equal(t, 25, client.GetRemainingRequests())
}

func TestRateLimiting(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	for i := 0; i < 25; i++ {
		assert.Equal(t, 25-i, client.GetRemainingRequests())
		require.NoError(t, client.checkRateLimit())
	}

	err := client.checkRateLimit()
	assert.IsType(t, ErrRateLimitExceeded{}, err)

	client.ResetDailyCounter()
	assert.Equal(t, 25, client.GetRemainingRequests())
}

func TestParseFloat64(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"123.45", 123.45},
		{"0", 0},
		{"None", 0},
		{"", 0},
		{"null", 0},
		{"-", 0},
		{"50.5%", 50.5},
		{"invalid", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseFloat64(tt.input))
		})
	}
}

func TestParseGlobalQuote(t *testing.T) {
	quote, err := parseGlobalQuote([]byte(ibmQuote))
	require.NoError(t, err)

	assert.Equal(t, "IBM", quote.Symbol)
	assert.Equal(t, 185.0, quote.Open)
	assert.Equal(t, 186.5, quote.High)
	assert.Equal(t, 184.5, quote.Low)
	assert.Equal(t, 186.2, quote.Price)
	assert.Equal(t, int64(3456789), quote.Volume)
	assert.Equal(t, "2024-01-15", quote.LatestTradingDay)
	assert.Equal(t, 185.0, quote.PreviousClose)
	assert.Equal(t, 1.2, quote.Change)
	assert.Equal(t, 0.65, quote.ChangePercent)
}

func TestAPIErrorDetection(t *testing.T) {
	client := NewClient("test-key", zerolog.Nop())

	tests := []struct {
		name      string
		body      string
		errorType error
	}{
		{"rate limit note", `{"Note": "API call frequency is limited"}`, ErrRateLimitExceeded{}},
		{"thank you message", `Thank you for using Alpha Vantage!`, ErrRateLimitExceeded{}},
		{"invalid key", `{"Information": "The demo API key is for demo purposes only"}`, ErrInvalidAPIKey{}},
		{"error message", `{"Error Message": "Invalid API call"}`, nil},
		{"valid response", `{"Global Quote": {}}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.checkAPIError([]byte(tt.body))
			switch {
			case tt.errorType != nil:
				assert.IsType(t, tt.errorType, err)
			case tt.name == "valid response":
				assert.NoError(t, err)
			default:
				assert.Error(t, err)
			}
		})
	}
}

func TestErrorTypes(t *testing.T) {
	assert.Contains(t, ErrRateLimitExceeded{}.Error(), "rate limit")
	assert.Contains(t, ErrInvalidAPIKey{}.Error(), "invalid")
	assert.Contains(t, ErrSymbolNotFound{Symbol: "XYZ"}.Error(), "XYZ")
}

func TestNextMidnightUTC(t *testing.T) {
	midnight := nextMidnightUTC()

	assert.True(t, midnight.After(time.Now().UTC()))
	assert.Equal(t, 0, midnight.Hour())
	assert.Equal(t, 0, midnight.Minute())
}

func TestFetchPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		switch r.URL.Query().Get("symbol") {
		case "IBM":
			_, _ = w.Write([]byte(ibmQuote))
		default:
			_, _ = w.Write([]byte(`{"Global Quote": {}}`))
		}
	}))
	defer srv.Close()

	client := NewClient("test-key", zerolog.Nop()).WithBaseURL(srv.URL)

	price, err := client.FetchPrice(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, 186.2, price)

	_, err = client.FetchPrice(context.Background(), "NOPE")
	assert.IsType(t, ErrSymbolNotFound{}, err)

	assert.Equal(t, 23, client.GetRemainingRequests())
}
