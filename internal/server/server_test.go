package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aristath/investlog/internal/config"
	"github.com/aristath/investlog/internal/di"
	"github.com/aristath/investlog/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.Config{
		DataDir: t.TempDir(),
		Port:    3001,
		Quotes: config.QuotesConfig{
			Providers:          []string{"yahoo"},
			RetryBaseDelay:     time.Millisecond,
			InteractiveRetries: 1,
			BatchRetries:       2,
		},
		Valuation: config.ValuationConfig{
			Timezone:          "Asia/Shanghai",
			CacheCutover:      "08:00",
			RecalcStartDate:   "2025-12-03",
			PersistIncomplete: true,
		},
		Schedule: config.ScheduleConfig{
			Refresh: "0 0 8 * * *",
			Backup:  "0 30 3 * * *",
		},
		Currency: config.CurrencyConfig{
			Base:    domain.CurrencyUSD,
			Display: domain.CurrencyCNY,
		},
	}

	container, jobs, err := di.Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	return New(Config{
		Log:       zerolog.Nop(),
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   true,
		Container: container,
		Jobs:      jobs,
	})
}

func serve(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t)

	rec, _ := serve(t, s, http.MethodPost, "/api/transactions",
		`{"symbol":"AAPL","date":"2025-12-03","price":150,"shares":10}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, resp := serve(t, s, http.MethodGet, "/api/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, rec.Body.String())
	assert.Len(t, data["transactions"], 1)
	assert.Equal(t, 1.0, data["count"])

	rec, _ = serve(t, s, http.MethodPost, "/api/snapshots",
		`{"date":"2025-12-03","prices":{"AAPL":150}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = serve(t, s, http.MethodPost, "/api/profits/calculate", `{"date":"2025-12-03"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, resp["data"])

	rec, _ = serve(t, s, http.MethodGet, "/api/profits/daily/2025-12-03", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = serve(t, s, http.MethodGet, "/api/charts/prices/AAPL?start=2025-12-01&end=2025-12-05", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_SystemRoutes(t *testing.T) {
	s := newTestServer(t)
	s.systemHandlers.systemStats = func() (float64, float64) { return 0, 0 }

	rec, _ := serve(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, resp := serve(t, s, http.MethodGet, "/api/system/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, resp["jobs"], "daily_refresh")
	assert.Contains(t, resp["jobs"], "check_core_databases")

	rec, _ = serve(t, s, http.MethodPost, "/api/system/jobs/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = serve(t, s, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
