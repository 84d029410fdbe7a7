package exchangerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/investlog/internal/clientdata"
	testingpkg "github.com/aristath/investlog/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/USD", r.URL.Path)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newCacheRepo(t *testing.T, now *time.Time) *clientdata.Repository {
	db, cleanup := testingpkg.NewTestDB(t, "cache")
	t.Cleanup(cleanup)
	return clientdata.NewRepository(db.Conn()).WithClock(func() time.Time { return *now })
}

func TestGetRate_SameCurrency(t *testing.T) {
	c := NewClient(nil, zerolog.Nop())
	rate, err := c.GetRate(context.Background(), "USD", "USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, rate)
}

func TestGetRate_FetchesAndCaches(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, `{"result":"success","rates":{"CNY":7.12,"EUR":0.92}}`)
	now := time.Now()
	c := NewClient(newCacheRepo(t, &now), zerolog.Nop()).WithBaseURL(srv.URL)

	rate, err := c.GetRate(context.Background(), "USD", "CNY")
	require.NoError(t, err)
	assert.Equal(t, 7.12, rate)

	rate, err = c.GetRate(context.Background(), "USD", "CNY")
	require.NoError(t, err)
	assert.Equal(t, 7.12, rate)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls), "second call should be served from cache")
}

func TestGetRate_StaleFallback(t *testing.T) {
	ok, _ := newTestServer(t, http.StatusOK, `{"result":"success","rates":{"CNY":7.0}}`)
	now := time.Now()
	repo := newCacheRepo(t, &now)

	_, err := NewClient(repo, zerolog.Nop()).WithBaseURL(ok.URL).GetRate(context.Background(), "USD", "CNY")
	require.NoError(t, err)

	now = now.Add(2 * clientdata.TTLExchangeRate)

	broken, _ := newTestServer(t, http.StatusInternalServerError, `oops`)
	rate, err := NewClient(repo, zerolog.Nop()).WithBaseURL(broken.URL).GetRate(context.Background(), "USD", "CNY")
	require.NoError(t, err)
	assert.Equal(t, 7.0, rate)
}

func TestGetRate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusBadGateway, ""},
		{"bad json", http.StatusOK, "{"},
		{"api error result", http.StatusOK, `{"result":"error"}`},
		{"missing currency", http.StatusOK, `{"result":"success","rates":{"EUR":0.9}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			_, err := NewClient(nil, zerolog.Nop()).WithBaseURL(srv.URL).GetRate(context.Background(), "USD", "CNY")
			assert.Error(t, err)
		})
	}
}
