package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/investlog/internal/database"
	"github.com/aristath/investlog/internal/modules/snapshots"
	testingpkg "github.com/aristath/investlog/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) (chi.Router, *database.DB) {
	db, cleanup := testingpkg.NewTestDB(t, database.NameHistory)
	t.Cleanup(cleanup)

	repo := snapshots.NewRepository(db.Conn(), zerolog.Nop())
	router := chi.NewRouter()
	NewHandler(repo, zerolog.Nop()).RegisterRoutes(router)
	return router, db
}

func do(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func TestSaveAndGetByDate(t *testing.T) {
	router, _ := setupRouter(t)

	w, resp := do(t, router, "POST", "/snapshots",
		`{"date":"2025-12-04","prices":{"aapl":160,"MSFT":400.5}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), resp["data"].(map[string]interface{})["saved"])

	// Second write of the same date replaces the price.
	w, _ = do(t, router, "POST", "/snapshots", `{"date":"2025-12-04","prices":{"AAPL":161}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, router, "GET", "/snapshots/2025-12-04", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["count"])
	prices := data["prices"].(map[string]interface{})
	assert.Equal(t, 161.0, prices["AAPL"])
	assert.Equal(t, 400.5, prices["MSFT"])

	_, resp = do(t, router, "GET", "/snapshots/2025-12-05", "")
	assert.Equal(t, float64(0), resp["data"].(map[string]interface{})["count"])
}

func TestSaveSnapshots_Invalid(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{`},
		{"bad date", `{"date":"2025-13-01","prices":{"AAPL":1}}`},
		{"no prices", `{"date":"2025-12-04","prices":{}}`},
		{"negative price", `{"date":"2025-12-04","prices":{"AAPL":-1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := do(t, router, "POST", "/snapshots", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	w, _ := do(t, router, "GET", "/snapshots/yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRange(t *testing.T) {
	router, db := setupRouter(t)
	testingpkg.SeedSnapshot(t, db, "AAPL", "2025-12-03", 150)
	testingpkg.SeedSnapshot(t, db, "AAPL", "2025-12-04", 160)
	testingpkg.SeedSnapshot(t, db, "AAPL", "2025-12-08", 158)
	testingpkg.SeedSnapshot(t, db, "MSFT", "2025-12-04", 400)

	w, resp := do(t, router, "GET", "/snapshots/range/aapl?start=2025-12-04&end=2025-12-31", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].(map[string]interface{})
	require.Equal(t, float64(2), data["count"])
	snaps := data["snapshots"].([]interface{})
	assert.Equal(t, "2025-12-04", snaps[0].(map[string]interface{})["date"])
	assert.Equal(t, "2025-12-08", snaps[1].(map[string]interface{})["date"])

	w, _ = do(t, router, "GET", "/snapshots/range/AAPL?start=2025-12-31&end=2025-12-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, router, "GET", "/snapshots/range/AAPL", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
