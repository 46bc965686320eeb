package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fsilva7456/commlink/internal/config"
	"github.com/fsilva7456/commlink/internal/store"
	"github.com/fsilva7456/commlink/internal/types"
)

// newTestServer wires a server over the deterministic synthetic
// fixture set.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Defaults()
	cfg.Mode = config.ModeSynthetic
	return newWithStore(&cfg, store.NewSynthetic(cfg.SyntheticSeed))
}

// doJSON issues a request against the server's handler and decodes the
// JSON response into out (when out is non-nil).
func doJSON(t *testing.T, s *Server, method, path string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out),
			"response body: %s", rec.Body.String())
	}
	return rec
}

// fixtureRun returns the first seeded run with the given status.
func fixtureRun(t *testing.T, s *Server, status types.RunStatus) types.Run {
	t.Helper()
	runs, err := s.store.ListRuns(context.Background(), store.RunFilters{Status: status, Limit: 1})
	require.NoError(t, err)
	require.NotEmpty(t, runs, "no fixture run with status %s", status)
	return runs[0]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	var resp map[string]string
	rec := doJSON(t, s, http.MethodGet, "/health", nil, &resp)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "synthetic", resp["mode"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/runs", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestInvalidRunID(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/runs/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRunIs404(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/runs/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
