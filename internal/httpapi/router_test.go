package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/freeeve/tablebase/internal/tb"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	tbs := tb.New(tb.Config{Paths: "", Logger: zerolog.Nop()})
	t.Cleanup(tbs.Close)
	return NewRouter(zerolog.Nop(), tbs)
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestProbeRequiresFEN(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/probe", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProbeKvK(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet,
		"/v1/probe?fen=8/8/4k3/8/4K3/8/8/8%20w%20-%20-%200%201", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ProbeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.WDL != "draw" || resp.DTZ != 0 {
		t.Errorf("probe = %+v, want draw dtz 0", resp)
	}
}

func TestStats(t *testing.T) {
	h := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))

	var resp map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["tables"] != 0 {
		t.Errorf("tables = %d, want 0", resp["tables"])
	}
}
