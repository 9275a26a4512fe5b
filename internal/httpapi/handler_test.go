package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"location_viewer/core-go/internal/location"
	"location_viewer/core-go/internal/metrics"
	"location_viewer/core-go/internal/render"
	"location_viewer/core-go/internal/viewer"
	"location_viewer/core-go/internal/viewmodel"
)

type fakeViewer struct {
	state   viewer.State
	startFn func(ctx context.Context) uint64
}

func (f *fakeViewer) Snapshot() viewer.State { return f.state }

func (f *fakeViewer) Start(ctx context.Context) uint64 {
	if f.startFn == nil {
		return f.state.Generation + 1
	}
	return f.startFn(ctx)
}

func newTestHandler(t *testing.T, v Viewer, opts Options) *Handler {
	t.Helper()
	r, err := render.New(render.Options{})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return NewHandler(zerolog.New(io.Discard), v, r, metrics.New(), opts)
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode body as json: %v\nbody=%s", err, rr.Body.String())
	}
	return v
}

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	h.Router().ServeHTTP(rr, req)
	return rr
}

func readyState(t *testing.T) viewer.State {
	t.Helper()
	set := location.Set{
		{ID: location.NumberID(1), Name: "Harbour", Latitude: 0, Longitude: 0},
		{ID: location.NumberID(2), Name: "Lighthouse", Latitude: 2, Longitude: 2},
	}
	vm, err := viewmodel.Build(set)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return viewer.State{
		Status:     viewer.StatusReady,
		Locations:  set,
		View:       &vm,
		Generation: 1,
		StartedAt:  time.Now().Add(-time.Second),
		LoadedAt:   time.Now(),
	}
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, &fakeViewer{}, Options{})
	rr := serve(h, http.MethodGet, "/healthz")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body)
	}
}

func TestReadyz_LoadingIs503(t *testing.T) {
	h := newTestHandler(t, &fakeViewer{state: viewer.State{Status: viewer.StatusLoading}}, Options{})
	rr := serve(h, http.MethodGet, "/readyz")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rr.Code, rr.Body.String())
	}
	errObj := decodeBody(t, rr)["error"].(map[string]any)
	if errObj["code"] != "not_ready" {
		t.Fatalf("expected not_ready, got %v", errObj["code"])
	}
}

func TestReadyz_TerminalStatesAreReady(t *testing.T) {
	for _, st := range []viewer.Status{viewer.StatusError, viewer.StatusEmpty, viewer.StatusReady} {
		h := newTestHandler(t, &fakeViewer{state: viewer.State{Status: st}}, Options{})
		rr := serve(h, http.MethodGet, "/readyz")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", st, rr.Code)
		}
	}
}

func TestStatus_Error(t *testing.T) {
	h := newTestHandler(t, &fakeViewer{state: viewer.State{
		Status:     viewer.StatusError,
		Err:        "Failed to load locations: 404",
		Generation: 3,
	}}, Options{})

	rr := serve(h, http.MethodGet, "/api/v1/status")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "error" || body["error"] != "Failed to load locations: 404" {
		t.Fatalf("unexpected body %v", body)
	}
	if body["generation"].(float64) != 3 {
		t.Fatalf("expected generation 3, got %v", body["generation"])
	}
	if _, ok := body["loaded_at"]; ok {
		t.Fatalf("expected loaded_at to be omitted")
	}
}

func TestStatus_Ready(t *testing.T) {
	h := newTestHandler(t, &fakeViewer{state: readyState(t)}, Options{})
	body := decodeBody(t, serve(h, http.MethodGet, "/api/v1/status"))
	if body["status"] != "ready" || body["count"].(float64) != 2 {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("expected error to be omitted")
	}
}

func TestListLocations_Ready(t *testing.T) {
	h := newTestHandler(t, &fakeViewer{state: readyState(t)}, Options{})
	rr := serve(h, http.MethodGet, "/api/v1/locations")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var got []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0]["name"] != "Harbour" || got[0]["id"].(float64) != 1 {
		t.Fatalf("unexpected locations %v", got)
	}
}

func TestListLocations_EmptyIsArray(t *testing.T) {
	h := newTestHandler(t, &fakeViewer{state: viewer.State{Status: viewer.StatusEmpty}}, Options{})
	rr := serve(h, http.MethodGet, "/api/v1/locations")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", rr.Body.String())
	}
}

func TestListLocations_LoadingAndError(t *testing.T) {
	h := newTestHandler(t, &fakeViewer{state: viewer.State{Status: viewer.StatusLoading}}, Options{})
	if rr := serve(h, http.MethodGet, "/api/v1/locations"); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while loading, got %d", rr.Code)
	}

	h = newTestHandler(t, &fakeViewer{state: viewer.State{
		Status: viewer.StatusError,
		Err:    "Invalid JSON structure: locations array not found",
	}}, Options{})
	rr := serve(h, http.MethodGet, "/api/v1/locations")
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rr.Code)
	}
	errObj := decodeBody(t, rr)["error"].(map[string]any)
	if errObj["code"] != "load_failed" || errObj["message"] != "Invalid JSON structure: locations array not found" {
		t.Fatalf("unexpected error %v", errObj)
	}
}

func TestReload_StartsNewMount(t *testing.T) {
	type ctxKey struct{}
	mountCtx := context.WithValue(context.Background(), ctxKey{}, "mount")

	var gotCtx context.Context
	v := &fakeViewer{startFn: func(ctx context.Context) uint64 {
		gotCtx = ctx
		return 7
	}}
	h := newTestHandler(t, v, Options{MountContext: mountCtx})

	rr := serve(h, http.MethodPost, "/api/v1/reload")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["generation"].(float64) != 7 {
		t.Fatalf("expected generation 7, got %v", body)
	}
	if gotCtx == nil || gotCtx.Value(ctxKey{}) != "mount" {
		t.Fatalf("reload must use the mount context, not the request context")
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := newTestHandler(t, &fakeViewer{}, Options{CORSOrigins: []string{"https://maps.example"}})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "https://maps.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	h.Router().ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://maps.example" {
		t.Fatalf("expected allowed origin header, got %q (status %d)", got, rr.Code)
	}
}

func TestDataDir_ServesDataset(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "locations.json"), []byte(`{"locations":[]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	h := newTestHandler(t, &fakeViewer{}, Options{DataDir: dir})

	rr := serve(h, http.MethodGet, "/data/locations.json")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"locations"`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestMetrics_RecordsRoutePattern(t *testing.T) {
	h := newTestHandler(t, &fakeViewer{state: readyState(t)}, Options{})
	router := h.Router()

	for _, target := range []string{"/api/v1/status", "/healthz"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	if !strings.Contains(body, `location_viewer_http_requests_total{method="GET",path="/api/v1/status",status="200"} 1`) {
		t.Fatalf("expected status request to be counted; body=%s", body)
	}
}
