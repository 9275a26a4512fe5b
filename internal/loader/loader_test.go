package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"location_viewer/core-go/internal/location"
)

const sampleDoc = `{"locations":[
	{"id":2,"name":"Second","latitude":2,"longitude":2},
	{"id":1,"name":"First","latitude":0,"longitude":0}
]}`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func mustNew(t *testing.T, opts Options) *Loader {
	t.Helper()
	l, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestLoad_HTTP_OK(t *testing.T) {
	srv := serve(t, http.StatusOK, sampleDoc)
	l := mustNew(t, Options{Source: srv.URL + "/data/locations.json"})

	set, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set) != 2 || set[0].Name != "First" {
		t.Fatalf("expected sorted set, got %+v", set)
	}
}

func TestLoad_HTTP_NotFound(t *testing.T) {
	srv := serve(t, http.StatusNotFound, "missing")
	l := mustNew(t, Options{Source: srv.URL})

	_, err := l.Load(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != "Failed to load locations: 404" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	var te *location.TransportError
	if !errors.As(err, &te) || te.Status != http.StatusNotFound {
		t.Fatalf("expected TransportError with status 404, got %T %v", err, err)
	}
}

func TestLoad_HTTP_InvalidStructure(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"locations":{"a":1}}`)
	l := mustNew(t, Options{Source: srv.URL})

	_, err := l.Load(context.Background())
	if err == nil || err.Error() != "Invalid JSON structure: locations array not found" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoad_HTTP_Malformed(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"locations":[`)
	l := mustNew(t, Options{Source: srv.URL})

	_, err := l.Load(context.Background())
	var pe *location.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %T %v", err, err)
	}
}

func TestLoad_HTTP_Cancelled(t *testing.T) {
	srv := serve(t, http.StatusOK, sampleDoc)
	l := mustNew(t, Options{Source: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.Load(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLoad_File_OK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.json")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, src := range []string{path, "file://" + path} {
		l := mustNew(t, Options{Source: src})
		set, err := l.Load(context.Background())
		if err != nil {
			t.Fatalf("source %q: unexpected error: %v", src, err)
		}
		if len(set) != 2 {
			t.Fatalf("source %q: expected 2 records, got %d", src, len(set))
		}
	}
}

func TestLoad_File_Missing(t *testing.T) {
	l := mustNew(t, Options{Source: filepath.Join(t.TempDir(), "nope.json")})

	_, err := l.Load(context.Background())
	if err == nil || err.Error() != "Failed to load locations: 404" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoad_File_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.json")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := mustNew(t, Options{Source: path, MaxBytes: 16})

	_, err := l.Load(context.Background())
	var te *location.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %T %v", err, err)
	}
	if !strings.Contains(err.Error(), "exceeds 16 bytes") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNew_DefaultsAndSchemes(t *testing.T) {
	l := mustNew(t, Options{})
	if l.Source() != DefaultSource {
		t.Fatalf("expected default source, got %q", l.Source())
	}
	if _, err := New(Options{Source: "ftp://example.com/locations.json"}); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}
