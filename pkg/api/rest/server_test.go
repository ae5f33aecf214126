package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/kmdouglass/kpal/pkg/core"
)

func newTestServer(t *testing.T) (*Server, *mux.Router) {
	t.Helper()
	engine, err := core.NewEngine(core.DefaultConfig())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { engine.Stop() })

	s := NewServer(engine)
	r := mux.NewRouter()
	s.registerRoutes(r)
	return s, r
}

func TestHandleHealth(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}
}

func TestHandleListLibrariesEmpty(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v0/libraries", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v0/libraries = %d, want 200", rec.Code)
	}
	var libs []libraryDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &libs); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(libs) != 0 {
		t.Errorf("libraries = %v, want empty", libs)
	}
}

func TestHandleGetPeripheralNotFound(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v0/peripherals/9999", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /api/v0/peripherals/9999 = %d, want 404", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Message == "" {
		t.Error("error response has empty message")
	}
}

func TestHandleCreatePeripheralUnknownLibrary(t *testing.T) {
	_, r := newTestServer(t)

	body := `{"name":"thermostat","library_id":42}`
	req := httptest.NewRequest(http.MethodPost, "/api/v0/peripherals", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound && rec.Code != http.StatusInternalServerError {
		t.Errorf("POST /api/v0/peripherals with unknown library = %d, want 404 or 500", rec.Code)
	}
}
