package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRoutes_MethodNotAllowed(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	mux := newTestMux(f)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/projects"},
		{http.MethodDelete, "/projects/1"},
		{http.MethodPost, "/projects/1/locations"},
		{http.MethodGet, "/projects/1/refresh"},
		{http.MethodGet, "/projects/1/signals/position"},
		{http.MethodGet, "/projects/1/signals/scan"},
		{http.MethodPost, "/locations/1"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want 405", rr.Code)
			}
			if resp := decodeErrorResponse(t, rr); resp.Error.Code != ErrCodeBadRequest {
				t.Errorf("error code = %q", resp.Error.Code)
			}
		})
	}
}

func TestRoutes_UnknownPaths(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	mux := newTestMux(f)

	paths := []string{
		"/nope",
		"/projects/abc",
		"/projects/-1",
		"/projects/1/unknown",
		"/projects/1/signals/teleport",
		"/locations/abc",
		"/locations/1/extra",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
			if rr.Code != http.StatusNotFound {
				t.Fatalf("status = %d, want 404", rr.Code)
			}
			if resp := decodeErrorResponse(t, rr); resp.Error.Code != ErrCodeNotFound {
				t.Errorf("error code = %q", resp.Error.Code)
			}
		})
	}
}

func TestRoutes_Root(t *testing.T) {
	mux := newTestMux(newFakeStore())

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var info map[string]string
	decodeBody(t, rr, &info)
	if info["service"] != "trailmark-api" {
		t.Errorf("service = %q", info["service"])
	}
	if info["version"] == "" {
		t.Error("expected a version field")
	}
}

func TestRoutes_ErrorEnvelopeShape(t *testing.T) {
	mux := newTestMux(newFakeStore())

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	resp := decodeErrorResponse(t, rr)
	if resp.Error.Code == "" || resp.Error.Message == "" {
		t.Errorf("incomplete error envelope: %+v", resp)
	}
}

func TestRoutes_MetricsEndpointOptional(t *testing.T) {
	f := newFakeStore()

	withMetrics := NewMux(RouterConfig{
		Store:          f,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	})
	rr := httptest.NewRecorder()
	withMetrics.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with a metrics handler", rr.Code)
	}

	withoutMetrics := NewMux(RouterConfig{Store: f})
	rr = httptest.NewRecorder()
	withoutMetrics.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a metrics handler", rr.Code)
	}
}
