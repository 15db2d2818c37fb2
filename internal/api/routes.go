// Package api provides route registration for the Trailmark API.
package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/trailmark/internal/middleware"
	"github.com/onnwee/trailmark/internal/session"
)

// RouterConfig carries the dependencies the route table needs.
type RouterConfig struct {
	Store        Store
	Sessions     *session.Manager
	RadiusMeters float64
	Health       *HealthHandlers

	// MetricsHandler serves GET /metrics; typically promhttp.HandlerFor.
	// Nil disables the endpoint.
	MetricsHandler http.Handler
}

// NewMux builds the ServeMux with every route of the API registered.
func NewMux(cfg RouterConfig) *http.ServeMux {
	projects := NewProjectHandlers(cfg.Store)
	locations := NewLocationHandlers(cfg.Store)
	progressH := NewProgressHandlers(cfg.Store, cfg.Sessions)
	signals := NewSignalHandlers(cfg.Store, cfg.Sessions, cfg.RadiusMeters)
	positionWS := NewPositionWebSocketHandlers(signals)

	mux := http.NewServeMux()

	mux.HandleFunc("/projects", func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		projects.ListProjects(w, r)
	})

	mux.HandleFunc("/projects/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/projects/"), "/")
		projectID, ok := parseID(parts[0])
		if !ok {
			writeNotFound(w, r)
			return
		}

		switch {
		case len(parts) == 1:
			if !requireMethod(w, r, http.MethodGet) {
				return
			}
			projects.GetProject(w, r, projectID)
		case len(parts) == 2 && parts[1] == "locations":
			if !requireMethod(w, r, http.MethodGet) {
				return
			}
			projects.GetProjectLocations(w, r, projectID)
		case len(parts) == 2 && parts[1] == "progress":
			if !requireMethod(w, r, http.MethodGet) {
				return
			}
			progressH.GetProgress(w, r, projectID)
		case len(parts) == 2 && parts[1] == "refresh":
			if !requireMethod(w, r, http.MethodPost) {
				return
			}
			progressH.RefreshVisits(w, r, projectID)
		case len(parts) == 3 && parts[1] == "signals" && parts[2] == "position":
			if !requireMethod(w, r, http.MethodPost) {
				return
			}
			signals.PositionSignal(w, r, projectID)
		case len(parts) == 3 && parts[1] == "signals" && parts[2] == "scan":
			if !requireMethod(w, r, http.MethodPost) {
				return
			}
			signals.ScanSignal(w, r, projectID)
		case len(parts) == 3 && parts[1] == "signals" && parts[2] == "ws":
			if !requireMethod(w, r, http.MethodGet) {
				return
			}
			positionWS.StreamPositionSignals(w, r, projectID)
		default:
			writeNotFound(w, r)
		}
	})

	mux.HandleFunc("/locations/", func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/locations/"), "/")
		locationID, ok := parseID(parts[0])
		if !ok || len(parts) != 1 {
			writeNotFound(w, r)
			return
		}
		locations.GetLocation(w, r, locationID)
	})

	if cfg.Health != nil {
		mux.HandleFunc("/healthz", cfg.Health.Health)
		mux.HandleFunc("/readyz", cfg.Health.Ready)
	}

	if cfg.MetricsHandler != nil {
		mux.Handle("/metrics", cfg.MetricsHandler)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			writeNotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"trailmark-api","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	return mux
}

// requireMethod enforces the HTTP method, writing a structured 405 otherwise.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return false
	}
	return true
}

// writeNotFound writes a structured 404 response.
func writeNotFound(w http.ResponseWriter, r *http.Request) {
	ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
	WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
}
