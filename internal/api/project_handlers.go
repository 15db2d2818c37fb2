// Package api provides HTTP handlers for the Trailmark API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/onnwee/trailmark/internal/middleware"
	"github.com/onnwee/trailmark/internal/store"
	"github.com/onnwee/trailmark/internal/validate"
)

// Store is the slice of the store client the read handlers need. The
// concrete implementation is *store.Client; tests substitute an in-memory
// fake.
type Store interface {
	ListProjects(ctx context.Context) ([]store.Project, error)
	GetProject(ctx context.Context, id int) (store.Project, error)
	ProjectLocations(ctx context.Context, projectID int) ([]store.Location, error)
	GetLocation(ctx context.Context, id int) (store.Location, error)
	ProjectParticipantCount(ctx context.Context, projectID int) (int, error)
	LocationParticipantCount(ctx context.Context, locationID int) (int, error)
}

// ProjectHandlers holds dependencies for project HTTP handlers.
type ProjectHandlers struct {
	store Store
}

// NewProjectHandlers creates a new ProjectHandlers instance.
func NewProjectHandlers(s Store) *ProjectHandlers {
	return &ProjectHandlers{store: s}
}

// ProjectResponse is a project together with its derived participant count.
type ProjectResponse struct {
	store.Project
	NumberParticipants int `json:"number_participants"`
}

// ListProjects handles GET /projects - lists published projects, each with
// its distinct-participant count.
func (h *ProjectHandlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projects, err := h.store.ListProjects(ctx)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	// Unpublished projects are authoring drafts; participants never see them.
	published := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		if !p.IsPublished {
			continue
		}
		count, err := h.store.ProjectParticipantCount(ctx, p.ID)
		if err != nil {
			WriteStoreError(w, r, err)
			return
		}
		published = append(published, ProjectResponse{Project: p, NumberParticipants: count})
	}

	writeJSON(w, ctx, http.StatusOK, published)
}

// GetProject handles GET /projects/{id} - returns one published project with
// its distinct-participant count.
func (h *ProjectHandlers) GetProject(w http.ResponseWriter, r *http.Request, projectID int) {
	ctx := r.Context()

	project, err := h.store.GetProject(ctx, projectID)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	if !project.IsPublished {
		ctx := middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Project not found")
		return
	}

	count, err := h.store.ProjectParticipantCount(ctx, projectID)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	writeJSON(w, ctx, http.StatusOK, ProjectResponse{
		Project:            project,
		NumberParticipants: count,
	})
}

// GetProjectLocations handles GET /projects/{id}/locations - lists the
// locations belonging to one project, each with its distinct-participant
// count. Stored positions pass through verbatim.
func (h *ProjectHandlers) GetProjectLocations(w http.ResponseWriter, r *http.Request, projectID int) {
	ctx := r.Context()

	// A location listing for a missing project is a 404, not an empty list.
	if _, err := h.store.GetProject(ctx, projectID); err != nil {
		WriteStoreError(w, r, err)
		return
	}

	locations, err := h.store.ProjectLocations(ctx, projectID)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	out := make([]LocationResponse, 0, len(locations))
	for _, l := range locations {
		count, err := h.store.LocationParticipantCount(ctx, l.ID)
		if err != nil {
			WriteStoreError(w, r, err)
			return
		}
		out = append(out, LocationResponse{Location: l, NumberParticipants: count})
	}

	writeJSON(w, ctx, http.StatusOK, out)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, ctx context.Context, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// decodeJSONBody decodes the request body into v.
func decodeJSONBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// parseID parses a positive integer path segment.
func parseID(s string) (int, bool) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// resolveUsername validates the participant username and stamps it onto the
// request context for the logging middleware. A missing username is an auth
// failure; a malformed one is a validation failure. Returns "" and false
// after writing the error response.
func resolveUsername(w http.ResponseWriter, r *http.Request, raw string) (string, bool) {
	username, err := validate.Username(raw)
	if err != nil {
		ctx := r.Context()
		if errors.Is(err, validate.ErrEmpty) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeAuthRequired)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "username is required")
		} else {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		}
		return "", false
	}

	ctx := middleware.SetParticipant(r.Context(), username)
	middleware.UpdateResponseContext(w, ctx)
	return username, true
}
