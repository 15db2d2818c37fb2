// Package api provides HTTP handlers for the Trailmark API.
package api

import (
	"net/http"
	"sort"

	"github.com/onnwee/trailmark/internal/middleware"
	"github.com/onnwee/trailmark/internal/progress"
	"github.com/onnwee/trailmark/internal/session"
)

// ProgressHandlers holds dependencies for progress HTTP handlers.
type ProgressHandlers struct {
	store    Store
	sessions *session.Manager
}

// NewProgressHandlers creates a new ProgressHandlers instance.
func NewProgressHandlers(s Store, sessions *session.Manager) *ProgressHandlers {
	return &ProgressHandlers{store: s, sessions: sessions}
}

// ProgressResponse is the progress snapshot for one participant in one project.
type ProgressResponse struct {
	progress.Summary
	Visited            []int `json:"visited"`
	NumberParticipants int   `json:"number_participants"`
}

// RefreshResponse reports the visited set after a forced rebuild.
type RefreshResponse struct {
	Visited      []int `json:"visited"`
	VisitedCount int   `json:"visited_count"`
}

// GetProgress handles GET /projects/{id}/progress?username= - returns the
// participant's score, visited locations, and the project participant count.
// The visited set is rebuilt from the store on every call so the snapshot is
// never staler than the request.
func (h *ProgressHandlers) GetProgress(w http.ResponseWriter, r *http.Request, projectID int) {
	ctx := r.Context()

	username, ok := resolveUsername(w, r, r.URL.Query().Get("username"))
	if !ok {
		return
	}
	ctx = middleware.SetParticipant(ctx, username)

	project, err := h.store.GetProject(ctx, projectID)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	locations, err := h.store.ProjectLocations(ctx, projectID)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	sess, err := h.sessions.Session(projectID, username)
	if err != nil {
		ctx := middleware.SetErrorCode(ctx, ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "username is required")
		return
	}
	if err := sess.Refresh(ctx); err != nil {
		WriteStoreError(w, r, err)
		return
	}

	count, err := h.store.ProjectParticipantCount(ctx, projectID)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	visited := sess.VisitedSet()
	writeJSON(w, ctx, http.StatusOK, ProgressResponse{
		Summary:            progress.Summarize(project, locations, visited),
		Visited:            sortedIDs(visited),
		NumberParticipants: count,
	})
}

// RefreshVisits handles POST /projects/{id}/refresh - rebuilds the visited
// set from the store's tracking entries, fully replacing the in-memory set.
func (h *ProgressHandlers) RefreshVisits(w http.ResponseWriter, r *http.Request, projectID int) {
	ctx := r.Context()

	var req struct {
		Username string `json:"username"`
	}
	if err := decodeJSONBody(r, &req); err != nil {
		ctx := middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	username, ok := resolveUsername(w, r, req.Username)
	if !ok {
		return
	}
	ctx = middleware.SetParticipant(ctx, username)

	if _, err := h.store.GetProject(ctx, projectID); err != nil {
		WriteStoreError(w, r, err)
		return
	}

	sess, err := h.sessions.Session(projectID, username)
	if err != nil {
		ctx := middleware.SetErrorCode(ctx, ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "username is required")
		return
	}
	if err := sess.Refresh(ctx); err != nil {
		WriteStoreError(w, r, err)
		return
	}

	visited := sess.VisitedSet()
	writeJSON(w, ctx, http.StatusOK, RefreshResponse{
		Visited:      sortedIDs(visited),
		VisitedCount: len(visited),
	})
}

// sortedIDs flattens a set of IDs into a sorted slice for stable responses.
func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
