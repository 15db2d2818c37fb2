// Package api provides HTTP handlers for the Trailmark API.
package api

import (
	"net/http"

	"github.com/onnwee/trailmark/internal/store"
)

// LocationHandlers holds dependencies for location HTTP handlers.
type LocationHandlers struct {
	store Store
}

// NewLocationHandlers creates a new LocationHandlers instance.
func NewLocationHandlers(s Store) *LocationHandlers {
	return &LocationHandlers{store: s}
}

// LocationResponse is a location together with its derived participant count.
type LocationResponse struct {
	store.Location
	NumberParticipants int `json:"number_participants"`
}

// GetLocation handles GET /locations/{id} - returns one location with its
// distinct-participant count.
func (h *LocationHandlers) GetLocation(w http.ResponseWriter, r *http.Request, locationID int) {
	ctx := r.Context()

	location, err := h.store.GetLocation(ctx, locationID)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	count, err := h.store.LocationParticipantCount(ctx, locationID)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	writeJSON(w, ctx, http.StatusOK, LocationResponse{
		Location:           location,
		NumberParticipants: count,
	})
}
