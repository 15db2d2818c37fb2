// Package api provides HTTP handlers for position and scan signals.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/trailmark/internal/geo"
	"github.com/onnwee/trailmark/internal/middleware"
	"github.com/onnwee/trailmark/internal/scan"
	"github.com/onnwee/trailmark/internal/session"
	"github.com/onnwee/trailmark/internal/store"
	"github.com/onnwee/trailmark/internal/visit"
)

// SignalHandlers holds dependencies for the signal HTTP handlers.
type SignalHandlers struct {
	store        Store
	sessions     *session.Manager
	radiusMeters float64
}

// NewSignalHandlers creates a new SignalHandlers instance. A non-positive
// radius falls back to the default geofence radius.
func NewSignalHandlers(s Store, sessions *session.Manager, radiusMeters float64) *SignalHandlers {
	if radiusMeters <= 0 {
		radiusMeters = geo.DefaultRadiusMeters
	}
	return &SignalHandlers{store: s, sessions: sessions, radiusMeters: radiusMeters}
}

// PositionSignalRequest is the request body for a position signal.
type PositionSignalRequest struct {
	Username string  `json:"username"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

// PositionSignalResponse reports one geofence evaluation pass.
type PositionSignalResponse struct {
	// InRange holds the location IDs within the geofence radius, whether or
	// not a visit was recorded for them.
	InRange []int `json:"in_range"`

	// Recorded holds the location IDs whose visit was recorded by this signal.
	Recorded []int `json:"recorded"`

	// Malformed holds the location IDs skipped because their stored position
	// failed to parse.
	Malformed []int `json:"malformed,omitempty"`

	VisitedCount int `json:"visited_count"`
}

// ScanSignalRequest is the request body for a QR scan signal.
type ScanSignalRequest struct {
	Username string `json:"username"`
	Payload  string `json:"payload"`
}

// ScanSignalResponse reports the outcome of one scan signal.
type ScanSignalResponse struct {
	LocationID   int  `json:"location_id"`
	Recorded     bool `json:"recorded"`
	VisitedCount int  `json:"visited_count"`
}

// PositionSignal handles POST /projects/{id}/signals/position - evaluates the
// participant's position against every location of the project and records
// visits for the in-range, auto-eligible ones.
func (h *SignalHandlers) PositionSignal(w http.ResponseWriter, r *http.Request, projectID int) {
	ctx := r.Context()

	var req PositionSignalRequest
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

	if errMsg := validateCoordinates(req.Lat, req.Lon); errMsg != "" {
		ctx := middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	if _, err := h.store.GetProject(ctx, projectID); err != nil {
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

	resp := h.evaluatePosition(ctx, sess, locations, geo.Point{Lat: req.Lat, Lon: req.Lon})
	writeJSON(w, ctx, http.StatusOK, resp)
}

// evaluatePosition runs one geofence pass and records visits for the
// in-range, auto-eligible locations. A gateway failure on one location does
// not abort the pass: the location stays unvisited and the next natural
// signal retries it.
func (h *SignalHandlers) evaluatePosition(ctx context.Context, sess *visit.Session, locations []store.Location, user geo.Point) PositionSignalResponse {
	candidates := make([]geo.Positioned, len(locations))
	byID := make(map[int]store.Location, len(locations))
	for i, l := range locations {
		candidates[i] = l
		byID[l.ID] = l
	}

	fence := geo.InRange(user, candidates, h.radiusMeters)

	resp := PositionSignalResponse{
		InRange:   fence.InRange,
		Recorded:  []int{},
		Malformed: fence.Malformed,
	}
	if resp.InRange == nil {
		resp.InRange = []int{}
	}

	for _, id := range fence.InRange {
		recorded, err := sess.RecordVisit(ctx, byID[id], visit.OriginGeofence)
		if err != nil {
			if errors.Is(err, visit.ErrNotAutoEligible) {
				// Scan-only location inside the fence: expected, not an error.
				continue
			}
			slog.WarnContext(ctx, "failed to record visit",
				"location_id", id,
				"project_id", sess.ProjectID(),
				"error", err,
			)
			continue
		}
		if recorded {
			resp.Recorded = append(resp.Recorded, id)
		}
	}

	resp.VisitedCount = sess.VisitedCount()
	return resp
}

// ScanSignal handles POST /projects/{id}/signals/scan - resolves a scanned
// QR payload to a location and records the visit. The scan itself is the
// authorization: trigger eligibility is not consulted.
func (h *SignalHandlers) ScanSignal(w http.ResponseWriter, r *http.Request, projectID int) {
	ctx := r.Context()

	var req ScanSignalRequest
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

	locationID, err := scan.LocationID(req.Payload)
	if err != nil {
		ctx := middleware.SetErrorCode(ctx, ErrCodeInvalidCode)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCode, "Scanned code does not name a location")
		return
	}

	location, err := h.store.GetLocation(ctx, locationID)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}
	if location.ProjectID != projectID {
		// The code belongs to some other project's location.
		ctx := middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Location not found in this project")
		return
	}

	sess, err := h.sessions.Session(projectID, username)
	if err != nil {
		ctx := middleware.SetErrorCode(ctx, ErrCodeAuthRequired)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthRequired, "username is required")
		return
	}

	recorded, err := sess.RecordVisit(ctx, location, visit.OriginScan)
	if err != nil {
		WriteStoreError(w, r, err)
		return
	}

	writeJSON(w, ctx, http.StatusOK, ScanSignalResponse{
		LocationID:   locationID,
		Recorded:     recorded,
		VisitedCount: sess.VisitedCount(),
	})
}

// validateCoordinates validates a WGS84 coordinate pair.
// Returns error message if validation fails, empty string if valid.
func validateCoordinates(lat, lon float64) string {
	if lat < -90 || lat > 90 {
		return "lat must be between -90 and 90"
	}
	if lon < -180 || lon > 180 {
		return "lon must be between -180 and 180"
	}
	return ""
}
