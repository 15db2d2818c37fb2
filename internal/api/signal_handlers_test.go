package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/onnwee/trailmark/internal/store"
	"github.com/onnwee/trailmark/internal/visit"
)

// seedGeofenceLocation plants a geofence-triggered location at the given
// coordinates, encoded the way the store holds positions.
func seedGeofenceLocation(f *fakeStore, id, projectID int, position string) {
	f.locations[id] = store.Location{
		ID:               id,
		ProjectID:        projectID,
		LocationName:     "Stop",
		ScorePoints:      10,
		LocationTrigger:  visit.TriggerLocationEntry,
		LocationPosition: position,
	}
}

func postJSON(mux *http.ServeMux, path, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	mux.ServeHTTP(rr, req)
	return rr
}

func TestPositionSignal_InvalidJSON(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/position", "{not json")

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if resp := decodeErrorResponse(t, rr); resp.Error.Code != ErrCodeBadRequest {
		t.Errorf("error code = %q", resp.Error.Code)
	}
}

func TestPositionSignal_RequiresUsername(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/position", `{"lat":0,"lon":0}`)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if resp := decodeErrorResponse(t, rr); resp.Error.Code != ErrCodeAuthRequired {
		t.Errorf("error code = %q", resp.Error.Code)
	}
}

func TestPositionSignal_MalformedUsername(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/position", `{"username":"alice smith","lat":0,"lon":0}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if resp := decodeErrorResponse(t, rr); resp.Error.Code != ErrCodeValidation {
		t.Errorf("error code = %q, want %q", resp.Error.Code, ErrCodeValidation)
	}
}

func TestPositionSignal_InvalidCoordinates(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	mux := newTestMux(f)

	tests := []struct {
		name string
		body string
	}{
		{"lat too high", `{"username":"alice","lat":91,"lon":0}`},
		{"lat too low", `{"username":"alice","lat":-91,"lon":0}`},
		{"lon too high", `{"username":"alice","lat":0,"lon":181}`},
		{"lon too low", `{"username":"alice","lat":0,"lon":-181}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := postJSON(mux, "/projects/1/signals/position", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rr.Code)
			}
			if resp := decodeErrorResponse(t, rr); resp.Error.Code != ErrCodeValidation {
				t.Errorf("error code = %q", resp.Error.Code)
			}
		})
	}
}

func TestPositionSignal_MissingProject(t *testing.T) {
	f := newFakeStore()
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/99/signals/position", `{"username":"alice","lat":0,"lon":0}`)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestPositionSignal_RecordsInRangeVisit(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	// ~55 m from the signal below, well within the 100 m radius.
	seedGeofenceLocation(f, 10, 1, "(0.0005,0.0000)")
	// ~11 km away, out of range.
	seedGeofenceLocation(f, 11, 1, "(0.1000,0.0000)")
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/position", `{"username":"alice","lat":0,"lon":0}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var resp PositionSignalResponse
	decodeBody(t, rr, &resp)
	if len(resp.InRange) != 1 || resp.InRange[0] != 10 {
		t.Errorf("in_range = %v, want [10]", resp.InRange)
	}
	if len(resp.Recorded) != 1 || resp.Recorded[0] != 10 {
		t.Errorf("recorded = %v, want [10]", resp.Recorded)
	}
	if resp.VisitedCount != 1 {
		t.Errorf("visited_count = %d, want 1", resp.VisitedCount)
	}
	if len(f.tracking) != 1 {
		t.Fatalf("got %d tracking entries, want 1", len(f.tracking))
	}
	entry := f.tracking[0]
	if entry.ProjectID != 1 || entry.LocationID != 10 || entry.ParticipantUsername != "alice" || entry.Points != 10 {
		t.Errorf("tracking entry = %+v", entry)
	}
}

func TestPositionSignal_DuplicateIsSilent(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	seedGeofenceLocation(f, 10, 1, "(0.0005,0.0000)")
	mux := newTestMux(f)

	postJSON(mux, "/projects/1/signals/position", `{"username":"alice","lat":0,"lon":0}`)
	rr := postJSON(mux, "/projects/1/signals/position", `{"username":"alice","lat":0,"lon":0}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp PositionSignalResponse
	decodeBody(t, rr, &resp)
	if len(resp.InRange) != 1 {
		t.Errorf("in_range = %v, want the location still reported", resp.InRange)
	}
	if len(resp.Recorded) != 0 {
		t.Errorf("recorded = %v, want none on a duplicate signal", resp.Recorded)
	}
	if len(f.tracking) != 1 {
		t.Errorf("got %d tracking entries, want 1", len(f.tracking))
	}
}

func TestPositionSignal_DedupsVisitPersistedByEarlierRun(t *testing.T) {
	// The store already holds alice's visit from before this server started.
	// Her first signal in this process must not insert a second entry.
	f := newFakeStore()
	seedProject(f, 1, true)
	seedGeofenceLocation(f, 5, 1, "(0.0005,0.0000)")
	f.tracking = append(f.tracking, store.TrackingEntry{
		ID: 1, ProjectID: 1, LocationID: 5, ParticipantUsername: "alice", Points: 10,
	})
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/position", `{"username":"alice","lat":0,"lon":0}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var resp PositionSignalResponse
	decodeBody(t, rr, &resp)
	if len(resp.InRange) != 1 || resp.InRange[0] != 5 {
		t.Errorf("in_range = %v, want [5]", resp.InRange)
	}
	if len(resp.Recorded) != 0 {
		t.Errorf("recorded = %v, want none for an already-persisted visit", resp.Recorded)
	}
	if resp.VisitedCount != 1 {
		t.Errorf("visited_count = %d, want 1", resp.VisitedCount)
	}
	if len(f.tracking) != 1 {
		t.Fatalf("store holds %d entries for the pair, want 1", len(f.tracking))
	}
}

func TestPositionSignal_ScanOnlyLocationNotRecorded(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	f.locations[10] = store.Location{
		ID:               10,
		ProjectID:        1,
		ScorePoints:      10,
		LocationTrigger:  visit.TriggerQRScan,
		LocationPosition: "(0.0005,0.0000)",
	}
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/position", `{"username":"alice","lat":0,"lon":0}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp PositionSignalResponse
	decodeBody(t, rr, &resp)
	if len(resp.InRange) != 1 || resp.InRange[0] != 10 {
		t.Errorf("in_range = %v, want [10]", resp.InRange)
	}
	if len(resp.Recorded) != 0 {
		t.Errorf("recorded = %v, scan-only locations must not auto-record", resp.Recorded)
	}
	if len(f.tracking) != 0 {
		t.Errorf("got %d tracking entries, want 0", len(f.tracking))
	}
}

func TestPositionSignal_MalformedPositionReported(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	seedGeofenceLocation(f, 10, 1, "not a position")
	seedGeofenceLocation(f, 11, 1, "(0.0005,0.0000)")
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/position", `{"username":"alice","lat":0,"lon":0}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp PositionSignalResponse
	decodeBody(t, rr, &resp)
	if len(resp.Malformed) != 1 || resp.Malformed[0] != 10 {
		t.Errorf("malformed = %v, want [10]", resp.Malformed)
	}
	if len(resp.Recorded) != 1 || resp.Recorded[0] != 11 {
		t.Errorf("recorded = %v, want [11] despite the malformed sibling", resp.Recorded)
	}
}

func TestScanSignal_RecordsVisit(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	f.locations[42] = store.Location{
		ID:              42,
		ProjectID:       1,
		ScorePoints:     15,
		LocationTrigger: visit.TriggerQRScan,
	}
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/scan",
		`{"username":"alice","payload":"https://example.com/location/42"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var resp ScanSignalResponse
	decodeBody(t, rr, &resp)
	if resp.LocationID != 42 {
		t.Errorf("location_id = %d, want 42", resp.LocationID)
	}
	if !resp.Recorded {
		t.Error("expected recorded=true on first scan")
	}
	if resp.VisitedCount != 1 {
		t.Errorf("visited_count = %d, want 1", resp.VisitedCount)
	}
	if len(f.tracking) != 1 || f.tracking[0].Points != 15 {
		t.Errorf("tracking = %+v", f.tracking)
	}
}

func TestScanSignal_DuplicateIsSilent(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	f.locations[42] = store.Location{ID: 42, ProjectID: 1, LocationTrigger: visit.TriggerQRScan}
	mux := newTestMux(f)

	body := `{"username":"alice","payload":"/location/42"}`
	postJSON(mux, "/projects/1/signals/scan", body)
	rr := postJSON(mux, "/projects/1/signals/scan", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp ScanSignalResponse
	decodeBody(t, rr, &resp)
	if resp.Recorded {
		t.Error("expected recorded=false on a repeat scan")
	}
	if resp.VisitedCount != 1 {
		t.Errorf("visited_count = %d, want 1", resp.VisitedCount)
	}
	if len(f.tracking) != 1 {
		t.Errorf("got %d tracking entries, want 1", len(f.tracking))
	}
}

func TestScanSignal_DedupsVisitPersistedByEarlierRun(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	f.locations[42] = store.Location{ID: 42, ProjectID: 1, LocationTrigger: visit.TriggerQRScan}
	f.tracking = append(f.tracking, store.TrackingEntry{
		ID: 1, ProjectID: 1, LocationID: 42, ParticipantUsername: "alice",
	})
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/scan", `{"username":"alice","payload":"/location/42"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var resp ScanSignalResponse
	decodeBody(t, rr, &resp)
	if resp.Recorded {
		t.Error("expected recorded=false for a visit persisted before this process")
	}
	if resp.VisitedCount != 1 {
		t.Errorf("visited_count = %d, want 1", resp.VisitedCount)
	}
	if len(f.tracking) != 1 {
		t.Errorf("store holds %d entries for the pair, want 1", len(f.tracking))
	}
}

func TestScanSignal_InvalidPayload(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/scan", `{"username":"alice","payload":"gibberish"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if resp := decodeErrorResponse(t, rr); resp.Error.Code != ErrCodeInvalidCode {
		t.Errorf("error code = %q, want %q", resp.Error.Code, ErrCodeInvalidCode)
	}
}

func TestScanSignal_CrossProjectLocation(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	f.locations[42] = store.Location{ID: 42, ProjectID: 2, LocationTrigger: visit.TriggerQRScan}
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/scan", `{"username":"alice","payload":"/location/42"}`)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for another project's location", rr.Code)
	}
	if len(f.tracking) != 0 {
		t.Errorf("got %d tracking entries, want 0", len(f.tracking))
	}
}

func TestScanSignal_GatewayFailure(t *testing.T) {
	f := newFakeStore()
	seedProject(f, 1, true)
	f.locations[42] = store.Location{ID: 42, ProjectID: 1, LocationTrigger: visit.TriggerQRScan}
	f.insertErr = &store.GatewayError{Status: 503, Op: "POST /tracking"}
	mux := newTestMux(f)

	rr := postJSON(mux, "/projects/1/signals/scan", `{"username":"alice","payload":"/location/42"}`)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
	if resp := decodeErrorResponse(t, rr); resp.Error.Code != ErrCodeGateway {
		t.Errorf("error code = %q", resp.Error.Code)
	}

	// The failed insert must not mark the location visited; a retry succeeds.
	f.insertErr = nil
	rr = postJSON(mux, "/projects/1/signals/scan", `{"username":"alice","payload":"/location/42"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("retry status = %d, want 200", rr.Code)
	}
	var resp ScanSignalResponse
	decodeBody(t, rr, &resp)
	if !resp.Recorded {
		t.Error("expected the retry to record the visit")
	}
}
