package visit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/onnwee/trailmark/internal/store"
)

// ErrAuthenticationRequired is returned when a visit is attempted without a
// participant username. Recoverable: the caller should prompt the user to
// create a profile.
var ErrAuthenticationRequired = errors.New("authentication required: no participant username")

// ErrNotAutoEligible is returned when a geofence-originated attempt targets
// a location whose trigger demands an explicit QR scan.
var ErrNotAutoEligible = errors.New("location requires a QR scan, not proximity")

// Gateway is the slice of the data store the tracker needs. The concrete
// implementation is *store.Client; tests substitute an in-memory fake.
type Gateway interface {
	ListTracking(ctx context.Context, filter store.TrackingFilter) ([]store.TrackingEntry, error)
	InsertTracking(ctx context.Context, entry store.TrackingEntry) (store.TrackingEntry, error)
}

// Session tracks one participant's progress through one project. It owns the
// visited set exclusively; nothing else mutates it. Safe for concurrent use:
// HTTP handlers may deliver overlapping signals, unlike the single-threaded
// client this engine descends from.
type Session struct {
	projectID int
	username  string
	gateway   Gateway
	metrics   *Metrics

	// loadMu serializes the initial load and explicit refreshes. loaded is
	// guarded by it: a fresh session must pull its visited set from the
	// store before the first dedup check, or entries persisted by an earlier
	// process would be recorded twice.
	loadMu sync.Mutex
	loaded bool

	mu      sync.Mutex
	visited map[int]struct{}
	// inflight holds per-location claims taken synchronously before the
	// gateway insert and released on completion. This is what turns the
	// store's at-least-once tolerance into exactly-once per process: two
	// signals racing on the same unvisited location cannot both reach the
	// gateway.
	inflight map[int]struct{}
}

// NewSession creates a session for the (project, participant) pair. The
// visited set loads from the store lazily on first use; Refresh forces a
// rebuild at any time.
func NewSession(projectID int, username string, gateway Gateway, metrics *Metrics) *Session {
	return &Session{
		projectID: projectID,
		username:  username,
		gateway:   gateway,
		metrics:   metrics,
		visited:   make(map[int]struct{}),
		inflight:  make(map[int]struct{}),
	}
}

// ProjectID returns the project this session is scoped to.
func (s *Session) ProjectID() int { return s.projectID }

// Username returns the participant this session is scoped to.
func (s *Session) Username() string { return s.username }

// Visited reports whether the location has been recorded in this session.
func (s *Session) Visited(locationID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.visited[locationID]
	return ok
}

// VisitedSet returns a copy of the visited location IDs.
func (s *Session) VisitedSet() map[int]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]struct{}, len(s.visited))
	for id := range s.visited {
		out[id] = struct{}{}
	}
	return out
}

// VisitedCount returns the number of visited locations in this session.
func (s *Session) VisitedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited)
}

// Refresh rebuilds the visited set from the store's tracking entries for
// this (project, participant) pair. The prior set is fully replaced, not
// merged: the caller may represent a fresh session. On error the previous
// set is kept, bounded-stale as of the last successful read.
func (s *Session) Refresh(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.refresh(ctx)
}

// ensureLoaded performs the initial visited-set load exactly once per
// session. A failed load is retried on the next call; until one succeeds
// the session records nothing.
func (s *Session) ensureLoaded(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.loaded {
		return nil
	}
	return s.refresh(ctx)
}

// refresh does the store read. Callers hold loadMu.
func (s *Session) refresh(ctx context.Context) error {
	filter := store.TrackingFilter{}.
		ByProject(s.projectID).
		ByParticipant(s.username)

	entries, err := s.gateway.ListTracking(ctx, filter)
	if err != nil {
		return fmt.Errorf("refresh visited set: %w", err)
	}

	fresh := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		fresh[e.LocationID] = struct{}{}
	}

	s.mu.Lock()
	s.visited = fresh
	s.mu.Unlock()
	s.loaded = true
	return nil
}

// RecordVisit attempts to record a visit to loc. Preconditions, in order:
//
//  1. The session must carry a username; otherwise ErrAuthenticationRequired.
//  2. The visited set must be loaded; the first call pulls it from the
//     store so entries persisted before this process started still dedup.
//  3. The location must not already be visited; an already-visited location
//     is a silent no-op (recorded=false, nil error), the idempotence
//     guarantee.
//  4. A geofence-originated attempt must target an auto-eligible location;
//     scan-originated attempts bypass this check, the scan itself being the
//     authorization.
//
// Only when all preconditions pass is the gateway insert issued. On success
// the visited set is extended optimistically (no re-fetch). On failure the
// set is left unchanged so the next natural signal retries; there is no
// internal retry loop.
func (s *Session) RecordVisit(ctx context.Context, loc store.Location, origin Origin) (bool, error) {
	if s.username == "" {
		s.metrics.incOutcome(outcomeAuthRequired)
		return false, ErrAuthenticationRequired
	}

	if err := s.ensureLoaded(ctx); err != nil {
		s.metrics.incOutcome(outcomeFailed)
		return false, err
	}

	s.mu.Lock()
	if _, ok := s.visited[loc.ID]; ok {
		s.mu.Unlock()
		s.metrics.incOutcome(outcomeDuplicate)
		return false, nil
	}
	if origin == OriginGeofence && !AutoEligible(loc) {
		s.mu.Unlock()
		s.metrics.incOutcome(outcomeBlocked)
		return false, ErrNotAutoEligible
	}
	if _, ok := s.inflight[loc.ID]; ok {
		// Another signal already claimed this location; its insert is still
		// resolving. Treat like a duplicate.
		s.mu.Unlock()
		s.metrics.incOutcome(outcomeDuplicate)
		return false, nil
	}
	s.inflight[loc.ID] = struct{}{}
	s.mu.Unlock()

	entry := store.TrackingEntry{
		ProjectID:           s.projectID,
		LocationID:          loc.ID,
		ParticipantUsername: s.username,
		Points:              loc.ScorePoints,
	}
	_, err := s.gateway.InsertTracking(ctx, entry)

	s.mu.Lock()
	delete(s.inflight, loc.ID)
	if err == nil {
		s.visited[loc.ID] = struct{}{}
	}
	s.mu.Unlock()

	if err != nil {
		s.metrics.incOutcome(outcomeFailed)
		return false, fmt.Errorf("record visit to location %d: %w", loc.ID, err)
	}
	s.metrics.incOutcome(outcomeRecorded)
	return true, nil
}
