// Package visit implements the visit-tracking state machine: trigger
// resolution, per-session visited sets, duplicate suppression, and the
// single path through which visit facts reach the data store.
package visit

import "github.com/onnwee/trailmark/internal/store"

// Trigger policies a location can be authored with.
const (
	// TriggerLocationEntry permits automatic recording when the participant
	// walks into the location's geofence.
	TriggerLocationEntry = "Location Entry"

	// TriggerQRScan requires an explicit decoded QR payload; proximity alone
	// must never record a visit for these locations.
	TriggerQRScan = "QR Code Scans"
)

// Origin identifies which signal path a visit attempt came from. The two
// paths are mutually exclusive entries into the tracker, not a priority
// order.
type Origin string

// Signal origins.
const (
	OriginGeofence Origin = "geofence"
	OriginScan     Origin = "scan"
)

// AutoEligible reports whether a location may be recorded automatically
// from a geofence signal. Anything except an explicit QR-scan trigger is
// auto-eligible.
func AutoEligible(loc store.Location) bool {
	return loc.LocationTrigger != TriggerQRScan
}
