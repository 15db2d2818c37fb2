package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000

// DefaultRadiusMeters is the geofence radius applied when none is configured.
// An earlier client revision drew 4000 m circles; that figure is superseded.
const DefaultRadiusMeters = 100

// Haversine returns the great-circle distance between two points in meters.
// It is symmetric and returns exactly 0 for identical points.
func Haversine(a, b Point) float64 {
	if a == b {
		return 0
	}

	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lon - a.Lon) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// Positioned is anything carrying an ID and a stored textual position.
// It decouples the evaluator from the store's record types.
type Positioned interface {
	PositionString() string
	PositionID() int
}

// FenceResult reports one geofence evaluation pass.
type FenceResult struct {
	// InRange holds the IDs whose distance to the user is strictly below the
	// radius, in input order.
	InRange []int

	// Malformed holds the IDs whose stored position failed to parse. They are
	// excluded from InRange but do not abort evaluation of other candidates.
	Malformed []int
}

// InRange evaluates a fixed-radius circular geofence around each candidate.
// A candidate is in range iff haversine(user, candidate) < radiusMeters
// (strict inequality). Pure: identical inputs always produce identical
// results.
func InRange(user Point, candidates []Positioned, radiusMeters float64) FenceResult {
	var result FenceResult
	for _, c := range candidates {
		p, err := ParsePosition(c.PositionString())
		if err != nil {
			result.Malformed = append(result.Malformed, c.PositionID())
			continue
		}
		if Haversine(user, p) < radiusMeters {
			result.InRange = append(result.InRange, c.PositionID())
		}
	}
	return result
}
