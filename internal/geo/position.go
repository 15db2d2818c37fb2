// Package geo provides geographic position parsing and circular geofence
// evaluation for proximity-triggered visits.
package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedPosition is returned when a stored position string cannot be
// parsed into a coordinate pair. Callers should skip the offending location
// and continue evaluating the rest.
var ErrMalformedPosition = errors.New("malformed position")

// Point represents a geographic coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ParsePosition parses the store's textual position encoding "(lat,lon)".
// Only parenthesis characters are stripped before splitting on the comma;
// surrounding whitespace on either component is tolerated.
//
// Returns ErrMalformedPosition (wrapped with detail) if the string does not
// split into exactly two components or either component is not numeric.
func ParsePosition(s string) (Point, error) {
	stripped := strings.Map(func(r rune) rune {
		if r == '(' || r == ')' {
			return -1
		}
		return r
	}, s)

	parts := strings.Split(stripped, ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("%w: %q", ErrMalformedPosition, s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: latitude in %q", ErrMalformedPosition, s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: longitude in %q", ErrMalformedPosition, s)
	}

	return Point{Lat: lat, Lon: lon}, nil
}

// FormatPosition renders a point in the store's "(lat,lon)" encoding.
func FormatPosition(p Point) string {
	return fmt.Sprintf("(%s,%s)",
		strconv.FormatFloat(p.Lat, 'f', -1, 64),
		strconv.FormatFloat(p.Lon, 'f', -1, 64),
	)
}
