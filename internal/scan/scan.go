// Package scan resolves decoded QR payloads into location IDs.
package scan

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidCode is returned for payloads that do not match the expected
// pattern. User-facing and non-fatal: the scanner stays active for a retry.
var ErrInvalidCode = errors.New("unrecognized QR code")

// payloadPattern matches ".../location/<digits>" at the end of the payload.
// The digit run is the location ID.
var payloadPattern = regexp.MustCompile(`/location/(\d+)$`)

// LocationID extracts the location ID from a scanned QR payload. Any payload
// not ending in "/location/<digits>" is ErrInvalidCode; no visit is
// attempted for it.
func LocationID(payload string) (int, error) {
	m := payloadPattern.FindStringSubmatch(strings.TrimSpace(payload))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCode, payload)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		// Unreachable for any digit run that fits in an int; guard anyway
		// against absurdly long payloads.
		return 0, fmt.Errorf("%w: %q", ErrInvalidCode, payload)
	}
	return id, nil
}
