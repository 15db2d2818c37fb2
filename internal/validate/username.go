// Package validate provides input validation for participant-supplied
// identifiers. Usernames flow straight into store filters and tracking rows,
// so the shape is constrained here, at the edge.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Username validation errors.
var (
	ErrEmpty             = errors.New("string is empty")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
)

// MaxUsernameLength bounds usernames; the store column is unbounded text, so
// the limit is ours.
const MaxUsernameLength = 64

// usernamePattern permits letters, digits, and common separator punctuation.
// No whitespace and no reserved query characters: usernames end up in eq.
// filter values.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._\-@]+$`)

// Username validates a participant username. Returns the trimmed username
// and an error if validation fails.
func Username(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmpty
	}

	if length := utf8.RuneCountInString(s); length > MaxUsernameLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, MaxUsernameLength)
	}

	if !usernamePattern.MatchString(s) {
		return "", fmt.Errorf("%w: usernames may contain letters, digits, and . _ - @", ErrInvalidCharacters)
	}

	return s, nil
}
