package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"simple", "alice", "alice", nil},
		{"mixed case", "Alice42", "Alice42", nil},
		{"email style", "alice@example.com", "alice@example.com", nil},
		{"separators", "alice.b_c-d", "alice.b_c-d", nil},
		{"trimmed", "  alice  ", "alice", nil},
		{"empty", "", "", ErrEmpty},
		{"whitespace only", "   ", "", ErrEmpty},
		{"inner space", "alice smith", "", ErrInvalidCharacters},
		{"query metacharacters", "alice&role=admin", "", ErrInvalidCharacters},
		{"comma", "alice,bob", "", ErrInvalidCharacters},
		{"too long", strings.Repeat("a", MaxUsernameLength+1), "", ErrStringTooLong},
		{"at limit", strings.Repeat("a", MaxUsernameLength), strings.Repeat("a", MaxUsernameLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Username(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
