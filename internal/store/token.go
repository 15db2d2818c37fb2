package store

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptySecret is returned when token minting is attempted without a secret.
var ErrEmptySecret = errors.New("store token secret cannot be empty")

// ErrEmptyUsername is returned when token minting is attempted without a username.
var ErrEmptyUsername = errors.New("store token username cannot be empty")

// TokenClaims are the claims the hosted store expects on its bearer token.
// The store issues long-lived tokens without expiry; this mirrors that shape.
type TokenClaims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	Username string `json:"username"`
}

// MintToken signs an HS256 bearer token carrying the role and username the
// store authorizes requests against. Used at startup when the deployment
// provides a shared secret instead of a pre-issued token.
func MintToken(secret, role, username string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if username == "" {
		return "", ErrEmptyUsername
	}

	claims := TokenClaims{
		Role:     role,
		Username: username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates a store bearer token against the shared secret and
// returns its claims. Primarily used by tests and diagnostics.
func ParseToken(tokenString, secret string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
