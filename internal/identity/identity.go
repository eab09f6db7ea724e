// Package identity issues and verifies the signed tokens that bind a player
// to a persistent room identity such as GOLF-7Q2K.
package identity

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Lyon85/321-Golf/internal/protocol"
	"github.com/Lyon85/321-Golf/internal/session"
)

var ErrInvalidToken = errors.New("identity: invalid token")

// Claims carries the identity in the standard subject field.
type Claims struct {
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// Issue creates a fresh identity under prefix and signs a token for it.
func Issue(secret, prefix string, rng *rand.Rand, ttl time.Duration, now time.Time) (string, string, error) {
	id := session.NewIdentity(prefix, rng)
	token, err := Sign(secret, id, ttl, now)
	if err != nil {
		return "", "", err
	}
	return id, token, nil
}

// Sign signs a token for an existing identity, e.g. to renew it.
func Sign(secret, id string, ttl time.Duration, now time.Time) (string, error) {
	if secret == "" {
		return "", errors.New("identity: empty signing secret")
	}
	if !protocol.ValidRoomID(id) {
		return "", fmt.Errorf("identity: bad id %q", id)
	}
	claims := Claims{
		Identity: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("identity: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns the identity it names.
func Parse(secret, token string) (string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !protocol.ValidRoomID(claims.Identity) {
		return "", fmt.Errorf("%w: bad identity %q", ErrInvalidToken, claims.Identity)
	}
	return claims.Identity, nil
}

// Owns reports whether identity may host roomID: its own id or one of its
// numbered fallbacks (GOLF-7Q2K-2).
func Owns(identity, roomID string) bool {
	if identity == roomID {
		return true
	}
	if len(roomID) <= len(identity)+1 || roomID[:len(identity)] != identity || roomID[len(identity)] != '-' {
		return false
	}
	return protocol.ValidRoomID(roomID)
}
