// Package auth signs and verifies the JWS bearer tokens guarding the
// operator's web API. A single HS256 key, read from a k8s secret at boot,
// signs every token; there is no key rotation beyond restarting with a
// fresh secret.
package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken error = errors.New("invalid token")

// NewJWS signs claims and returns a JWS token string.
func NewJWS[C jwt.Claims](key []byte, claims C) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(key)
}

// IssueFor mints a token for the named collaborator, valid for ttl.
func IssueFor(key []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	return NewJWS(key, &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
}

// VerifyJWS verifies a JWS token string and returns its claims.
//
// Malformed, mis-signed and expired tokens all come back wrapping
// ErrInvalidToken, so callers can treat them uniformly as "unauthorized".
func VerifyJWS(key []byte, token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(
		token, claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected alg: %s", ErrInvalidToken, t.Method.Alg())
			}
			return key, nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) ||
			errors.Is(err, jwt.ErrSignatureInvalid) ||
			errors.Is(err, jwt.ErrTokenExpired) ||
			errors.Is(err, jwt.ErrTokenUnverifiable) {
			return nil, errors.Join(ErrInvalidToken, err)
		}
		return nil, err
	}
	if !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
