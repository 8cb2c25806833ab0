// Package auth implements the identity verifier: an opaque bearer
// credential goes in, a stable external id and email come out. The
// matching core never sees raw credential material.
package auth

import (
	"context"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"

	svcErr "github.com/studysync/tutormatch/internal/errors"
)

// Identity is the reduced identity the core consumes.
type Identity struct {
	ExternalID string
	Email      string
	Name       string
}

// Verifier turns a bearer credential into an Identity or fails with an
// invalid-credential condition.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// JWTAuthority issues and verifies HS256 tokens. It is both the
// production Verifier and the token issuer for the login flow.
type JWTAuthority struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTAuthority(secret string, ttl time.Duration) *JWTAuthority {
	return &JWTAuthority{secret: []byte(secret), ttl: ttl}
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Issue creates a signed token whose subject is the user's external
// auth id.
func (a *JWTAuthority) Issue(externalID, email, name string) (string, error) {
	now := time.Now()
	c := &claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   externalID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates the token, rejecting non-HMAC signing
// methods, and returns the embedded identity.
func (a *JWTAuthority) Verify(_ context.Context, tokenStr string) (Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, svcErr.ErrInvalidToken
	}
	if c.Subject == "" {
		return Identity{}, svcErr.ErrInvalidToken
	}
	return Identity{ExternalID: c.Subject, Email: c.Email, Name: c.Name}, nil
}
