package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned when a bearer token is not a parseable JWT. Opaque
// tokens are valid credentials; they just cannot be inspected.
var ErrNotJWT = errors.New("token is not a JWT")

// TokenInfo holds the claims the client displays about its session
type TokenInfo struct {
	Subject   string
	Issuer    string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the token carried an expiry that has passed
func (i *TokenInfo) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// InspectToken decodes the claims of a JWT bearer token without verifying its
// signature. The server remains the only authority on validity; this is for
// display.
func InspectToken(tokenString string) (*TokenInfo, error) {
	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJWT, err)
	}

	info := &TokenInfo{
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
	}
	if claims.IssuedAt != nil {
		t := claims.IssuedAt.Time
		info.IssuedAt = &t
	}
	if claims.ExpiresAt != nil {
		t := claims.ExpiresAt.Time
		info.ExpiresAt = &t
	}
	return info, nil
}
