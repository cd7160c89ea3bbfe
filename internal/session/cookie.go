package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCookie is returned for cookies that are malformed, forged or
// past their expiry.
var ErrInvalidCookie = errors.New("invalid session cookie")

type cookieClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// CookieCodec signs and verifies the session id carried in the cookie.
type CookieCodec struct {
	secret []byte
	now    func() time.Time
}

func NewCookieCodec(secret string) *CookieCodec {
	return &CookieCodec{secret: []byte(secret), now: time.Now}
}

// Encode returns an HS256 token binding sessionID until expiresAt.
func (c *CookieCodec) Encode(sessionID string, expiresAt time.Time) (string, error) {
	claims := cookieClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return signed, nil
}

// Decode verifies value and returns the session id it carries.
func (c *CookieCodec) Decode(value string) (string, error) {
	var claims cookieClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCookie, err)
	}
	if claims.SessionID == "" {
		return "", ErrInvalidCookie
	}
	return claims.SessionID, nil
}
