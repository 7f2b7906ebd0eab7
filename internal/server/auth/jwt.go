// Package auth contains the credential primitives used by the auth service:
// the session token codec, password and reset-code hashing, and reset code
// generation.
package auth

import (
	"errors"
	"time"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the session subject (user id) and the standard iat/exp
// claims. The subject is kept in RegisteredClaims.Subject.
type Claims struct {
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// IssuedTime returns the iat claim, or the zero time when absent.
func (c *Claims) IssuedTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// TokenCodec signs and verifies HS256 session tokens with a fixed lifetime.
type TokenCodec struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewTokenCodec returns a codec using secretKey and validityDuration.
func NewTokenCodec(secretKey []byte, validityDuration time.Duration) *TokenCodec {
	return &TokenCodec{secret: secretKey, validity: validityDuration, now: time.Now}
}

// WithClock returns a copy of the codec that reads the current time from now.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}

// Validity is the lifetime given to every issued token.
func (c *TokenCodec) Validity() time.Duration {
	return c.validity
}

// Issue mints a token for userID.
func (c *TokenCodec) Issue(userID string) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.validity)),
		},
	})

	return token.SignedString(c.secret)
}

// Parse verifies the signature and expiry of tokenString and returns its
// claims. Expired tokens yield common.ErrTokenExpired, every other failure
// common.ErrInvalidToken.
func (c *TokenCodec) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
