package auth

import (
	"errors"
	"time"

	"github.com/devduo/studio-backend/errs"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "studio-backend"

// Tokens issues and checks the HS256 session tokens handed out by the HTTP login
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for username and its expiry
func (t *Tokens) Issue(username string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   username,
		Issuer:    tokenIssuer,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, errs.NewInternalErrorWithCause("could not sign session token", err)
	}
	return signed, expires, nil
}

// Parse validates the token and returns the username it was issued for
func (t *Tokens) Parse(token string) (string, error) {
	if token == "" {
		return "", errs.NewMissingTokenError()
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", errs.NewExpiredTokenError()
	case err != nil:
		return "", errs.NewInvalidTokenError()
	case claims.Subject == "":
		return "", errs.NewInvalidTokenError()
	}
	return claims.Subject, nil
}
