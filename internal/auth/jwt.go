// Package auth verifies and issues the HS256 bearer tokens that identify the caller.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/memoriz/internal/errs"
)

const leeway = 30 * time.Second

// Claims is the token payload. The user id is read from sub, or from user_uuid
// for tokens minted by the legacy identity provider.
type Claims struct {
	UserUUID string `json:"user_uuid,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates tokens signed with a shared key.
type Verifier struct{ key []byte }

// NewVerifier constructs a verifier for HS256 tokens.
func NewVerifier(key []byte) *Verifier { return &Verifier{key: key} }

// UserID parses the token and returns the caller's id. Tokens without exp are rejected.
func (v *Verifier) UserID(token string) (uuid.UUID, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return v.key, nil
	}, jwt.WithLeeway(leeway), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}

	sub := claims.Subject
	if sub == "" {
		sub = claims.UserUUID
	}
	id, err := uuid.FromString(sub)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
	}
	return id, nil
}

// Issuer mints tokens. Used by development tooling; production tokens come
// from the external identity provider.
type Issuer struct {
	key []byte
	ttl time.Duration
}

// NewIssuer constructs an issuer; ttl <= 0 defaults to one hour.
func NewIssuer(key []byte, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{key: key, ttl: ttl}
}

// Issue returns a signed token for userID and its expiry.
func (i *Issuer) Issue(userID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.key)
	return signed, exp, err
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	v := strings.TrimSpace(header)
	if len(v) < 7 || !strings.EqualFold(v[:7], "bearer ") {
		return "", false
	}
	t := strings.TrimSpace(v[7:])
	return t, t != ""
}
