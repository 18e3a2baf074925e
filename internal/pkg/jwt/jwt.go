package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Decode failure reasons. Callers map all of these to 401 at the boundary.
var (
	ErrMalformed = errors.New("token is malformed")
	ErrExpired   = errors.New("token is expired")
	ErrInvalid   = errors.New("token is invalid")
)

// Claims is the session token payload. TokenVersion must match the user's
// stored counter at validation time; the codec itself only checks signature
// and expiry.
type Claims struct {
	UserID       uint   `json:"uid"`
	Role         string `json:"role"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	TokenVersion int    `json:"tv"`
	jwtlib.RegisteredClaims
}

// Codec signs and verifies session tokens. Construct once at startup and
// inject wherever tokens are issued or checked.
type Codec struct {
	secret []byte
}

func New(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Issue signs the claims. A ttl > 0 embeds an absolute expiry; ttl <= 0
// leaves the exp claim out entirely, so the token only dies by revocation.
func (c *Codec) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwtlib.NewNumericDate(now)
	if ttl > 0 {
		claims.ExpiresAt = jwtlib.NewNumericDate(now.Add(ttl))
	} else {
		claims.ExpiresAt = nil
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode verifies signature and expiry and returns the claims. It performs no
// store lookup; freshness against the user record is the caller's job.
func (c *Codec) Decode(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformed
	}

	token, err := jwtlib.ParseWithClaims(raw, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwtlib.ErrTokenMalformed):
			return nil, ErrMalformed
		default:
			return nil, ErrInvalid
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}
