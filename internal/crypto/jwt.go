package crypto

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrMissingSecret = errors.New("token signing secret is not configured")
	ErrReservedClaim = errors.New("claim name is reserved by the signer")
)

// Claims is the caller-defined payload carried by a token.
type Claims map[string]any

// registered claim names owned by the signer.
var registeredClaims = []string{"exp", "iat", "nbf", "iss", "aud", "sub", "jti"}

// Signer issues and verifies HS256 tokens bound to an issuer and audience.
type Signer struct {
	secret   []byte
	issuer   string
	audience string
	now      func() time.Time
}

const (
	DefaultIssuer   = "authkeep"
	DefaultAudience = "authkeep-api"
)

// NewSigner returns a Signer, or ErrMissingSecret when secret is empty.
// Empty issuer and audience fall back to DefaultIssuer and DefaultAudience.
func NewSigner(secret, issuer, audience string) (*Signer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if audience == "" {
		audience = DefaultAudience
	}
	return &Signer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		now:      time.Now,
	}, nil
}

// Sign encodes claims into a token that expires ttl from now.
// A ttl of zero or less yields a token that is already expired.
// Claims may not use a registered claim name; doing so returns ErrReservedClaim.
func (s *Signer) Sign(claims Claims, ttl time.Duration) (string, error) {
	for _, name := range registeredClaims {
		if _, ok := claims[name]; ok {
			return "", fmt.Errorf("%w: %q", ErrReservedClaim, name)
		}
	}

	now := s.now()
	mc := jwt.MapClaims{}
	maps.Copy(mc, claims)
	mc["iss"] = s.issuer
	mc["aud"] = s.audience
	mc["iat"] = jwt.NewNumericDate(now)
	mc["exp"] = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	return token.SignedString(s.secret)
}

// Verify parses tokenString and returns its caller claims. Every failure
// (bad signature, malformed input, wrong issuer or audience, expiry) is
// reported as ErrInvalidToken.
func (s *Signer) Verify(tokenString string) (Claims, error) {
	mc := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, mc, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims := Claims(maps.Clone(mc))
	for _, name := range registeredClaims {
		delete(claims, name)
	}
	return claims, nil
}

// String returns the string claim named key.
func (c Claims) String(key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok && v != ""
}
