// ABOUTME: Session token codec issuing and verifying HS256 JWTs for administrators
// ABOUTME: Tokens carry identity and role and expire a fixed 24 hours after issue

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenLifetime is how long a session token stays valid after issue.
const TokenLifetime = 24 * time.Hour

// Token errors
var (
	ErrConfigMissing    = errors.New("server configuration error: signing secret missing")
	ErrExpired          = errors.New("token expired")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrMissingClaim     = errors.New("missing required claim")
)

// Claims is the payload of a session token. Subject mirrors Identity.
type Claims struct {
	Identity string `json:"identity"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies session tokens with a server-held secret.
// It holds no mutable state and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

// CodecOption configures a TokenCodec
type CodecOption func(*TokenCodec)

// WithClock replaces the time source used for issue and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// NewTokenCodec creates a codec signing with secret.
// An empty secret returns ErrConfigMissing; the caller must not serve
// protected routes without a codec.
func NewTokenCodec(secret []byte, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, ErrConfigMissing
	}

	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a new token for identity and role.
// The returned claims are exactly what was encoded.
func (c *TokenCodec) Issue(identity, role string) (string, *Claims, error) {
	if identity == "" {
		return "", nil, fmt.Errorf("%w: identity", ErrMissingClaim)
	}

	// NumericDate has second precision; truncate so exp - iat is exact.
	now := c.now().Truncate(time.Second)
	claims := &Claims{
		Identity: identity,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks the signature and expiry of tokenString.
// It returns ErrExpired for a correctly signed token past its expiry and
// ErrSignatureInvalid for anything else. No claims are returned on error.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)

	if err != nil {
		// The signature is checked before claims, so an expiry error
		// implies the token was genuine.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	if !token.Valid {
		return nil, ErrSignatureInvalid
	}

	if claims.Identity == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing identity or iat", ErrSignatureInvalid)
	}

	return claims, nil
}
