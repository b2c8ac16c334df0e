// ABOUTME: Request context helpers for the verified session claims
// ABOUTME: The gate stores claims with WithClaims and handlers read them with ClaimsFromContext

package auth

import (
	"context"
)

// claimsContextKey is the key type for storing Claims in context.Context.
type claimsContextKey struct{}

// WithClaims returns a new context with the verified claims attached.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext retrieves the verified claims, returning nil if not present.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*Claims)
	return claims
}

// IdentityFromContext returns the authenticated identity, or "" for anonymous requests.
func IdentityFromContext(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.Identity
	}
	return ""
}
