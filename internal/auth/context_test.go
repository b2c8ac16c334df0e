// ABOUTME: Tests for request context claim helpers
// ABOUTME: Covers round trip, absent claims, and identity extraction

package auth

import (
	"context"
	"testing"
)

func TestClaimsContext_RoundTrip(t *testing.T) {
	claims := &Claims{Identity: "admin@example.com", Role: "admin"}
	ctx := WithClaims(context.Background(), claims)

	got := ClaimsFromContext(ctx)
	if got != claims {
		t.Fatalf("ClaimsFromContext() = %v, want %v", got, claims)
	}
	if id := IdentityFromContext(ctx); id != "admin@example.com" {
		t.Errorf("IdentityFromContext() = %q, want admin@example.com", id)
	}
}

func TestClaimsContext_Absent(t *testing.T) {
	ctx := context.Background()

	if got := ClaimsFromContext(ctx); got != nil {
		t.Errorf("ClaimsFromContext() = %v, want nil", got)
	}
	if id := IdentityFromContext(ctx); id != "" {
		t.Errorf("IdentityFromContext() = %q, want empty", id)
	}
}

func TestClaimsContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), claimsContextKey{}, "not claims")

	if got := ClaimsFromContext(ctx); got != nil {
		t.Errorf("ClaimsFromContext() = %v, want nil for wrong type", got)
	}
}
