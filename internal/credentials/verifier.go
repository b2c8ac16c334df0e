// ABOUTME: Pluggable comparison of a submitted login secret against the stored one
// ABOUTME: Plaintext mirrors the legacy users.json format; bcrypt is the hardened mode

package credentials

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Verifier decides whether a submitted secret matches a stored secret.
// An empty stored value never matches; callers pass it for unknown identities
// so both failure paths cost the same.
type Verifier interface {
	Verify(stored, provided string) bool
	Name() string
}

// NewVerifier returns the verifier for a password mode ("plaintext" or "bcrypt").
func NewVerifier(mode string) (Verifier, error) {
	switch mode {
	case "", "plaintext":
		return PlaintextVerifier{}, nil
	case "bcrypt":
		return BcryptVerifier{}, nil
	default:
		return nil, fmt.Errorf("unknown password mode %q", mode)
	}
}

// PlaintextVerifier compares secrets directly. Stored secrets are readable by
// anyone with access to the credential file; use BcryptVerifier in production.
type PlaintextVerifier struct{}

func (PlaintextVerifier) Name() string { return "plaintext" }

func (PlaintextVerifier) Verify(stored, provided string) bool {
	if stored == "" {
		// Keep the comparison so the unknown-identity path does the same work.
		subtle.ConstantTimeCompare([]byte(provided), []byte(provided))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1
}

// dummyHash is compared against when there is no stored hash, keeping timing
// identical between unknown identities and wrong secrets.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// BcryptVerifier compares the provided secret with a stored bcrypt hash.
type BcryptVerifier struct{}

func (BcryptVerifier) Name() string { return "bcrypt" }

func (BcryptVerifier) Verify(stored, provided string) bool {
	if stored == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(provided))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(provided)) == nil
}

// HashSecret produces a bcrypt hash suitable for the bcrypt password mode.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing secret: %w", err)
	}
	return string(hash), nil
}
