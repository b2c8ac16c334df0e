// ABOUTME: Administrator credential records and the lookup interface used at login
// ABOUTME: Backends read the record fresh on every call so external edits take effect

package credentials

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no credential exists for an identity.
var ErrNotFound = errors.New("credential not found")

// Credential is one administrator account. Secret holds either the plaintext
// secret or a bcrypt hash, depending on the configured password mode.
type Credential struct {
	Identity string `json:"email"`
	Secret   string `json:"passwordHash"`
	Role     string `json:"role"`
}

// Store looks up administrator credentials by identity.
// Implementations must not cache results across calls.
type Store interface {
	FindByIdentity(ctx context.Context, identity string) (*Credential, error)
}
