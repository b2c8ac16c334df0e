// ABOUTME: Store interfaces and shared errors for turn-admin persistence
// ABOUTME: Separates audit logging from credential storage so callers depend on the slice they use

package store

import (
	"context"
	"errors"

	"github.com/smherdgn/turn-management/internal/credentials"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// AuditStore records and lists privileged actions.
type AuditStore interface {
	AppendAuditLog(ctx context.Context, e *AuditEntry) error
	ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error)
}

// CredentialStore persists administrator credentials.
// It satisfies credentials.Store so it can back the login endpoint directly.
type CredentialStore interface {
	credentials.Store
	PutCredential(ctx context.Context, cred credentials.Credential) error
	DeleteCredential(ctx context.Context, identity string) error
	ListCredentials(ctx context.Context) ([]credentials.Credential, error)
}

// Store combines every persistence capability.
type Store interface {
	AuditStore
	CredentialStore
	Close() error
}
