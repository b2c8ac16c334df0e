// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows handler tests to run without SQLite

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smherdgn/turn-management/internal/credentials"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu          sync.RWMutex
	audit       []AuditEntry
	credentials map[string]credentials.Credential

	// AppendErr, when set, is returned from AppendAuditLog.
	AppendErr error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		credentials: make(map[string]credentials.Credential),
	}
}

// AppendAuditLog stores an entry, filling ID and Timestamp like SQLiteStore.
func (m *MockStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AppendErr != nil {
		return m.AppendErr
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	for _, existing := range m.audit {
		if existing.ID == e.ID {
			return ErrDuplicateAuditEntry
		}
	}

	m.audit = append(m.audit, *e)
	return nil
}

// ListAuditLog returns entries newest first, honoring the same filter and limits.
func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := []AuditEntry{}
	for _, e := range m.audit {
		if f.Since != nil && e.Timestamp.Before(*f.Since) {
			continue
		}
		if f.Actor != nil && e.Actor != *f.Actor {
			continue
		}
		if f.Action != nil && e.Action != *f.Action {
			continue
		}
		entries = append(entries, e)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if limit := normalizeAuditLimit(f.Limit); len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// FindByIdentity returns a stored credential or credentials.ErrNotFound.
func (m *MockStore) FindByIdentity(ctx context.Context, identity string) (*credentials.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.credentials[identity]
	if !ok {
		return nil, credentials.ErrNotFound
	}
	return &c, nil
}

// PutCredential inserts or replaces a credential.
func (m *MockStore) PutCredential(ctx context.Context, cred credentials.Credential) error {
	if cred.Identity == "" {
		return errors.New("credential identity is required")
	}
	if cred.Role == "" {
		cred.Role = "admin"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[cred.Identity] = cred
	return nil
}

// DeleteCredential removes a credential.
func (m *MockStore) DeleteCredential(ctx context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.credentials[identity]; !ok {
		return ErrNotFound
	}
	delete(m.credentials, identity)
	return nil
}

// ListCredentials returns credentials ordered by identity.
func (m *MockStore) ListCredentials(ctx context.Context) ([]credentials.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	creds := make([]credentials.Credential, 0, len(m.credentials))
	for _, c := range m.credentials {
		creds = append(creds, c)
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].Identity < creds[j].Identity })
	return creds, nil
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}

// Compile-time interface checks
var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MockStore)(nil)
)
