// ABOUTME: Unit tests for MockStore to ensure behavior matches SQLiteStore
// ABOUTME: Focuses on ordering, limits, and not-found semantics

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smherdgn/turn-management/internal/credentials"
)

func TestMockStore_AuditOrdering(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	base := time.Now().UTC()
	for i, action := range []AuditAction{AuditLogin, AuditServiceStop} {
		require.NoError(t, store.AppendAuditLog(ctx, &AuditEntry{
			Actor:     "admin@example.com",
			Action:    action,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := store.ListAuditLog(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, AuditServiceStop, entries[0].Action)
	assert.NotEmpty(t, entries[0].ID)
}

func TestMockStore_AppendErr(t *testing.T) {
	store := NewMockStore()
	store.AppendErr = errors.New("disk full")

	err := store.AppendAuditLog(context.Background(), &AuditEntry{Actor: "a", Action: AuditLogin})
	assert.EqualError(t, err, "disk full")
}

func TestMockStore_Credentials(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	_, err := store.FindByIdentity(ctx, "a@example.com")
	assert.ErrorIs(t, err, credentials.ErrNotFound)

	require.NoError(t, store.PutCredential(ctx, credentials.Credential{Identity: "a@example.com", Secret: "s"}))
	cred, err := store.FindByIdentity(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "admin", cred.Role)

	assert.ErrorIs(t, store.DeleteCredential(ctx, "missing"), ErrNotFound)
}
