// ABOUTME: Tests for SQLite-backed administrator credentials
// ABOUTME: Covers upsert, lookup, delete, and listing

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smherdgn/turn-management/internal/credentials"
)

func TestCredentials_PutAndFind(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.PutCredential(ctx, credentials.Credential{
		Identity: "admin@example.com",
		Secret:   "secret123",
	})
	require.NoError(t, err)

	cred, err := store.FindByIdentity(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "secret123", cred.Secret)
	assert.Equal(t, "admin", cred.Role, "role defaults to admin")

	// Upsert replaces secret and role
	require.NoError(t, store.PutCredential(ctx, credentials.Credential{
		Identity: "admin@example.com",
		Secret:   "rotated",
		Role:     "owner",
	}))

	cred, err = store.FindByIdentity(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "rotated", cred.Secret)
	assert.Equal(t, "owner", cred.Role)
}

func TestCredentials_FindMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.FindByIdentity(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, credentials.ErrNotFound)
}

func TestCredentials_DeleteAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"b@example.com", "a@example.com"} {
		require.NoError(t, store.PutCredential(ctx, credentials.Credential{Identity: id, Secret: "x"}))
	}

	creds, err := store.ListCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "a@example.com", creds[0].Identity)

	require.NoError(t, store.DeleteCredential(ctx, "a@example.com"))
	assert.ErrorIs(t, store.DeleteCredential(ctx, "a@example.com"), ErrNotFound)

	creds, err = store.ListCredentials(ctx)
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}

func TestCredentials_EmptyIdentity(t *testing.T) {
	store := setupTestStore(t)
	assert.Error(t, store.PutCredential(context.Background(), credentials.Credential{Secret: "x"}))
}
