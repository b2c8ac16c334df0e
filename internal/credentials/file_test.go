// ABOUTME: Tests for the JSON file credential store
// ABOUTME: Covers lookups, per-call re-reads, malformed files, and atomic Put

package credentials

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeUsers(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestFileStore_FindByIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	writeUsers(t, path, `[
  {"email": "admin@example.com", "passwordHash": "secret123", "role": "admin"},
  {"email": "ops@example.com", "passwordHash": "hunter22", "role": "operator"}
]`)

	s := NewFileStore(path)
	ctx := context.Background()

	cred, err := s.FindByIdentity(ctx, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", cred.Identity)
	assert.Equal(t, "hunter22", cred.Secret)
	assert.Equal(t, "operator", cred.Role)

	_, err = s.FindByIdentity(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FindByIdentity(ctx, "ADMIN@example.com")
	assert.ErrorIs(t, err, ErrNotFound, "identities are matched exactly")
}

func TestFileStore_RereadsOnEveryLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	writeUsers(t, path, `[{"email": "a@example.com", "passwordHash": "one", "role": "admin"}]`)

	s := NewFileStore(path)
	ctx := context.Background()

	cred, err := s.FindByIdentity(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "one", cred.Secret)

	writeUsers(t, path, `[{"email": "a@example.com", "passwordHash": "two", "role": "admin"}]`)

	cred, err = s.FindByIdentity(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "two", cred.Secret)
}

func TestFileStore_ReadErrors(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		s := NewFileStore(filepath.Join(dir, "missing.json"))
		_, err := s.FindByIdentity(ctx, "a@example.com")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		writeUsers(t, path, `{not json`)
		_, err := NewFileStore(path).FindByIdentity(ctx, "a@example.com")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestFileStore_Put(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "users.json")
	s := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, Credential{Identity: "a@example.com", Secret: "one", Role: "admin"}))
	require.NoError(t, s.Put(ctx, Credential{Identity: "b@example.com", Secret: "two", Role: "viewer"}))
	require.NoError(t, s.Put(ctx, Credential{Identity: "a@example.com", Secret: "three", Role: "admin"}))

	creds, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "three", creds[0].Secret)
	assert.Equal(t, "b@example.com", creds[1].Identity)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"passwordHash": "three"`)

	assert.Error(t, s.Put(ctx, Credential{Identity: "  "}))
}
