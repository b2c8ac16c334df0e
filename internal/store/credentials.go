// ABOUTME: SQLite-backed administrator credentials for the sqlite credential backend
// ABOUTME: Implements credentials.Store with upsert, delete, and list operations

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smherdgn/turn-management/internal/credentials"
)

// FindByIdentity returns the credential for identity or credentials.ErrNotFound.
// Every call queries the database; nothing is cached.
func (s *SQLiteStore) FindByIdentity(ctx context.Context, identity string) (*credentials.Credential, error) {
	var cred credentials.Credential
	err := s.db.QueryRowContext(ctx,
		`SELECT identity, secret, role FROM admin_credentials WHERE identity = ?`,
		identity,
	).Scan(&cred.Identity, &cred.Secret, &cred.Role)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, credentials.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	return &cred, nil
}

// PutCredential inserts or replaces an administrator credential.
func (s *SQLiteStore) PutCredential(ctx context.Context, cred credentials.Credential) error {
	if cred.Identity == "" {
		return errors.New("credential identity is required")
	}
	if cred.Role == "" {
		cred.Role = "admin"
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_credentials (identity, secret, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			secret = excluded.secret,
			role = excluded.role,
			updated_at = excluded.updated_at
	`, cred.Identity, cred.Secret, cred.Role, now, now)
	if err != nil {
		return fmt.Errorf("upserting credential: %w", err)
	}

	s.logger.Debug("stored credential", "identity", cred.Identity, "role", cred.Role)
	return nil
}

// DeleteCredential removes a credential. Returns ErrNotFound if absent.
func (s *SQLiteStore) DeleteCredential(ctx context.Context, identity string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM admin_credentials WHERE identity = ?`, identity)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCredentials returns every credential ordered by identity.
func (s *SQLiteStore) ListCredentials(ctx context.Context) ([]credentials.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity, secret, role FROM admin_credentials ORDER BY identity`)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer func() { _ = rows.Close() }()

	creds := []credentials.Credential{}
	for rows.Next() {
		var c credentials.Credential
		if err := rows.Scan(&c.Identity, &c.Secret, &c.Role); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating credentials: %w", err)
	}
	return creds, nil
}
