// ABOUTME: Flat JSON file credential store compatible with the users.json layout
// ABOUTME: Re-reads the file on each lookup and writes atomically through a temp file

package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore reads credentials from a JSON array of {email, passwordHash, role}.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the JSON file at path.
// The file does not need to exist until the first lookup.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// FindByIdentity returns the credential for identity, or ErrNotFound.
// Identities are compared case-sensitively, matching the stored value exactly.
func (s *FileStore) FindByIdentity(ctx context.Context, identity string) (*Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	creds, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	for i := range creds {
		if creds[i].Identity == identity {
			return &creds[i], nil
		}
	}
	return nil, ErrNotFound
}

// List returns every credential in the file.
func (s *FileStore) List(ctx context.Context) ([]Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading credential file: %w", err)
	}

	var creds []Credential
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parsing credential file %s: %w", s.path, err)
	}
	return creds, nil
}

// Put inserts or replaces the credential with the same identity.
// A missing file is treated as an empty list.
func (s *FileStore) Put(ctx context.Context, cred Credential) error {
	if strings.TrimSpace(cred.Identity) == "" {
		return errors.New("credential identity is required")
	}

	creds, err := s.List(ctx)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	replaced := false
	for i := range creds {
		if creds[i].Identity == cred.Identity {
			creds[i] = cred
			replaced = true
			break
		}
	}
	if !replaced {
		creds = append(creds, cred)
	}

	return s.write(creds)
}

func (s *FileStore) write(creds []Credential) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".users-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("setting credential file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing credential file: %w", err)
	}
	return nil
}
