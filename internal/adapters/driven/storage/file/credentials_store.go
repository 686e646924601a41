// Package file persists the credential record as a JSON side file. The file
// is the only copy of the current refresh token once the provider rotates it,
// so writes are atomic: a torn write here would cost the whole authorization.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driven"
)

// Ensure CredentialsStore implements the driven port.
var _ driven.CredentialsStore = (*CredentialsStore)(nil)

const credentialsFileName = "tokens.json"

// CredentialsStore reads and writes the credential side file.
type CredentialsStore struct {
	path string
}

// NewCredentialsStore creates a store rooted at dataDir.
func NewCredentialsStore(dataDir string) *CredentialsStore {
	return &CredentialsStore{path: filepath.Join(dataDir, credentialsFileName)}
}

// Save writes the record atomically: marshal to a temp file in the same
// directory, then rename over the old one. Mode 0600, tokens are secrets.
func (s *CredentialsStore) Save(creds domain.Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}

// Load reads the persisted record. A missing file is not an error; it just
// means nothing has been persisted yet.
func (s *CredentialsStore) Load() (*domain.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var creds domain.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("decode credentials file: %w", err)
	}
	return &creds, nil
}

// Path returns the side-file path.
func (s *CredentialsStore) Path() string {
	return s.path
}
