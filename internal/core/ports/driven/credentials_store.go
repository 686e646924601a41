package driven

import "github.com/custodia-labs/taskbridge/internal/core/domain"

// CredentialsStore persists the credential record to a durable side file so
// token state survives restarts. The file is human-inspectable and rewritten
// atomically after every successful refresh.
type CredentialsStore interface {
	// Save writes the record, replacing any previous one.
	Save(creds domain.Credentials) error

	// Load reads the persisted record.
	// Returns nil and no error when no file exists yet.
	Load() (*domain.Credentials, error)

	// Path returns the side-file path.
	Path() string
}
