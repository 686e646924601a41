package driving

import (
	"context"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
)

// TokenService guarantees callers a currently-valid access token or a
// clearly-signalled credential failure.
type TokenService interface {
	// EnsureValid returns a usable access token, refreshing first when the
	// current one is missing, expired, or inside the proactive window.
	// Fails fast with domain.ErrCredentialsInvalid once a refresh has
	// failed terminally.
	EnsureValid(ctx context.Context) (string, error)

	// Refresh forces a refresh round-trip. Concurrent callers share one
	// in-flight network call.
	Refresh(ctx context.Context) error

	// Reauthorize installs an externally obtained refresh token and clears
	// the terminal invalid state.
	Reauthorize(ctx context.Context, refreshToken string, refreshExpiresIn int64) error

	// Status returns a point-in-time credential health snapshot.
	Status() domain.TokenStatus
}
