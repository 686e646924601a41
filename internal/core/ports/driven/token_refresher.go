package driven

import (
	"context"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
)

// TokenRefresher exchanges a refresh token for a new token pair at the
// identity provider.
//
// The provider rotates refresh tokens on every use, so the returned
// credentials always carry a new refresh token and two fresh expiry
// instants. Callers must never run two refreshes concurrently: the second
// call would present an already-consumed token and invalidate the grant.
// Serialization is the token manager's job, not the refresher's.
type TokenRefresher interface {
	// Refresh exchanges refreshToken for a new credential record.
	// Terminal provider failures map to the domain credential errors
	// (ErrRefreshTokenExpired, ErrRefreshTokenRevoked, ErrUnauthorizedClient).
	Refresh(ctx context.Context, refreshToken string) (*domain.Credentials, error)
}
