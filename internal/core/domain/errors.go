package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync is already running.
	ErrSyncInProgress = errors.New("sync in progress")

	// Credential errors.

	// ErrNoRefreshToken indicates no refresh token is configured, so the
	// access token cannot be renewed without re-authorization.
	ErrNoRefreshToken = errors.New("no refresh token configured")

	// ErrRefreshTokenExpired indicates the refresh token itself has expired.
	// Requires external re-authorization; never retried automatically.
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrRefreshTokenRevoked indicates the refresh token was revoked or
	// already consumed. Requires external re-authorization.
	ErrRefreshTokenRevoked = errors.New("refresh token revoked or already used")

	// ErrUnauthorizedClient indicates the caller lacks the grant required
	// to refresh tokens for this user.
	ErrUnauthorizedClient = errors.New("client not authorized for this grant")

	// ErrCredentialsInvalid indicates the token manager is in its terminal
	// state: a prior refresh failed permanently and a new refresh token
	// must be supplied before any call can succeed.
	ErrCredentialsInvalid = errors.New("credentials invalid, re-authorization required")

	// Downstream errors.

	// ErrAuthRejected indicates a downstream API rejected the presented
	// access token as invalid or expired.
	ErrAuthRejected = errors.New("access token rejected by API")

	// ErrNotConnected indicates a broker publish was attempted while the
	// connection is down. Messages are not queued.
	ErrNotConnected = errors.New("broker not connected")
)

// IsTerminalCredentialError reports whether err means the refresh token can
// no longer be used and external re-authorization is required.
func IsTerminalCredentialError(err error) bool {
	return errors.Is(err, ErrNoRefreshToken) ||
		errors.Is(err, ErrRefreshTokenExpired) ||
		errors.Is(err, ErrRefreshTokenRevoked) ||
		errors.Is(err, ErrUnauthorizedClient)
}
