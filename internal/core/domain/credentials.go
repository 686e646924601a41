package domain

import "time"

// Credentials holds the user token pair issued by the identity provider.
//
// The refresh token rotates on every use, so a successful refresh always
// replaces the whole record. Access and refresh expiry are tracked
// independently: the provider does not guarantee any ordering between them.
type Credentials struct {
	// AccessToken is the bearer token for task API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is the single-use rotating token used to mint a new
	// access token without user interaction.
	RefreshToken string `json:"refresh_token"`
	// AccessExpiresAt is when the access token expires.
	AccessExpiresAt time.Time `json:"access_expires_at"`
	// RefreshExpiresAt is when the refresh token expires.
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	// UpdatedAt is when this record was last replaced.
	UpdatedAt time.Time `json:"updated_at"`
}

// AccessExpired returns true if the access token has expired at now.
func (c Credentials) AccessExpired(now time.Time) bool {
	return !c.AccessExpiresAt.IsZero() && !now.Before(c.AccessExpiresAt)
}

// RefreshExpired returns true if the refresh token has expired at now.
func (c Credentials) RefreshExpired(now time.Time) bool {
	return !c.RefreshExpiresAt.IsZero() && !now.Before(c.RefreshExpiresAt)
}

// NeedsRefresh returns true if the access token is missing, expired, or
// within the proactive refresh window of its expiry.
func (c Credentials) NeedsRefresh(now time.Time, window time.Duration) bool {
	if c.AccessToken == "" {
		return true
	}
	if c.AccessExpiresAt.IsZero() {
		return false
	}
	return c.AccessExpiresAt.Sub(now) < window
}

// HasRefreshToken returns true if a refresh token is available.
func (c Credentials) HasRefreshToken() bool {
	return c.RefreshToken != ""
}

// TokenState describes the token manager's lifecycle state.
type TokenState string

const (
	// TokenStateValid means the access token is usable and not near expiry.
	TokenStateValid TokenState = "valid"
	// TokenStateNearExpiry means the access token expires within the
	// proactive refresh window; the next caller will refresh.
	TokenStateNearExpiry TokenState = "near_expiry"
	// TokenStateRefreshing means a refresh round-trip is in flight.
	TokenStateRefreshing TokenState = "refreshing"
	// TokenStateInvalid means a refresh failed permanently; external
	// re-authorization is required before any call can succeed.
	TokenStateInvalid TokenState = "invalid"
)

// TokenStatus is a point-in-time snapshot of credential health, exposed to
// the control surface.
type TokenStatus struct {
	HasAccessToken   bool       `json:"hasAccessToken"`
	HasRefreshToken  bool       `json:"hasRefreshToken"`
	AccessExpiresIn  int64      `json:"accessExpiresIn"`
	RefreshExpiresIn int64      `json:"refreshExpiresIn"`
	AccessExpired    bool       `json:"accessExpired"`
	RefreshExpired   bool       `json:"refreshExpired"`
	State            TokenState `json:"state"`
}
