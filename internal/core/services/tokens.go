package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driven"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driving"
	"github.com/custodia-labs/taskbridge/internal/logger"
)

// Ensure TokenManager implements the interface.
var _ driving.TokenService = (*TokenManager)(nil)

// defaultRefreshWindow is how close to access-token expiry a proactive
// refresh kicks in.
const defaultRefreshWindow = 5 * time.Minute

// TokenManager owns the credential record and its refresh lifecycle.
//
// The refresh token rotates on every use, so two concurrent refresh calls
// would invalidate each other and lock the account out. refreshMu is the
// single-flight gate: it is held for the whole network round-trip and the
// state commit. stateMu guards reads of the credential record so status
// queries stay responsive while a refresh is in flight.
type TokenManager struct {
	refresher driven.TokenRefresher
	store     driven.CredentialsStore
	window    time.Duration
	now       func() time.Time

	refreshMu  sync.Mutex
	refreshing atomic.Bool

	stateMu sync.RWMutex
	creds   domain.Credentials
	invalid bool
}

// TokenManagerOption configures a TokenManager.
type TokenManagerOption func(*TokenManager)

// WithRefreshWindow overrides the proactive refresh window.
func WithRefreshWindow(d time.Duration) TokenManagerOption {
	return func(m *TokenManager) { m.window = d }
}

// WithClock overrides the time source. Useful for testing.
func WithClock(now func() time.Time) TokenManagerOption {
	return func(m *TokenManager) { m.now = now }
}

// NewTokenManager creates a token manager seeded with bootstrap credentials.
// The store is optional; without it, token state lives in memory only.
func NewTokenManager(
	bootstrap domain.Credentials,
	refresher driven.TokenRefresher,
	store driven.CredentialsStore,
	opts ...TokenManagerOption,
) *TokenManager {
	m := &TokenManager{
		refresher: refresher,
		store:     store,
		window:    defaultRefreshWindow,
		now:       time.Now,
		creds:     bootstrap,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load restores persisted credentials. The side file supersedes the
// bootstrap configuration, but only while its refresh token is still
// unexpired; a stale file leaves the manager invalid until an operator
// re-authorizes. Read failures are warnings: the in-memory state stands.
func (m *TokenManager) Load() {
	if m.store == nil {
		return
	}

	loaded, err := m.store.Load()
	if err != nil {
		logger.Warn("Failed to load credential file %s: %v", m.store.Path(), err)
		return
	}
	if loaded == nil {
		return
	}

	if loaded.RefreshExpired(m.now()) {
		m.stateMu.Lock()
		m.invalid = true
		m.stateMu.Unlock()
		logger.Warn("Persisted refresh token expired at %s; re-authorization required",
			loaded.RefreshExpiresAt.Format(time.RFC3339))
		return
	}

	m.stateMu.Lock()
	m.creds = *loaded
	m.invalid = false
	m.stateMu.Unlock()
	logger.Info("Loaded credentials from %s (access expires %s)",
		m.store.Path(), loaded.AccessExpiresAt.Format(time.RFC3339))
}

// EnsureValid returns a currently-valid access token, blocking through a
// refresh when the token is missing, expired, or inside the proactive
// window. It fails fast once the manager is invalid.
func (m *TokenManager) EnsureValid(ctx context.Context) (string, error) {
	m.stateMu.RLock()
	creds, invalid := m.creds, m.invalid
	m.stateMu.RUnlock()

	if invalid {
		return "", domain.ErrCredentialsInvalid
	}
	if !creds.NeedsRefresh(m.now(), m.window) {
		return creds.AccessToken, nil
	}

	if err := m.refreshIfStale(ctx, creds.AccessToken); err != nil {
		return "", err
	}

	m.stateMu.RLock()
	token := m.creds.AccessToken
	m.stateMu.RUnlock()
	return token, nil
}

// Refresh forces one refresh round-trip. Concurrent callers share a single
// network call: whoever loses the race on the gate observes the rotated
// pair and returns without a second exchange.
func (m *TokenManager) Refresh(ctx context.Context) error {
	m.stateMu.RLock()
	prev := m.creds.AccessToken
	m.stateMu.RUnlock()
	return m.refreshIfStale(ctx, prev)
}

// refreshIfStale performs the refresh transition unless another caller
// already rotated the pair after prevToken was observed.
func (m *TokenManager) refreshIfStale(ctx context.Context, prevToken string) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	m.stateMu.RLock()
	creds, invalid := m.creds, m.invalid
	m.stateMu.RUnlock()

	if invalid {
		return domain.ErrCredentialsInvalid
	}
	// Someone else refreshed while we waited on the gate.
	if creds.AccessToken != prevToken && !creds.NeedsRefresh(m.now(), m.window) {
		return nil
	}
	if !creds.HasRefreshToken() {
		m.markInvalid()
		return domain.ErrNoRefreshToken
	}

	m.refreshing.Store(true)
	defer m.refreshing.Store(false)

	fresh, err := m.refresher.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		if domain.IsTerminalCredentialError(err) {
			m.markInvalid()
			logger.Warn("Refresh failed terminally, re-authorization required: %v", err)
		}
		return fmt.Errorf("refresh access token: %w", err)
	}

	fresh.UpdatedAt = m.now()
	m.stateMu.Lock()
	m.creds = *fresh
	m.invalid = false
	m.stateMu.Unlock()

	m.persist(*fresh)
	logger.Info("Access token refreshed, expires %s", fresh.AccessExpiresAt.Format(time.RFC3339))
	return nil
}

// Reauthorize installs an externally obtained refresh token and clears the
// terminal invalid state. The next EnsureValid call mints an access token.
func (m *TokenManager) Reauthorize(_ context.Context, refreshToken string, refreshExpiresIn int64) error {
	if refreshToken == "" {
		return domain.ErrInvalidInput
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	now := m.now()
	creds := domain.Credentials{
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(time.Duration(refreshExpiresIn) * time.Second),
		UpdatedAt:        now,
	}

	m.stateMu.Lock()
	m.creds = creds
	m.invalid = false
	m.stateMu.Unlock()

	m.persist(creds)
	logger.Info("New refresh token installed, expires %s", creds.RefreshExpiresAt.Format(time.RFC3339))
	return nil
}

// State reports the lifecycle state for health checks.
func (m *TokenManager) State() domain.TokenState {
	if m.refreshing.Load() {
		return domain.TokenStateRefreshing
	}

	m.stateMu.RLock()
	defer m.stateMu.RUnlock()

	now := m.now()
	switch {
	case m.invalid:
		return domain.TokenStateInvalid
	case m.creds.NeedsRefresh(now, m.window):
		return domain.TokenStateNearExpiry
	default:
		return domain.TokenStateValid
	}
}

// Status returns a credential health snapshot for the control surface.
func (m *TokenManager) Status() domain.TokenStatus {
	state := m.State()

	m.stateMu.RLock()
	creds := m.creds
	m.stateMu.RUnlock()

	now := m.now()
	return domain.TokenStatus{
		HasAccessToken:   creds.AccessToken != "",
		HasRefreshToken:  creds.HasRefreshToken(),
		AccessExpiresIn:  remainingSeconds(creds.AccessExpiresAt, now),
		RefreshExpiresIn: remainingSeconds(creds.RefreshExpiresAt, now),
		AccessExpired:    creds.AccessExpired(now),
		RefreshExpired:   creds.RefreshExpired(now),
		State:            state,
	}
}

func (m *TokenManager) markInvalid() {
	m.stateMu.Lock()
	m.invalid = true
	m.stateMu.Unlock()
}

// persist writes the record to the side file. Persistence failures are
// non-fatal: the in-memory state is authoritative until the next refresh.
func (m *TokenManager) persist(creds domain.Credentials) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(creds); err != nil {
		logger.Warn("Failed to persist credentials to %s: %v", m.store.Path(), err)
	}
}

func remainingSeconds(expiry, now time.Time) int64 {
	if expiry.IsZero() {
		return 0
	}
	left := int64(expiry.Sub(now).Seconds())
	if left < 0 {
		return 0
	}
	return left
}
