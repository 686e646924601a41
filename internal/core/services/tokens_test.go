package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driven"
)

// --- Mock implementations for token manager testing ---

// mockRefresher implements driven.TokenRefresher and counts network calls.
type mockRefresher struct {
	mu      sync.Mutex
	calls   int
	err     error
	delay   time.Duration
	nextSeq int
}

func (m *mockRefresher) Refresh(_ context.Context, refreshToken string) (*domain.Credentials, error) {
	m.mu.Lock()
	m.calls++
	m.nextSeq++
	seq := m.nextSeq
	err := m.err
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, domain.ErrNoRefreshToken
	}

	now := time.Now()
	return &domain.Credentials{
		AccessToken:      "access-" + string(rune('0'+seq)),
		RefreshToken:     "refresh-" + string(rune('0'+seq)),
		AccessExpiresAt:  now.Add(2 * time.Hour),
		RefreshExpiresAt: now.Add(30 * 24 * time.Hour),
	}, nil
}

func (m *mockRefresher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockCredentialsStore implements driven.CredentialsStore in memory.
type mockCredentialsStore struct {
	mu      sync.Mutex
	saved   *domain.Credentials
	saveErr error
	loadErr error
}

func (m *mockCredentialsStore) Save(creds domain.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	saved := creds
	m.saved = &saved
	return nil
}

func (m *mockCredentialsStore) Load() (*domain.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.saved == nil {
		return nil, nil
	}
	loaded := *m.saved
	return &loaded, nil
}

func (m *mockCredentialsStore) Path() string { return "/tmp/tokens.json" }

// Ensure mocks implement interfaces
var _ driven.TokenRefresher = (*mockRefresher)(nil)
var _ driven.CredentialsStore = (*mockCredentialsStore)(nil)

func freshBootstrap() domain.Credentials {
	now := time.Now()
	return domain.Credentials{
		AccessToken:      "bootstrap-access",
		RefreshToken:     "bootstrap-refresh",
		AccessExpiresAt:  now.Add(2 * time.Hour),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

// ==================== TokenManager Tests ====================

func TestTokenManager_EnsureValid_NoRefreshWhenFresh(t *testing.T) {
	refresher := &mockRefresher{}
	mgr := NewTokenManager(freshBootstrap(), refresher, nil)

	token, err := mgr.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bootstrap-access", token)
	assert.Equal(t, 0, refresher.callCount())
}

func TestTokenManager_EnsureValid_RefreshesNearExpiry(t *testing.T) {
	refresher := &mockRefresher{}
	creds := freshBootstrap()
	creds.AccessExpiresAt = time.Now().Add(3 * time.Minute) // inside the 5min window
	mgr := NewTokenManager(creds, refresher, nil)

	token, err := mgr.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, 1, refresher.callCount())

	// Second call uses the fresh token without another round-trip.
	token, err = mgr.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, 1, refresher.callCount())
}

func TestTokenManager_EnsureValid_RefreshesExpired(t *testing.T) {
	refresher := &mockRefresher{}
	creds := freshBootstrap()
	creds.AccessExpiresAt = time.Now().Add(-1 * time.Minute)
	mgr := NewTokenManager(creds, refresher, nil)

	token, err := mgr.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, 1, refresher.callCount())
}

func TestTokenManager_SingleFlight_ConcurrentCallers(t *testing.T) {
	refresher := &mockRefresher{delay: 50 * time.Millisecond}
	creds := freshBootstrap()
	creds.AccessExpiresAt = time.Now().Add(1 * time.Minute)
	mgr := NewTokenManager(creds, refresher, nil)

	const callers = 10
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = mgr.EnsureValid(context.Background())
		}(i)
	}
	wg.Wait()

	// Rotating refresh tokens make a second concurrent exchange
	// destructive, so all callers must share one network call.
	assert.Equal(t, 1, refresher.callCount())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "access-1", tokens[i])
	}
}

func TestTokenManager_SingleFlight_ExplicitRefresh(t *testing.T) {
	refresher := &mockRefresher{delay: 50 * time.Millisecond}
	mgr := NewTokenManager(freshBootstrap(), refresher, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = mgr.Refresh(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, refresher.callCount())
}

func TestTokenManager_Refresh_RotatesWholeRecord(t *testing.T) {
	refresher := &mockRefresher{}
	store := &mockCredentialsStore{}
	mgr := NewTokenManager(freshBootstrap(), refresher, store)

	require.NoError(t, mgr.Refresh(context.Background()))

	// The persisted record carries the rotated pair, not a partial update.
	require.NotNil(t, store.saved)
	assert.Equal(t, "access-1", store.saved.AccessToken)
	assert.Equal(t, "refresh-1", store.saved.RefreshToken)
	assert.False(t, store.saved.UpdatedAt.IsZero())
}

func TestTokenManager_TerminalFailure_BecomesInvalid(t *testing.T) {
	refresher := &mockRefresher{err: domain.ErrRefreshTokenRevoked}
	creds := freshBootstrap()
	creds.AccessExpiresAt = time.Now().Add(-1 * time.Minute)
	mgr := NewTokenManager(creds, refresher, nil)

	_, err := mgr.EnsureValid(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenRevoked)
	assert.Equal(t, domain.TokenStateInvalid, mgr.State())

	// Invalid state fails fast without hitting the provider again.
	_, err = mgr.EnsureValid(context.Background())
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
	assert.Equal(t, 1, refresher.callCount())
}

func TestTokenManager_NetworkFailure_NotTerminal(t *testing.T) {
	refresher := &mockRefresher{err: errors.New("connection refused")}
	creds := freshBootstrap()
	creds.AccessExpiresAt = time.Now().Add(-1 * time.Minute)
	mgr := NewTokenManager(creds, refresher, nil)

	_, err := mgr.EnsureValid(context.Background())
	require.Error(t, err)
	assert.NotEqual(t, domain.TokenStateInvalid, mgr.State())

	// A transient failure leaves the manager retryable.
	refresher.mu.Lock()
	refresher.err = nil
	refresher.mu.Unlock()

	token, err := mgr.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
}

func TestTokenManager_NoRefreshToken(t *testing.T) {
	refresher := &mockRefresher{}
	creds := domain.Credentials{AccessToken: "short-lived"}
	creds.AccessExpiresAt = time.Now().Add(-1 * time.Minute)
	mgr := NewTokenManager(creds, refresher, nil)

	_, err := mgr.EnsureValid(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoRefreshToken)
	assert.Equal(t, domain.TokenStateInvalid, mgr.State())
	assert.Equal(t, 0, refresher.callCount())
}

func TestTokenManager_Load_AdoptsPersistedState(t *testing.T) {
	refresher := &mockRefresher{}
	now := time.Now()
	persisted := domain.Credentials{
		AccessToken:      "persisted-access",
		RefreshToken:     "persisted-refresh",
		AccessExpiresAt:  now.Add(1 * time.Hour),
		RefreshExpiresAt: now.Add(48 * time.Hour),
	}
	store := &mockCredentialsStore{saved: &persisted}

	mgr := NewTokenManager(freshBootstrap(), refresher, store)
	mgr.Load()

	token, err := mgr.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "persisted-access", token)
}

func TestTokenManager_Load_StaleFileMeansInvalid(t *testing.T) {
	refresher := &mockRefresher{}
	now := time.Now()
	persisted := domain.Credentials{
		AccessToken:      "persisted-access",
		RefreshToken:     "persisted-refresh",
		AccessExpiresAt:  now.Add(-2 * time.Hour),
		RefreshExpiresAt: now.Add(-1 * time.Hour),
	}
	store := &mockCredentialsStore{saved: &persisted}

	mgr := NewTokenManager(freshBootstrap(), refresher, store)
	mgr.Load()

	// The stale persisted state is not adopted and the manager does not
	// silently fall back to bootstrap credentials either.
	assert.Equal(t, domain.TokenStateInvalid, mgr.State())
	_, err := mgr.EnsureValid(context.Background())
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
}

func TestTokenManager_Load_ReadFailureKeepsBootstrap(t *testing.T) {
	refresher := &mockRefresher{}
	store := &mockCredentialsStore{loadErr: errors.New("corrupt file")}

	mgr := NewTokenManager(freshBootstrap(), refresher, store)
	mgr.Load()

	token, err := mgr.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "bootstrap-access", token)
}

func TestTokenManager_PersistFailureIsNonFatal(t *testing.T) {
	refresher := &mockRefresher{}
	store := &mockCredentialsStore{saveErr: errors.New("disk full")}
	mgr := NewTokenManager(freshBootstrap(), refresher, store)

	require.NoError(t, mgr.Refresh(context.Background()))

	// In-memory state advanced despite the failed write.
	token, err := mgr.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", token)
}

func TestTokenManager_Reauthorize_ClearsInvalid(t *testing.T) {
	refresher := &mockRefresher{err: domain.ErrRefreshTokenExpired}
	creds := freshBootstrap()
	creds.AccessExpiresAt = time.Now().Add(-1 * time.Minute)
	mgr := NewTokenManager(creds, refresher, nil)

	_, err := mgr.EnsureValid(context.Background())
	require.Error(t, err)
	require.Equal(t, domain.TokenStateInvalid, mgr.State())

	refresher.mu.Lock()
	refresher.err = nil
	refresher.mu.Unlock()

	require.NoError(t, mgr.Reauthorize(context.Background(), "new-refresh", 7*24*3600))
	token, err := mgr.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", token)
}

func TestTokenManager_Reauthorize_EmptyToken(t *testing.T) {
	mgr := NewTokenManager(freshBootstrap(), &mockRefresher{}, nil)
	err := mgr.Reauthorize(context.Background(), "", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTokenManager_Status(t *testing.T) {
	now := time.Now()
	creds := domain.Credentials{
		AccessToken:      "tok",
		RefreshToken:     "ref",
		AccessExpiresAt:  now.Add(1 * time.Hour),
		RefreshExpiresAt: now.Add(-1 * time.Minute),
	}
	mgr := NewTokenManager(creds, &mockRefresher{}, nil)

	status := mgr.Status()
	assert.True(t, status.HasAccessToken)
	assert.True(t, status.HasRefreshToken)
	assert.False(t, status.AccessExpired)
	assert.True(t, status.RefreshExpired)
	assert.InDelta(t, 3600, status.AccessExpiresIn, 5)
	assert.Equal(t, int64(0), status.RefreshExpiresIn)
	assert.Equal(t, domain.TokenStateValid, status.State)
}
