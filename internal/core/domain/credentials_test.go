package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentials_AccessExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		expiry  time.Time
		expired bool
	}{
		{"future expiry", now.Add(1 * time.Hour), false},
		{"past expiry", now.Add(-1 * time.Minute), true},
		{"exactly now", now, true},
		{"zero expiry never expires", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Credentials{AccessToken: "tok", AccessExpiresAt: tt.expiry}
			assert.Equal(t, tt.expired, c.AccessExpired(now))
		})
	}
}

func TestCredentials_NeedsRefresh(t *testing.T) {
	now := time.Now()
	window := 5 * time.Minute

	tests := []struct {
		name  string
		creds Credentials
		needs bool
	}{
		{
			name:  "missing access token",
			creds: Credentials{},
			needs: true,
		},
		{
			name:  "well before expiry",
			creds: Credentials{AccessToken: "tok", AccessExpiresAt: now.Add(2 * time.Hour)},
			needs: false,
		},
		{
			name:  "inside refresh window",
			creds: Credentials{AccessToken: "tok", AccessExpiresAt: now.Add(3 * time.Minute)},
			needs: true,
		},
		{
			name:  "already expired",
			creds: Credentials{AccessToken: "tok", AccessExpiresAt: now.Add(-1 * time.Minute)},
			needs: true,
		},
		{
			name:  "no expiry tracked",
			creds: Credentials{AccessToken: "tok"},
			needs: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.needs, tt.creds.NeedsRefresh(now, window))
		})
	}
}

func TestCredentials_RefreshExpired(t *testing.T) {
	now := time.Now()

	c := Credentials{RefreshToken: "rt", RefreshExpiresAt: now.Add(24 * time.Hour)}
	assert.False(t, c.RefreshExpired(now))

	c.RefreshExpiresAt = now.Add(-1 * time.Second)
	assert.True(t, c.RefreshExpired(now))
}

func TestIsTerminalCredentialError(t *testing.T) {
	assert.True(t, IsTerminalCredentialError(ErrNoRefreshToken))
	assert.True(t, IsTerminalCredentialError(ErrRefreshTokenExpired))
	assert.True(t, IsTerminalCredentialError(ErrRefreshTokenRevoked))
	assert.True(t, IsTerminalCredentialError(ErrUnauthorizedClient))
	assert.False(t, IsTerminalCredentialError(ErrAuthRejected))
	assert.False(t, IsTerminalCredentialError(ErrNotConnected))
	assert.False(t, IsTerminalCredentialError(nil))
}
