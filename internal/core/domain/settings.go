package domain

import "time"

// LarkSettings holds identity-provider and task API configuration.
type LarkSettings struct {
	// AppID is the OAuth client identifier.
	AppID string

	// AppSecret is the OAuth client secret.
	AppSecret string

	// BaseURL is the API endpoint. Defaults to the public Lark Suite host.
	BaseURL string
}

// IsConfigured returns true if the app credentials are set.
func (l LarkSettings) IsConfigured() bool {
	return l.AppID != "" && l.AppSecret != ""
}

// BrokerSettings holds MQTT broker connection configuration.
type BrokerSettings struct {
	// URL is the broker address, e.g. "mqtts://broker.example.com:8883".
	URL string

	// Username authenticates the client to the broker.
	Username string

	// Password authenticates the client to the broker.
	Password string

	// BaseTopic is the topic prefix; task snapshots go to BaseTopic + "/tasks".
	BaseTopic string

	// CAFile is an optional path to a PEM CA bundle for TLS verification.
	// When empty, server certificates are not verified.
	CAFile string
}

// IsConfigured returns true if the broker address and topic are set.
func (b BrokerSettings) IsConfigured() bool {
	return b.URL != "" && b.BaseTopic != ""
}

// BootstrapSettings holds the initial token pair used when no persisted
// credential file exists yet. A persisted file with an unexpired refresh
// token always supersedes these values.
type BootstrapSettings struct {
	// AccessToken is the initial user access token.
	AccessToken string

	// RefreshToken is the initial refresh token.
	RefreshToken string

	// RefreshExpiresIn is the refresh token's remaining lifetime.
	RefreshExpiresIn time.Duration
}

// SyncSettings holds sync scheduling configuration.
type SyncSettings struct {
	// Interval is how often the full sync runs. Zero disables auto sync.
	Interval time.Duration
}

// HTTPSettings holds control-surface configuration.
type HTTPSettings struct {
	// Addr is the listen address for the control API and dashboard.
	Addr string
}

// Settings holds all application settings.
type Settings struct {
	// Lark holds identity-provider and task API settings.
	Lark LarkSettings

	// Broker holds MQTT broker settings.
	Broker BrokerSettings

	// Bootstrap holds the initial token pair.
	Bootstrap BootstrapSettings

	// Sync holds sync scheduling settings.
	Sync SyncSettings

	// HTTP holds control-surface settings.
	HTTP HTTPSettings

	// DataDir is where the credential file and run-history database live.
	// Empty means ~/.taskbridge.
	DataDir string
}

// DefaultSettings returns settings with sensible defaults. Credentials and
// broker access must be configured explicitly.
func DefaultSettings() Settings {
	return Settings{
		Lark: LarkSettings{
			BaseURL: "https://open.feishu.cn",
		},
		Bootstrap: BootstrapSettings{
			RefreshExpiresIn: 7 * 24 * time.Hour,
		},
		HTTP: HTTPSettings{
			Addr: ":3000",
		},
	}
}
