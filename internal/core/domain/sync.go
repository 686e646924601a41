package domain

import "time"

// SyncResult is the outcome of one sync cycle. It is returned to the caller
// and recorded in run history, never used as input to later cycles.
type SyncResult struct {
	// Success is true if the full ordered list was published.
	Success bool `json:"success"`
	// Count is the number of tasks in the published payload.
	Count int `json:"count"`
	// SyncedAt is when the cycle completed.
	SyncedAt time.Time `json:"syncedAt"`
}

// ConnectionState describes the broker connection.
type ConnectionState string

const (
	// ConnConnected means the broker connection is established.
	ConnConnected ConnectionState = "connected"
	// ConnReconnecting means the client lost the connection and is retrying.
	ConnReconnecting ConnectionState = "reconnecting"
	// ConnDisconnected means there is no connection and no retry in flight.
	ConnDisconnected ConnectionState = "disconnected"
)

// Health is the aggregate service health snapshot for the control surface.
type Health struct {
	BrokerState     ConnectionState `json:"brokerState"`
	BrokerConnected bool            `json:"brokerConnected"`
	HasAccessToken  bool            `json:"hasAccessToken"`
	AccessExpired   bool            `json:"accessExpired"`
	AutoSyncEnabled bool            `json:"autoSyncEnabled"`
	Timestamp       time.Time       `json:"timestamp"`
}
