package driven

import (
	"context"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
)

// Publisher delivers payloads to the message broker with retained
// last-value semantics: the broker keeps the most recent message per topic
// and hands it to every late subscriber on connect.
type Publisher interface {
	// Publish sends payload to topic and waits for broker acknowledgment.
	// Fails with domain.ErrNotConnected while the connection is down;
	// messages are never queued locally.
	Publish(ctx context.Context, topic string, payload []byte) error

	// State returns the current connection state.
	State() domain.ConnectionState
}
