package services

import (
	"time"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driven"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driving"
)

// Ensure HealthService implements the interface.
var _ driving.HealthReporter = (*HealthService)(nil)

// HealthService assembles the health snapshot from the broker connection and
// the credential state. It holds no state of its own.
type HealthService struct {
	publisher driven.Publisher
	tokens    driving.TokenService
	autoSync  bool
}

// NewHealthService creates a health reporter. autoSync reflects whether the
// periodic sync task is enabled.
func NewHealthService(publisher driven.Publisher, tokens driving.TokenService, autoSync bool) *HealthService {
	return &HealthService{
		publisher: publisher,
		tokens:    tokens,
		autoSync:  autoSync,
	}
}

// Health returns the current snapshot.
func (h *HealthService) Health() domain.Health {
	brokerState := h.publisher.State()
	tokenStatus := h.tokens.Status()

	return domain.Health{
		BrokerState:     brokerState,
		BrokerConnected: brokerState == domain.ConnConnected,
		HasAccessToken:  tokenStatus.HasAccessToken,
		AccessExpired:   tokenStatus.AccessExpired,
		AutoSyncEnabled: h.autoSync,
		Timestamp:       time.Now(),
	}
}
