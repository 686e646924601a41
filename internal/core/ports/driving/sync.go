package driving

import (
	"context"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
)

// SyncOrchestrator produces and publishes one consistent snapshot of
// outstanding tasks per invocation.
type SyncOrchestrator interface {
	// Run executes one fetch → filter → sort → transform → publish cycle.
	// Fails with domain.ErrSyncInProgress when a cycle is already running.
	Run(ctx context.Context) (domain.SyncResult, error)
}
