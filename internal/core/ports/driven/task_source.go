package driven

import (
	"context"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
)

// TaskSource fetches the caller's task records from the upstream API.
type TaskSource interface {
	// ListTasks returns all tasks visible to the holder of accessToken.
	// A rejected or expired token maps to domain.ErrAuthRejected so the
	// pipeline can run its one-shot refresh-and-retry.
	ListTasks(ctx context.Context, accessToken string) ([]domain.Task, error)
}
