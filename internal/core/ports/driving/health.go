package driving

import "github.com/custodia-labs/taskbridge/internal/core/domain"

// HealthReporter aggregates component states into one service health
// snapshot.
type HealthReporter interface {
	// Health returns the current snapshot.
	Health() domain.Health
}
