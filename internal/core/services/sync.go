package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driven"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driving"
	"github.com/custodia-labs/taskbridge/internal/logger"
)

// Ensure SyncPipeline implements the interface.
var _ driving.SyncOrchestrator = (*SyncPipeline)(nil)

// SyncPipeline produces one full snapshot of outstanding tasks per run and
// publishes it as a single retained message. Each run recomputes the whole
// list from the upstream source of truth; nothing carries over between
// cycles, so concurrent or repeated runs converge instead of corrupting
// state. The only non-idempotent dependency, token refresh, is serialized
// inside the token service.
type SyncPipeline struct {
	tokens    driving.TokenService
	source    driven.TaskSource
	publisher driven.Publisher
	baseTopic string

	mu      sync.Mutex
	running bool
}

// NewSyncPipeline creates a sync pipeline publishing to baseTopic + "/tasks".
func NewSyncPipeline(
	tokens driving.TokenService,
	source driven.TaskSource,
	publisher driven.Publisher,
	baseTopic string,
) *SyncPipeline {
	return &SyncPipeline{
		tokens:    tokens,
		source:    source,
		publisher: publisher,
		baseTopic: baseTopic,
	}
}

// Run executes one sync cycle: fetch all tasks, keep the outstanding ones,
// order them by due instant, and publish the full ordered list.
func (p *SyncPipeline) Run(ctx context.Context) (domain.SyncResult, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return domain.SyncResult{}, domain.ErrSyncInProgress
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	token, err := p.tokens.EnsureValid(ctx)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("sync tasks: %w", err)
	}

	tasks, err := p.fetchWithAuthRetry(ctx, token)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("sync tasks: %w", err)
	}
	logger.Debug("Fetched %d raw tasks", len(tasks))

	todo := filterTodo(tasks)
	orderByDue(todo)

	records := make([]domain.PublishedTask, len(todo))
	for i, task := range todo {
		records[i] = task.ToPublished()
	}

	payload, err := json.Marshal(records)
	if err != nil {
		return domain.SyncResult{}, fmt.Errorf("sync tasks: encode payload: %w", err)
	}

	topic := p.baseTopic + "/tasks"
	if err := p.publisher.Publish(ctx, topic, payload); err != nil {
		return domain.SyncResult{}, fmt.Errorf("sync tasks: publish to %s: %w", topic, err)
	}

	logger.Info("Published %d outstanding tasks to %s", len(records), topic)
	return domain.SyncResult{
		Success:  true,
		Count:    len(records),
		SyncedAt: time.Now(),
	}, nil
}

// fetchWithAuthRetry fetches the task list, allowing exactly one
// refresh-and-retry when the API rejects the presented token. A second
// rejection is terminal: looping here would hammer the identity provider
// when refresh itself is broken for a structural reason.
func (p *SyncPipeline) fetchWithAuthRetry(ctx context.Context, token string) ([]domain.Task, error) {
	tasks, err := p.source.ListTasks(ctx, token)
	if err == nil {
		return tasks, nil
	}
	if !errors.Is(err, domain.ErrAuthRejected) {
		return nil, err
	}

	logger.Warn("Access token rejected by task API, refreshing once")
	if err := p.tokens.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("refresh after rejection: %w", err)
	}
	token, err = p.tokens.EnsureValid(ctx)
	if err != nil {
		return nil, err
	}

	tasks, err = p.source.ListTasks(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("retry after refresh: %w", err)
	}
	return tasks, nil
}

// filterTodo keeps only outstanding tasks, preserving fetch order.
func filterTodo(tasks []domain.Task) []domain.Task {
	todo := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsTodo() {
			todo = append(todo, t)
		}
	}
	return todo
}

// orderByDue sorts ascending by due instant. Undated tasks sort after every
// dated one; ties and undated runs keep their relative fetch order so the
// published list renders a stable priority order.
func orderByDue(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return dueKey(tasks[i]) < dueKey(tasks[j])
	})
}

func dueKey(t domain.Task) int64 {
	if t.Due == nil {
		return math.MaxInt64
	}
	return t.Due.Timestamp
}
