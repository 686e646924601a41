package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driven"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driving"
)

// tickInterval is how often the scheduler checks for due tasks. Sync
// intervals can be as short as tens of seconds, so the tick is finer than
// the shortest expected task interval.
const tickInterval = 15 * time.Second

// historyRetention is how many run results are kept per task.
const historyRetention = 100

// Scheduler drives the two periodic activities: the full task sync and the
// hourly credential health check. Task state and run history go through the
// store so both survive restarts. One tick's failure never stops the loop;
// every tick is independent.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	syncOrch driving.SyncOrchestrator
	tokens   driving.TokenService

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncOrch driving.SyncOrchestrator,
	tokens driving.TokenService,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		syncOrch: syncOrch,
		tokens:   tokens,
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		log.Printf("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler. In-flight runs complete on
// their own; only future firings are cancelled.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for running tasks to complete
	s.wg.Wait()

	return nil
}

// initialiseTasks writes the built-in tasks through to the store. This runs
// unconditionally so that disabling a task in configuration also disables a
// previously persisted enabled row.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if err := s.ensureTask(ctx, domain.TaskIDTaskSync, "Task Sync",
		s.config.GetTaskConfig(domain.TaskIDTaskSync)); err != nil {
		return err
	}

	return s.ensureTask(ctx, domain.TaskIDTokenCheck, "Credential Check",
		s.config.GetTaskConfig(domain.TaskIDTokenCheck))
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			// Recalculate next run from now
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		log.Printf("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &domain.TaskRunResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDTaskSync:
			result.ItemsProcessed, err = s.runTaskSync(ctx)
		case domain.TaskIDTokenCheck:
			err = s.runTokenCheck(ctx)
		default:
			log.Printf("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
			log.Printf("scheduler: task %s failed: %v", task.ID, err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		// Update task state
		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			log.Printf("scheduler: failed to save task %s: %v", task.ID, saveErr)
		}

		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			log.Printf("scheduler: failed to record result for %s: %v", task.ID, recordErr)
		}

		if pruneErr := s.store.PruneHistory(ctx, historyRetention); pruneErr != nil {
			log.Printf("scheduler: failed to prune history: %v", pruneErr)
		}
	}()
}

// runTaskSync runs one sync cycle and reports how many tasks it published.
// The pipeline serializes itself; an overlapping tick surfaces as
// ErrSyncInProgress and is recorded like any other failure.
func (s *Scheduler) runTaskSync(ctx context.Context) (int, error) {
	if s.syncOrch == nil {
		return 0, nil
	}

	result, err := s.syncOrch.Run(ctx)
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}

// runTokenCheck proactively validates the access token, refreshing it when
// near expiry. This bounds worst-case token staleness during long gaps
// between syncs.
func (s *Scheduler) runTokenCheck(ctx context.Context) error {
	if s.tokens == nil {
		return nil
	}

	_, err := s.tokens.EnsureValid(ctx)
	return err
}
