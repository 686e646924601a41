package domain

import "time"

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// TaskRunResult represents the outcome of a scheduled task execution.
type TaskRunResult struct {
	// TaskID identifies which task was run.
	TaskID string `json:"taskId"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"startedAt"`

	// EndedAt is when the run completed.
	EndedAt time.Time `json:"endedAt"`

	// Success indicates whether the run completed without error.
	Success bool `json:"success"`

	// Error contains the error message if Success is false.
	Error string `json:"error,omitempty"`

	// ItemsProcessed is a count of items handled (tasks published).
	ItemsProcessed int `json:"itemsProcessed"`
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// TaskConfigs holds per-task configuration.
	TaskConfigs map[string]TaskConfig
}

// TaskConfig holds configuration for a single task.
type TaskConfig struct {
	// Enabled indicates whether this task should run.
	Enabled bool

	// Interval defines how often the task should run.
	Interval time.Duration
}

// GetTaskConfig returns the configuration for a specific task.
// Returns a zero TaskConfig if the task is not configured.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// NewSchedulerConfig builds the scheduler configuration from the configured
// sync interval. A zero or negative interval disables the sync task; the
// credential check always runs hourly to bound worst-case token staleness
// during long gaps between syncs.
func NewSchedulerConfig(syncInterval time.Duration) SchedulerConfig {
	return SchedulerConfig{
		TaskConfigs: map[string]TaskConfig{
			TaskIDTaskSync: {
				Enabled:  syncInterval > 0,
				Interval: syncInterval,
			},
			TaskIDTokenCheck: {
				Enabled:  true,
				Interval: 1 * time.Hour,
			},
		},
	}
}

// Task IDs for built-in tasks.
const (
	TaskIDTaskSync   = "task-sync"
	TaskIDTokenCheck = "token-check"
)
