package domain

// Task status values. Only StatusTodo is acted on; other values are opaque
// upstream states and are dropped during sync.
const StatusTodo = "todo"

// Task is an immutable snapshot of an upstream task record, fetched fresh
// each sync cycle. No task state persists locally between cycles.
type Task struct {
	// ID is the provider's opaque task identifier.
	ID string
	// Summary is the task title.
	Summary string
	// Description is free-form text, possibly empty.
	Description string
	// Status is the provider status string ("todo", "done", ...).
	Status string
	// CreatedAt, UpdatedAt and CompletedAt are provider-formatted instants,
	// passed through unmodified. Empty when not set.
	CreatedAt   string
	UpdatedAt   string
	CompletedAt string
	// Due is the due instant, nil when the task has no due date.
	Due *Due
}

// Due describes a task's due instant.
type Due struct {
	// Timestamp is the due instant in Unix milliseconds.
	Timestamp int64
	// IsAllDay marks a date-only due with no meaningful time of day.
	IsAllDay bool
}

// IsTodo returns true if the task is outstanding.
func (t Task) IsTodo() bool {
	return t.Status == StatusTodo
}

// PublishedTask is the canonical wire record published to the broker.
// It decouples the publish schema from the upstream API's raw shape; the
// JSON field names are the stable contract consumed by subscribers.
type PublishedTask struct {
	TaskID       string `json:"taskId"`
	Summary      string `json:"summary"`
	Description  string `json:"description,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
	CompletedAt  string `json:"completedAt,omitempty"`
	DueTimestamp *int64 `json:"dueTimestamp,omitempty"`
	DueIsAllDay  *bool  `json:"dueIsAllDay,omitempty"`
}

// ToPublished converts a task to its canonical publish record.
func (t Task) ToPublished() PublishedTask {
	p := PublishedTask{
		TaskID:      t.ID,
		Summary:     t.Summary,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.Due != nil {
		ts := t.Due.Timestamp
		allDay := t.Due.IsAllDay
		p.DueTimestamp = &ts
		p.DueIsAllDay = &allDay
	}
	return p
}
