package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driven"
	"github.com/custodia-labs/taskbridge/internal/core/ports/driving"
)

// --- Mock implementations for pipeline testing ---

// mockTokenService implements driving.TokenService.
type mockTokenService struct {
	mu           sync.Mutex
	token        string
	ensureErr    error
	refreshErr   error
	refreshCalls int
}

func (m *mockTokenService) EnsureValid(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ensureErr != nil {
		return "", m.ensureErr
	}
	return m.token, nil
}

func (m *mockTokenService) Refresh(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshCalls++
	if m.refreshErr != nil {
		return m.refreshErr
	}
	m.token = "refreshed-" + m.token
	return nil
}

func (m *mockTokenService) Reauthorize(_ context.Context, _ string, _ int64) error { return nil }

func (m *mockTokenService) Status() domain.TokenStatus { return domain.TokenStatus{} }

// mockTaskSource implements driven.TaskSource with scripted responses.
type mockTaskSource struct {
	mu        sync.Mutex
	responses []listResponse
	calls     int
}

type listResponse struct {
	tasks []domain.Task
	err   error
}

func (m *mockTaskSource) ListTasks(_ context.Context, _ string) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	m.calls++
	return resp.tasks, resp.err
}

func (m *mockTaskSource) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockPublisher implements driven.Publisher, retaining the last payload per
// topic like a broker would.
type mockPublisher struct {
	mu       sync.Mutex
	state    domain.ConnectionState
	retained map[string][]byte
	publErr  error
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{
		state:    domain.ConnConnected,
		retained: make(map[string][]byte),
	}
}

func (m *mockPublisher) Publish(_ context.Context, topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != domain.ConnConnected {
		return domain.ErrNotConnected
	}
	if m.publErr != nil {
		return m.publErr
	}
	m.retained[topic] = payload
	return nil
}

func (m *mockPublisher) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *mockPublisher) lastPayload(topic string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retained[topic]
}

// Ensure mocks implement interfaces
var _ driving.TokenService = (*mockTokenService)(nil)
var _ driven.TaskSource = (*mockTaskSource)(nil)
var _ driven.Publisher = (*mockPublisher)(nil)

func due(ts int64) *domain.Due { return &domain.Due{Timestamp: ts} }

// ==================== Filter and sort tests ====================

func TestFilterTodo_DropsOtherStatuses(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", Status: "todo", Due: due(100)},
		{ID: "b", Status: "done", Due: due(1)},
		{ID: "c", Status: "todo"},
		{ID: "d", Status: "cancelled"},
	}

	todo := filterTodo(tasks)

	require.Len(t, todo, 2)
	assert.Equal(t, "a", todo[0].ID)
	assert.Equal(t, "c", todo[1].ID)
}

func TestOrderByDue_UndatedSortLast(t *testing.T) {
	// [none, 300, none, 100] must become [100, 300, none, none] with the
	// two undated entries keeping their relative fetch order.
	tasks := []domain.Task{
		{ID: "n1", Status: "todo"},
		{ID: "d300", Status: "todo", Due: due(300)},
		{ID: "n2", Status: "todo"},
		{ID: "d100", Status: "todo", Due: due(100)},
	}

	orderByDue(tasks)

	ids := []string{tasks[0].ID, tasks[1].ID, tasks[2].ID, tasks[3].ID}
	assert.Equal(t, []string{"d100", "d300", "n1", "n2"}, ids)
}

func TestOrderByDue_StableOnEqualDue(t *testing.T) {
	tasks := []domain.Task{
		{ID: "first", Status: "todo", Due: due(500)},
		{ID: "second", Status: "todo", Due: due(500)},
		{ID: "third", Status: "todo", Due: due(500)},
	}

	orderByDue(tasks)

	assert.Equal(t, "first", tasks[0].ID)
	assert.Equal(t, "second", tasks[1].ID)
	assert.Equal(t, "third", tasks[2].ID)
}

func TestFilterAndSort_Idempotent(t *testing.T) {
	build := func() []domain.Task {
		return []domain.Task{
			{ID: "n1", Status: "todo"},
			{ID: "d2", Status: "todo", Due: due(200)},
			{ID: "x", Status: "done", Due: due(50)},
			{ID: "d1", Status: "todo", Due: due(100)},
		}
	}

	once := filterTodo(build())
	orderByDue(once)

	twice := filterTodo(once)
	orderByDue(twice)

	assert.Equal(t, once, twice)
}

// ==================== Pipeline tests ====================

func TestSyncPipeline_Run_EndToEnd(t *testing.T) {
	tokens := &mockTokenService{token: "valid"}
	source := &mockTaskSource{responses: []listResponse{{tasks: []domain.Task{
		{ID: "t1", Summary: "dated", Status: "todo", Due: due(500)},
		{ID: "t2", Summary: "finished", Status: "done", Due: due(100)},
		{ID: "t3", Summary: "undated", Status: "todo"},
	}}}}
	publisher := newMockPublisher()
	pipeline := NewSyncPipeline(tokens, source, publisher, "home/desk")

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Count)
	assert.False(t, result.SyncedAt.IsZero())

	payload := publisher.lastPayload("home/desk/tasks")
	require.NotNil(t, payload)

	var published []domain.PublishedTask
	require.NoError(t, json.Unmarshal(payload, &published))
	require.Len(t, published, 2)
	assert.Equal(t, "t1", published[0].TaskID)
	require.NotNil(t, published[0].DueTimestamp)
	assert.Equal(t, int64(500), *published[0].DueTimestamp)
	assert.Equal(t, "t3", published[1].TaskID)
	assert.Nil(t, published[1].DueTimestamp)
}

func TestSyncPipeline_Run_EmptyListStillPublishes(t *testing.T) {
	tokens := &mockTokenService{token: "valid"}
	source := &mockTaskSource{responses: []listResponse{{tasks: nil}}}
	publisher := newMockPublisher()
	pipeline := NewSyncPipeline(tokens, source, publisher, "base")

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)

	// Full-replacement semantics: an empty cycle publishes an empty
	// array, not nothing.
	assert.Equal(t, "[]", string(publisher.lastPayload("base/tasks")))
}

func TestSyncPipeline_AuthRejected_OneRefreshOneRetry(t *testing.T) {
	tokens := &mockTokenService{token: "stale"}
	source := &mockTaskSource{responses: []listResponse{
		{err: domain.ErrAuthRejected},
		{tasks: []domain.Task{{ID: "t1", Status: "todo"}}},
	}}
	publisher := newMockPublisher()
	pipeline := NewSyncPipeline(tokens, source, publisher, "base")

	result, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Count)
	assert.Equal(t, 1, tokens.refreshCalls)
	assert.Equal(t, 2, source.callCount())
}

func TestSyncPipeline_AuthRejectedTwice_Terminal(t *testing.T) {
	tokens := &mockTokenService{token: "stale"}
	source := &mockTaskSource{responses: []listResponse{
		{err: domain.ErrAuthRejected},
		{err: domain.ErrAuthRejected},
	}}
	publisher := newMockPublisher()
	pipeline := NewSyncPipeline(tokens, source, publisher, "base")

	_, err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthRejected)

	// Exactly one refresh and exactly two fetch attempts, never a loop.
	assert.Equal(t, 1, tokens.refreshCalls)
	assert.Equal(t, 2, source.callCount())
	assert.Nil(t, publisher.lastPayload("base/tasks"))
}

func TestSyncPipeline_RefreshFailure_SurfacesWithoutRetry(t *testing.T) {
	tokens := &mockTokenService{token: "stale", refreshErr: domain.ErrRefreshTokenExpired}
	source := &mockTaskSource{responses: []listResponse{{err: domain.ErrAuthRejected}}}
	publisher := newMockPublisher()
	pipeline := NewSyncPipeline(tokens, source, publisher, "base")

	_, err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRefreshTokenExpired)
	assert.Equal(t, 1, source.callCount())
}

func TestSyncPipeline_OtherFetchError_NoRetry(t *testing.T) {
	tokens := &mockTokenService{token: "valid"}
	source := &mockTaskSource{responses: []listResponse{{err: errors.New("connection reset")}}}
	publisher := newMockPublisher()
	pipeline := NewSyncPipeline(tokens, source, publisher, "base")

	_, err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, tokens.refreshCalls)
	assert.Equal(t, 1, source.callCount())
}

func TestSyncPipeline_PublishWhileDisconnected(t *testing.T) {
	tokens := &mockTokenService{token: "valid"}
	source := &mockTaskSource{responses: []listResponse{{tasks: []domain.Task{
		{ID: "t1", Status: "todo"},
	}}}}
	publisher := newMockPublisher()

	// Seed a previously retained snapshot, then drop the connection.
	require.NoError(t, publisher.Publish(context.Background(), "base/tasks", []byte(`[{"taskId":"old"}]`)))
	publisher.mu.Lock()
	publisher.state = domain.ConnDisconnected
	publisher.mu.Unlock()

	pipeline := NewSyncPipeline(tokens, source, publisher, "base")
	_, err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	// The previously retained message is untouched; subscribers keep
	// seeing the last successful snapshot.
	assert.Equal(t, `[{"taskId":"old"}]`, string(publisher.lastPayload("base/tasks")))
}

func TestSyncPipeline_RejectsOverlappingRuns(t *testing.T) {
	tokens := &mockTokenService{token: "valid"}
	source := &mockTaskSource{responses: []listResponse{{tasks: nil}}}
	publisher := newMockPublisher()
	pipeline := NewSyncPipeline(tokens, source, publisher, "base")

	pipeline.mu.Lock()
	pipeline.running = true
	pipeline.mu.Unlock()

	_, err := pipeline.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)
}

func TestSyncPipeline_InvalidCredentials_FailFast(t *testing.T) {
	tokens := &mockTokenService{ensureErr: domain.ErrCredentialsInvalid}
	source := &mockTaskSource{responses: []listResponse{{tasks: nil}}}
	publisher := newMockPublisher()
	pipeline := NewSyncPipeline(tokens, source, publisher, "base")

	_, err := pipeline.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
	assert.Equal(t, 0, source.callCount())
}
