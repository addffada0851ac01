package clickup

import (
	"context"
	"sync"

	"github.com/taskpulse/taskpulse/internal/models"
)

// MockSource is a simple in-memory Source implementation for testing. It
// records every mutating call so tests can assert what the agent did.
type MockSource struct {
	mu sync.Mutex

	// Tasks is returned from FetchTasks; FetchFunc overrides it when set.
	Tasks     []models.Task
	FetchFunc func(ctx context.Context, filter Filter) ([]models.Task, error)

	// Details maps task id to the record TaskDetails returns. Missing ids
	// yield DetailsErr (or nil, nil when that is unset).
	Details    map[string]*models.Task
	DetailsErr error

	FieldErr   error
	CommentErr error
	StatusErr  error

	Fetches     []Filter
	FieldSets   []FieldSet
	Comments    []Comment
	StatusSets  []StatusSet
	DetailCalls []string
}

// FieldSet records one SetCustomField call.
type FieldSet struct {
	TaskID  string
	FieldID string
	Value   any
}

// Comment records one AddComment call.
type Comment struct {
	TaskID string
	Text   string
}

// StatusSet records one SetStatus call.
type StatusSet struct {
	TaskID string
	Status string
}

// NewMockSource creates a mock source serving the given tasks.
func NewMockSource(tasks ...models.Task) *MockSource {
	return &MockSource{Tasks: tasks, Details: map[string]*models.Task{}}
}

func (m *MockSource) FetchTasks(ctx context.Context, filter Filter) ([]models.Task, error) {
	m.mu.Lock()
	m.Fetches = append(m.Fetches, filter)
	m.mu.Unlock()
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, filter)
	}
	return append([]models.Task{}, m.Tasks...), nil
}

func (m *MockSource) TaskDetails(ctx context.Context, taskID string) (*models.Task, error) {
	m.mu.Lock()
	m.DetailCalls = append(m.DetailCalls, taskID)
	m.mu.Unlock()
	if task, ok := m.Details[taskID]; ok {
		return task, nil
	}
	return nil, m.DetailsErr
}

func (m *MockSource) SetCustomField(ctx context.Context, taskID, fieldID string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FieldErr != nil {
		return m.FieldErr
	}
	m.FieldSets = append(m.FieldSets, FieldSet{TaskID: taskID, FieldID: fieldID, Value: value})
	return nil
}

func (m *MockSource) AddComment(ctx context.Context, taskID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CommentErr != nil {
		return m.CommentErr
	}
	m.Comments = append(m.Comments, Comment{TaskID: taskID, Text: text})
	return nil
}

func (m *MockSource) SetStatus(ctx context.Context, taskID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StatusErr != nil {
		return m.StatusErr
	}
	m.StatusSets = append(m.StatusSets, StatusSet{TaskID: taskID, Status: status})
	return nil
}
