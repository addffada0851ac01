// Package assess implements the scoring engine: it builds a bounded prompt
// context for a task, folds in the performer's trimmed history, calls the
// completion endpoint, and validates the structured response into an
// Assessment.
package assess

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taskpulse/taskpulse/internal/llm"
	"github.com/taskpulse/taskpulse/internal/models"
)

// DetailSource resolves full task records, typically via a per-run cache.
// A nil record with a nil error means details could not be retrieved; the
// engine degrades to the listing data it already has.
type DetailSource interface {
	TaskDetails(ctx context.Context, taskID string) (*models.Task, error)
}

// Engine produces one Assessment per task.
type Engine struct {
	client    llm.Client
	details   DetailSource
	maxTokens int64
	now       func() time.Time
}

// NewEngine builds an engine over the given completion client and detail
// source.
func NewEngine(client llm.Client, details DetailSource) *Engine {
	return &Engine{
		client:    client,
		details:   details,
		maxTokens: 10000,
		now:       time.Now,
	}
}

// Assess scores one task. The history slice is the performer's trimmed
// read-back from the ledger; it may be empty. The returned assessment
// always carries speed and quality in [1,5].
func (e *Engine) Assess(ctx context.Context, task models.Task, history []models.HistoryRecord) (*models.Assessment, error) {
	source := task
	if details, _ := e.details.TaskDetails(ctx, task.ID); details != nil {
		source = *details
	}

	summary := e.taskContext(ctx, task, source)
	planned := source.PlannedMinutes()
	tracked := source.TrackedMinutes()
	_, assigneeName, assigneeRole := source.PrimaryAssignee()

	lines := make([]string, 0, len(history))
	for _, record := range history {
		lines = append(lines, historyLine(record))
	}
	avgCombined := CombinedAverage(history)

	user := buildUserPrompt(promptInputs{
		task:         source,
		summary:      summary,
		planned:      planned,
		tracked:      tracked,
		assigneeName: assigneeName,
		assigneeRole: assigneeRole,
		band:         PerformerBand(avgCombined),
		avgSpeed:     AverageSpeed(history),
		avgQuality:   AverageQuality(history),
		avgCombined:  avgCombined,
		historyLines: lines,
		now:          e.now(),
	})

	raw, err := e.client.Complete(ctx, llm.Request{
		System:    systemPrompt,
		User:      user,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("completing assessment for task %s: %w", task.ID, err)
	}
	slog.Debug("model response", "task_id", task.ID, "content", raw)

	result, err := parseAssessment(raw)
	if err != nil {
		slog.Error("model returned unusable output", "task_id", task.ID, "content", raw)
		return nil, err
	}

	result.PlannedMinutes = planned
	result.TrackedMinutes = tracked
	return result, nil
}

// taskContext assembles the natural-language task summary: description,
// time metrics, and parent-task context when one exists.
func (e *Engine) taskContext(ctx context.Context, task, source models.Task) string {
	var sections []string

	description := source.Description
	if description == "" {
		description = task.Description
	}
	if description != "" {
		sections = append(sections, "Task description: "+description)
	} else {
		sections = append(sections, "The task has no description.")
	}

	planned := source.PlannedMinutes()
	tracked := source.TrackedMinutes()
	if planned != nil || tracked != nil {
		sections = append(sections, fmt.Sprintf(
			"Time metrics:\n- Planned time: %s\n- Tracked time: %s",
			models.FormatMinutes(planned), models.FormatMinutes(tracked)))
	}

	if parent := e.parentContext(ctx, task, source); parent != "" {
		sections = append(sections, parent)
	}

	return strings.Join(sections, "\n\n")
}

func (e *Engine) parentContext(ctx context.Context, task, source models.Task) string {
	parentID := source.ParentID
	if parentID == "" {
		parentID = task.ParentID
	}
	if parentID == "" {
		return ""
	}

	parent, _ := e.details.TaskDetails(ctx, parentID)
	if parent == nil {
		return fmt.Sprintf("Parent task %s: could not retrieve details.", parentID)
	}

	name := parent.Name
	if name == "" {
		name = "ID " + parentID
	}
	lines := []string{fmt.Sprintf("Parent task: %s (ID %s)", name, parentID)}
	if parent.Status != "" {
		lines = append(lines, "Parent task status: "+parent.Status)
	}
	if parent.URL != "" {
		lines = append(lines, "Parent task link: "+parent.URL)
	}
	if parent.Description != "" {
		lines = append(lines, "Parent task description: "+parent.Description)
	} else {
		lines = append(lines, "The parent task has no description.")
	}
	return strings.Join(lines, "\n")
}
