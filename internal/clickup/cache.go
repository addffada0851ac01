package clickup

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taskpulse/taskpulse/internal/models"
)

// DetailCache wraps a Source and memoizes TaskDetails lookups for the
// lifetime of one run. Failed lookups are cached as absent so a flaky task
// is fetched at most once. Entries are never invalidated.
type DetailCache struct {
	Source
	details map[string]*models.Task
}

// NewDetailCache wraps src with a per-run detail cache.
func NewDetailCache(src Source) *DetailCache {
	return &DetailCache{Source: src, details: map[string]*models.Task{}}
}

// TaskDetails returns the cached record, fetching on first use. Fetch
// failures are logged and yield nil without error: detail enrichment is
// best-effort.
func (c *DetailCache) TaskDetails(ctx context.Context, taskID string) (*models.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, nil
	}
	if cached, ok := c.details[taskID]; ok {
		return cached, nil
	}
	task, err := c.Source.TaskDetails(ctx, taskID)
	if err != nil {
		slog.Warn("could not fetch task details", "task_id", taskID, "error", err)
		c.details[taskID] = nil
		return nil, nil
	}
	c.details[taskID] = task
	return task, nil
}

// Prefetch warms the cache with details (and parent details) for the given
// tasks.
func (c *DetailCache) Prefetch(ctx context.Context, tasks []models.Task) {
	for _, task := range tasks {
		details, _ := c.TaskDetails(ctx, task.ID)
		parentID := task.ParentID
		if details != nil && details.ParentID != "" {
			parentID = details.ParentID
		}
		if parentID != "" {
			_, _ = c.TaskDetails(ctx, parentID)
		}
	}
}
