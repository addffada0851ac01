// Package orchestration drives an assessment run end to end: fetch the
// candidate tasks, filter out ineligible ones, score each eligible task
// sequentially, and apply the results back to ClickUp and the history
// ledger. One failing task never stops the run.
package orchestration

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/taskpulse/taskpulse/internal/clickup"
	"github.com/taskpulse/taskpulse/internal/config"
	"github.com/taskpulse/taskpulse/internal/models"
)

// autoCloseAge is how long a task must have been finished before the agent
// closes it.
const autoCloseAge = 7 * 24 * time.Hour

// Assessor scores one task given the performer's recent history.
type Assessor interface {
	Assess(ctx context.Context, task models.Task, history []models.HistoryRecord) (*models.Assessment, error)
}

// HistoryStore is the ledger surface the runner needs.
type HistoryStore interface {
	Append(record models.HistoryRecord)
	ReadRecent(assigneeID string, limit int) []models.HistoryRecord
}

// Summary reports what one run did.
type Summary struct {
	Fetched  int
	Assessed int
	Skipped  int
	Failed   int
}

// Runner executes one assessment pass over the configured task scope.
type Runner struct {
	source   clickup.Source
	details  *clickup.DetailCache
	assessor Assessor
	history  HistoryStore
	cfg      *config.Config
	dryRun   bool
	assignee string
	now      func() time.Time
}

// RunnerOption adjusts the scope of a run.
type RunnerOption func(*Runner)

// WithAssignee restricts the run to tasks assigned to the given member.
func WithAssignee(id string) RunnerOption {
	return func(r *Runner) { r.assignee = strings.TrimSpace(id) }
}

// NewRunner wires a runner. The detail cache is shared with the assessor so
// repeated lookups of the same task or parent hit the API once per run.
func NewRunner(source clickup.Source, details *clickup.DetailCache, assessor Assessor, history HistoryStore, cfg *config.Config, dryRun bool, opts ...RunnerOption) *Runner {
	r := &Runner{
		source:   source,
		details:  details,
		assessor: assessor,
		history:  history,
		cfg:      cfg,
		dryRun:   dryRun,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one full pass and returns what it did. Only a failed fetch
// is fatal; per-task failures are logged and counted.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	statuses := r.cfg.TargetStatuses
	tasks, err := r.source.FetchTasks(ctx, clickup.Filter{
		Statuses: statuses,
		Assignee: r.assignee,
		// Without a status filter the scan covers closed tasks too, so
		// already-finished work can still be scored once.
		IncludeClosed: len(statuses) == 0,
		Limit:         r.cfg.MaxTasks,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching tasks: %w", err)
	}

	sortTasks(tasks)
	if r.cfg.MaxTasks > 0 && len(tasks) > r.cfg.MaxTasks {
		tasks = tasks[:r.cfg.MaxTasks]
	}

	summary := &Summary{Fetched: len(tasks)}
	slog.Info("starting assessment run", "tasks", len(tasks), "dry_run", r.dryRun)

	r.details.Prefetch(ctx, tasks)

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		current := task
		if details, _ := r.details.TaskDetails(ctx, task.ID); details != nil {
			current = *details
		}

		if reason := r.skipReason(current); reason != "" {
			slog.Debug("skipping task", "task_id", current.ID, "reason", reason)
			summary.Skipped++
			continue
		}

		if err := r.assessTask(ctx, current); err != nil {
			slog.Error("task assessment failed", "task_id", current.ID, "error", err)
			summary.Failed++
			continue
		}
		summary.Assessed++
	}

	slog.Info("assessment run finished",
		"assessed", summary.Assessed, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

// skipReason decides whether a task is eligible for scoring. An empty
// string means eligible.
func (r *Runner) skipReason(task models.Task) string {
	status := task.StatusLower()

	if allowed := r.cfg.NormalizedTargetStatuses(); allowed != nil && !contains(allowed, status) {
		return "status not targeted"
	}
	if closed := strings.ToLower(strings.TrimSpace(r.cfg.ClosedStatus)); closed != "" && status == closed {
		return "already closed"
	}
	if task.CustomFieldHasValue(r.cfg.SpeedFieldID) || task.CustomFieldHasValue(r.cfg.QualityFieldID) {
		return "already assessed"
	}
	return ""
}

func (r *Runner) assessTask(ctx context.Context, task models.Task) error {
	assigneeID, assigneeName, _ := task.PrimaryAssignee()

	// With no assignee the empty id reads the whole ledger, so the model
	// still sees recent context instead of scoring cold.
	history := r.history.ReadRecent(assigneeID, r.cfg.HistoryLimit)

	assessment, err := r.assessor.Assess(ctx, task, history)
	if err != nil {
		return err
	}

	slog.Info("task assessed",
		"task_id", task.ID, "speed", assessment.Speed, "quality", assessment.Quality)

	if r.dryRun {
		slog.Info("dry run: skipping writes",
			"task_id", task.ID,
			"speed_field", r.cfg.SpeedFieldID,
			"quality_field", r.cfg.QualityFieldID)
		r.maybeAutoClose(ctx, task)
		return nil
	}

	if err := r.source.SetCustomField(ctx, task.ID, r.cfg.SpeedFieldID, assessment.Speed); err != nil {
		return fmt.Errorf("setting speed field: %w", err)
	}
	if err := r.source.SetCustomField(ctx, task.ID, r.cfg.QualityFieldID, assessment.Quality); err != nil {
		return fmt.Errorf("setting quality field: %w", err)
	}
	if err := r.source.AddComment(ctx, task.ID, commentBody(task, assessment)); err != nil {
		return fmt.Errorf("adding comment: %w", err)
	}

	r.history.Append(historyRecord(task, assessment, assigneeID, assigneeName, r.now()))
	r.maybeAutoClose(ctx, task)
	return nil
}

// maybeAutoClose moves a long-finished task to the closed status when the
// task's current status is in the auto-close allow-list.
func (r *Runner) maybeAutoClose(ctx context.Context, task models.Task) {
	allowed := r.cfg.NormalizedAutoCloseStatuses()
	closed := strings.TrimSpace(r.cfg.ClosedStatus)
	if allowed == nil || closed == "" {
		return
	}
	if !contains(allowed, task.StatusLower()) {
		return
	}

	finished := task.DateDone
	if finished == nil {
		finished = task.DateClosed
	}
	if finished == nil || r.now().Sub(*finished) <= autoCloseAge {
		return
	}

	if r.dryRun {
		slog.Info("dry run: would auto-close task", "task_id", task.ID, "status", closed)
		return
	}
	if err := r.source.SetStatus(ctx, task.ID, closed); err != nil {
		slog.Warn("auto-close failed", "task_id", task.ID, "error", err)
		return
	}
	slog.Info("task auto-closed", "task_id", task.ID, "status", closed)
}

// sortTasks orders tasks by due date, then close date, then id. Tasks
// without the timestamp sort after those that have it.
func sortTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if c := compareTimes(tasks[i].DueDate, tasks[j].DueDate); c != 0 {
			return c < 0
		}
		if c := compareTimes(tasks[i].DateClosed, tasks[j].DateClosed); c != 0 {
			return c < 0
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case b.Before(*a):
		return 1
	default:
		return 0
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// commentBody renders the assessment comment posted back to the task.
func commentBody(task models.Task, a *models.Assessment) string {
	var b strings.Builder
	b.WriteString("AI assessment:\n")
	fmt.Fprintf(&b, "Speed: %d/5 - %s\n", a.Speed, a.SpeedReason)
	fmt.Fprintf(&b, "Quality: %d/5 - %s\n", a.Quality, a.QualityReason)

	if a.PlannedMinutes != nil || a.TrackedMinutes != nil {
		fmt.Fprintf(&b, "Planned time: %s, tracked time: %s\n",
			models.FormatMinutes(a.PlannedMinutes), models.FormatMinutes(a.TrackedMinutes))
	}
	if a.OptimalMinutes != nil {
		fmt.Fprintf(&b, "Optimal time estimate: %s\n", models.FormatMinutes(a.OptimalMinutes))
	}
	if a.EstimateRealistic != nil {
		fmt.Fprintf(&b, "Time estimate realistic: %s\n", yesNo(*a.EstimateRealistic))
	}
	if a.ContextAdjustment != nil {
		fmt.Fprintf(&b, "Context adjustment: %+.2f\n", *a.ContextAdjustment)
	}
	if a.Trend != "" {
		fmt.Fprintf(&b, "Trend: %s\n", a.Trend)
	}
	if a.LevelMatch != nil {
		fmt.Fprintf(&b, "Matches performer level: %s\n", yesNo(*a.LevelMatch))
	}
	if task.URL != "" {
		fmt.Fprintf(&b, "\nTask: %s", task.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

func historyRecord(task models.Task, a *models.Assessment, assigneeID, assigneeName string, now time.Time) models.HistoryRecord {
	return models.HistoryRecord{
		TaskID:        task.ID,
		TaskName:      task.Name,
		TaskURL:       task.URL,
		Speed:         float64(a.Speed),
		SpeedReason:   a.SpeedReason,
		Quality:       float64(a.Quality),
		QualityReason: a.QualityReason,

		PlannedMinutes:    a.PlannedMinutes,
		TrackedMinutes:    a.TrackedMinutes,
		OptimalMinutes:    a.OptimalMinutes,
		EstimateRealistic: a.EstimateRealistic,
		ContextAdjustment: a.ContextAdjustment,
		Trend:             string(a.Trend),
		LevelMatch:        a.LevelMatch,

		AssigneeID:   assigneeID,
		AssigneeName: assigneeName,
		Timestamp:    now.UTC().Format(time.RFC3339),
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
