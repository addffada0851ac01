package reporting

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskpulse/taskpulse/internal/clickup"
	"github.com/taskpulse/taskpulse/internal/config"
	"github.com/taskpulse/taskpulse/internal/models"
)

func reportConfig(timezone string) *config.Config {
	return &config.Config{
		ReportTimezone:          timezone,
		ReportCompletedStatuses: []string{"closed", "complete", "completed"},
		ReportActiveStatuses:    []string{"open", "in progress", "to do"},
	}
}

func assigned(id, name string) []models.Assignee {
	return []models.Assignee{{ID: id, Name: name}}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestGenerate_GroupsAndClassifies(t *testing.T) {
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	source := clickup.NewMockSource(
		models.Task{
			ID: "done1", Name: "Shipped", Status: "closed", Priority: "high",
			Assignees:    assigned("1", "Alice"),
			DateClosed:   timePtr(day.Add(10 * time.Hour)),
			TimeEstimate: 2 * 60 * 60 * 1000,
			TimeSpent:    90 * 60 * 1000,
		},
		models.Task{
			ID: "due1", Name: "Slipping", Status: "open", Priority: "normal",
			Assignees: assigned("1", "Alice"),
			DueDate:   timePtr(day.Add(15 * time.Hour)),
		},
		models.Task{
			ID: "late1", Name: "Very late", Status: "open",
			Assignees: assigned("2", "Bob"),
			DueDate:   timePtr(day.Add(-3 * 24 * time.Hour)),
		},
		models.Task{
			ID: "future1", Name: "Due next week", Status: "open",
			Assignees: assigned("1", "Alice"),
			DueDate:   timePtr(day.Add(7 * 24 * time.Hour)),
		},
	)

	generator := NewGenerator(source, reportConfig("UTC"))
	reports, err := generator.Generate(context.Background(), &day, nil, "")
	require.NoError(t, err)
	require.Len(t, reports, 2)

	alice := reports[0]
	assert.Equal(t, "Alice", alice.EmployeeName)
	require.Len(t, alice.Completed, 1)
	assert.Equal(t, "Shipped", alice.Completed[0].Name)
	assert.InDelta(t, 2.0, alice.TotalPlannedHours, 0.001)
	assert.InDelta(t, 1.5, alice.TotalActualHours, 0.001)
	assert.Equal(t, 1, alice.Priorities[models.PriorityUrgent].Completed)
	assert.Equal(t, []string{"Slipping"}, alice.Rescheduled)
	assert.Empty(t, alice.Overdue)

	bob := reports[1]
	assert.Equal(t, "Bob", bob.EmployeeName)
	require.Len(t, bob.Overdue, 1)
	assert.Equal(t, "Very late (3 days overdue)", bob.Overdue[0])
	assert.Equal(t, 1, bob.Priorities[models.PriorityNormal].NotCompleted)

	// Tasks due in the future and not completed never appear.
	for _, report := range reports {
		for _, stats := range append(report.Completed, report.NotCompleted...) {
			assert.NotEqual(t, "Due next week", stats.Name)
		}
	}
}

func TestGenerate_NoDueDateStillListed(t *testing.T) {
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	source := clickup.NewMockSource(
		models.Task{
			ID: "t1", Name: "Backlog item", Status: "in progress",
			Assignees: assigned("1", "Alice"),
		},
		models.Task{
			ID: "t2", Name: "Closed long ago", Status: "closed",
			Assignees:  assigned("1", "Alice"),
			DateClosed: timePtr(day.Add(-10 * 24 * time.Hour)),
		},
	)

	generator := NewGenerator(source, reportConfig("UTC"))
	reports, err := generator.Generate(context.Background(), &day, nil, "")
	require.NoError(t, err)
	require.Len(t, reports, 1)

	// An active task with no due date belongs to every day's report; a task
	// in a completed status with no due date does not resurface.
	alice := reports[0]
	require.Len(t, alice.NotCompleted, 1)
	assert.Equal(t, "Backlog item", alice.NotCompleted[0].Name)
	assert.False(t, alice.NotCompleted[0].Overdue)
	assert.Empty(t, alice.Rescheduled)
	assert.Empty(t, alice.Completed)
}

func TestGenerate_MultipleAssignees(t *testing.T) {
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	source := clickup.NewMockSource(models.Task{
		ID: "t1", Name: "Pair task", Status: "closed", Priority: "high",
		Assignees: []models.Assignee{
			{ID: "1", Name: "Alice"},
			{ID: "2", Name: "Bob"},
			{ID: "1", Name: "Alice"},
		},
		DateClosed:   timePtr(day.Add(time.Hour)),
		TimeEstimate: 60 * 60 * 1000,
	})

	generator := NewGenerator(source, reportConfig("UTC"))
	reports, err := generator.Generate(context.Background(), &day, nil, "")
	require.NoError(t, err)

	// The task counts once for each distinct assignee.
	require.Len(t, reports, 2)
	for _, report := range reports {
		require.Len(t, report.Completed, 1)
		assert.Equal(t, "Pair task", report.Completed[0].Name)
		assert.InDelta(t, 1.0, report.TotalPlannedHours, 0.001)
		assert.Equal(t, 1, report.Priorities[models.PriorityUrgent].Completed)
	}
}

func TestGenerate_OneDayOverdueStaysOffList(t *testing.T) {
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	source := clickup.NewMockSource(models.Task{
		ID: "t1", Name: "Yesterday's task", Status: "open",
		Assignees: assigned("1", "Alice"),
		DueDate:   timePtr(day.Add(-10 * time.Hour)),
	})

	generator := NewGenerator(source, reportConfig("UTC"))
	reports, err := generator.Generate(context.Background(), &day, nil, "")
	require.NoError(t, err)
	require.Len(t, reports, 1)

	// A task one day past due is marked overdue on its stats line but only
	// tasks more than a day late make the overdue name list. It is not
	// rescheduled either: its due date is behind us, not today.
	alice := reports[0]
	require.Len(t, alice.NotCompleted, 1)
	assert.True(t, alice.NotCompleted[0].Overdue)
	assert.Equal(t, 1, alice.NotCompleted[0].DaysOverdue)
	assert.Empty(t, alice.Overdue)
	assert.Empty(t, alice.Rescheduled)
	assert.Equal(t, 1, alice.Priorities[models.PriorityNormal].NotCompleted)
}

func TestGenerate_DoneTimestampIsNotCompletion(t *testing.T) {
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	source := clickup.NewMockSource(models.Task{
		ID: "t1", Name: "Marked done only", Status: "complete",
		Assignees: assigned("1", "Alice"),
		DueDate:   timePtr(day.Add(12 * time.Hour)),
		DateDone:  timePtr(day.Add(10 * time.Hour)),
	})

	generator := NewGenerator(source, reportConfig("UTC"))
	reports, err := generator.Generate(context.Background(), &day, nil, "")
	require.NoError(t, err)
	require.Len(t, reports, 1)

	// Only the close timestamp completes a task; a done date alone leaves
	// it in the not-completed section.
	alice := reports[0]
	assert.Empty(t, alice.Completed)
	require.Len(t, alice.NotCompleted, 1)
	assert.Equal(t, "Marked done only", alice.NotCompleted[0].Name)
}

func TestGenerate_TimezoneDayBoundary(t *testing.T) {
	// 2026-03-15 21:30 UTC is already 2026-03-16 00:30 in Moscow: the task
	// belongs to the 16th there, not the 15th.
	closedAt := time.Date(2026, 3, 15, 21, 30, 0, 0, time.UTC)
	source := clickup.NewMockSource(models.Task{
		ID: "t1", Name: "Late evening", Status: "closed",
		Assignees:  assigned("1", "Alice"),
		DateClosed: timePtr(closedAt),
	})

	moscow := NewGenerator(source, reportConfig("Europe/Moscow"))

	day15 := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	reports, err := moscow.Generate(context.Background(), &day15, nil, "")
	require.NoError(t, err)
	assert.Empty(t, reports)

	day16 := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	reports, err = moscow.Generate(context.Background(), &day16, nil, "")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Len(t, reports[0].Completed, 1)

	// In UTC the same instant still counts for the 15th.
	utc := NewGenerator(source, reportConfig("UTC"))
	reports, err = utc.Generate(context.Background(), &day15, nil, "")
	require.NoError(t, err)
	require.Len(t, reports, 1)
}

func TestGenerate_SortOrder(t *testing.T) {
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	closed := timePtr(day.Add(time.Hour))

	task := func(id string, assignees []models.Assignee) models.Task {
		return models.Task{ID: id, Name: "Task " + id, Status: "closed", Assignees: assignees, DateClosed: closed}
	}
	source := clickup.NewMockSource(
		task("t1", assigned("9", "charlie")),
		task("t2", assigned("2", "Alice")),
		task("t3", nil),
		task("t4", assigned("5", "alice")),
	)

	generator := NewGenerator(source, reportConfig("UTC"))
	reports, err := generator.Generate(context.Background(), &day, nil, "")
	require.NoError(t, err)
	require.Len(t, reports, 4)

	// Case-insensitive name order, ties broken by id.
	assert.Equal(t, "2", reports[0].EmployeeID)
	assert.Equal(t, "5", reports[1].EmployeeID)
	assert.Equal(t, "charlie", reports[2].EmployeeName)
	assert.Equal(t, "Unassigned", reports[3].EmployeeName)
}

func TestGenerate_ExplicitStatuses(t *testing.T) {
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	source := clickup.NewMockSource(
		models.Task{
			ID: "t1", Name: "In review", Status: "Review",
			Assignees: assigned("1", "Alice"),
			DueDate:   timePtr(day.Add(12 * time.Hour)),
		},
		models.Task{
			ID: "t2", Name: "Still open", Status: "open",
			Assignees: assigned("1", "Alice"),
			DueDate:   timePtr(day.Add(12 * time.Hour)),
		},
	)

	generator := NewGenerator(source, reportConfig("UTC"))
	reports, err := generator.Generate(context.Background(), &day, []string{"review"}, "42")
	require.NoError(t, err)

	// One fetch with the explicit statuses, closed tasks included, scoped
	// to the requested assignee.
	require.Len(t, source.Fetches, 1)
	assert.Equal(t, []string{"review"}, source.Fetches[0].Statuses)
	assert.True(t, source.Fetches[0].IncludeClosed)
	assert.Equal(t, "42", source.Fetches[0].Assignee)

	// The non-matching status is filtered out even though the mock
	// returned it.
	require.Len(t, reports, 1)
	require.Len(t, reports[0].NotCompleted, 1)
	assert.Equal(t, "In review", reports[0].NotCompleted[0].Name)
}

func TestGenerate_DefaultDoubleFetch(t *testing.T) {
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	source := clickup.NewMockSource(models.Task{
		ID: "t1", Name: "Done", Status: "closed",
		Assignees:  assigned("1", "Alice"),
		DateClosed: timePtr(day.Add(time.Hour)),
	})

	generator := NewGenerator(source, reportConfig("UTC"))
	_, err := generator.Generate(context.Background(), &day, nil, "")
	require.NoError(t, err)

	require.Len(t, source.Fetches, 2)
	assert.Equal(t, []string{"closed", "complete", "completed"}, source.Fetches[0].Statuses)
	assert.True(t, source.Fetches[0].IncludeClosed)
	assert.Equal(t, []string{"open", "in progress", "to do"}, source.Fetches[1].Statuses)
	assert.False(t, source.Fetches[1].IncludeClosed)
}

func TestGenerate_FetchError(t *testing.T) {
	source := clickup.NewMockSource()
	source.FetchFunc = func(ctx context.Context, filter clickup.Filter) ([]models.Task, error) {
		return nil, errors.New("boom")
	}

	generator := NewGenerator(source, reportConfig("UTC"))
	_, err := generator.Generate(context.Background(), nil, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching")
}

func TestRender(t *testing.T) {
	assert.Equal(t, "No tasks found for the report.\n", Render(nil))

	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	reports := []*models.EmployeeReport{
		models.NewEmployeeReport("1", "Alice", day),
		models.NewEmployeeReport("2", "Bob", day),
	}
	out := Render(reports)
	assert.Contains(t, out, "👤 Employee: Alice")
	assert.Contains(t, out, "👤 Employee: Bob")
	assert.Contains(t, out, strings.Repeat("=", 80))
}

func TestWriteFile(t *testing.T) {
	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "out", "daily.md")

	err := WriteFile(path, []*models.EmployeeReport{models.NewEmployeeReport("1", "Alice", day)})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "📊 Report for 15.03.2026")
}
