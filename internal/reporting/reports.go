// Package reporting builds the per-employee daily reports: it fetches the
// day's tasks, groups them by assignee, classifies each task as completed,
// rescheduled, or overdue relative to the report day, and renders the
// markdown blocks.
package reporting

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/taskpulse/taskpulse/internal/clickup"
	"github.com/taskpulse/taskpulse/internal/config"
	"github.com/taskpulse/taskpulse/internal/models"
)

const unassignedKey = "unassigned"

// Generator produces daily reports from a task source.
type Generator struct {
	source clickup.Source
	cfg    *config.Config
	now    func() time.Time
}

// NewGenerator builds a report generator over the given source.
func NewGenerator(source clickup.Source, cfg *config.Config) *Generator {
	return &Generator{
		source: source,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Generate builds one report per employee for the given local day. A nil
// targetDate means today in the configured report timezone. An explicit
// status list replaces the default completed+active fetch; an explicit
// assignee restricts the fetch to that member. Reports come back sorted by
// employee name, then id.
func (g *Generator) Generate(ctx context.Context, targetDate *time.Time, statuses []string, assignee string) ([]*models.EmployeeReport, error) {
	loc := g.cfg.ReportLocation()

	reference := g.now().In(loc)
	if targetDate != nil {
		reference = targetDate.In(loc)
	}
	dayStart := time.Date(reference.Year(), reference.Month(), reference.Day(), 0, 0, 0, 0, loc)
	dayEnd := time.Date(reference.Year(), reference.Month(), reference.Day()+1, 0, 0, 0, 0, loc)

	tasks, err := g.fetchTasks(ctx, statuses, assignee)
	if err != nil {
		return nil, err
	}

	completedStatuses := statusSet(g.cfg.ReportCompletedStatuses)

	byEmployee := map[string]*models.EmployeeReport{}
	for _, task := range tasks {
		completed := task.DateClosed != nil &&
			!task.DateClosed.Before(dayStart) && task.DateClosed.Before(dayEnd)

		// A task belongs to the day if it was completed that day, its due
		// date has arrived by the end of the day, or it is still active
		// with no due date at all.
		if !completed {
			switch {
			case task.DueDate != nil && task.DueDate.Before(dayEnd):
			case task.DueDate == nil && !completedStatuses[task.StatusLower()]:
			default:
				continue
			}
		}

		bucket := models.NormalizePriority(task.Priority)
		stats := models.TaskStats{
			Name:           task.Name,
			PriorityMarker: models.PriorityMarker(task.Priority),
			EstimateHours:  task.EstimateHours(),
			SpentHours:     task.SpentHours(),
			Completed:      completed,
		}

		var overdueDays int
		if !completed && task.DueDate != nil && task.DueDate.In(loc).Before(dayStart) {
			overdueDays = daysOverdue(task.DueDate.In(loc), dayStart)
			stats.Overdue = true
			stats.DaysOverdue = overdueDays
		}

		for _, report := range g.reportsFor(byEmployee, task, dayStart) {
			if completed {
				report.Completed = append(report.Completed, stats)
				report.TotalPlannedHours += stats.EstimateHours
				report.TotalActualHours += stats.SpentHours
				report.Priorities[bucket].Completed++
				continue
			}

			report.Priorities[bucket].NotCompleted++
			switch {
			case overdueDays > 1:
				report.Overdue = append(report.Overdue,
					fmt.Sprintf("%s (%d days overdue)", task.Name, overdueDays))
			case task.DueDate != nil && !stats.Overdue:
				report.Rescheduled = append(report.Rescheduled, task.Name)
			}
			report.NotCompleted = append(report.NotCompleted, stats)
		}
	}

	reports := make([]*models.EmployeeReport, 0, len(byEmployee))
	for _, report := range byEmployee {
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool {
		ni, nj := strings.ToLower(reports[i].EmployeeName), strings.ToLower(reports[j].EmployeeName)
		if ni != nj {
			return ni < nj
		}
		return reports[i].EmployeeID < reports[j].EmployeeID
	})
	return reports, nil
}

// fetchTasks pulls the day's candidate tasks. Without an explicit status
// list it runs two fetches: completed statuses with closed tasks included,
// and active statuses without them.
func (g *Generator) fetchTasks(ctx context.Context, statuses []string, assignee string) ([]models.Task, error) {
	if len(statuses) > 0 {
		fetched, err := g.source.FetchTasks(ctx, clickup.Filter{
			Statuses:      statuses,
			Assignee:      assignee,
			IncludeClosed: true,
		})
		if err != nil {
			return nil, fmt.Errorf("fetching tasks: %w", err)
		}
		return filterByStatus(fetched, statuses), nil
	}

	completed, err := g.source.FetchTasks(ctx, clickup.Filter{
		Statuses:      g.cfg.ReportCompletedStatuses,
		Assignee:      assignee,
		IncludeClosed: true,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching completed tasks: %w", err)
	}
	active, err := g.source.FetchTasks(ctx, clickup.Filter{
		Statuses: g.cfg.ReportActiveStatuses,
		Assignee: assignee,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching active tasks: %w", err)
	}

	seen := make(map[string]bool, len(completed)+len(active))
	merged := make([]models.Task, 0, len(completed)+len(active))
	for _, task := range append(completed, active...) {
		if seen[task.ID] {
			continue
		}
		seen[task.ID] = true
		merged = append(merged, task)
	}
	return merged, nil
}

// reportsFor returns one employee report per assignee of the task,
// creating them on first use. A multi-assignee task counts once for every
// assignee; tasks without assignees go into a shared unassigned bucket.
func (g *Generator) reportsFor(byEmployee map[string]*models.EmployeeReport, task models.Task, day time.Time) []*models.EmployeeReport {
	if len(task.Assignees) == 0 {
		return []*models.EmployeeReport{ensureReport(byEmployee, unassignedKey, "Unassigned", day)}
	}

	seen := make(map[string]bool, len(task.Assignees))
	reports := make([]*models.EmployeeReport, 0, len(task.Assignees))
	for _, assignee := range task.Assignees {
		id := assignee.ID
		if id == "" {
			id = unassignedKey
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		name := assignee.Name
		if name == "" {
			name = "Unknown"
		}
		reports = append(reports, ensureReport(byEmployee, id, name, day))
	}
	return reports
}

func ensureReport(byEmployee map[string]*models.EmployeeReport, id, name string, day time.Time) *models.EmployeeReport {
	report, ok := byEmployee[id]
	if !ok {
		report = models.NewEmployeeReport(id, name, day)
		byEmployee[id] = report
	}
	return report
}

// Render joins the per-employee markdown blocks into one document.
func Render(reports []*models.EmployeeReport) string {
	if len(reports) == 0 {
		return "No tasks found for the report.\n"
	}
	blocks := make([]string, 0, len(reports))
	for _, report := range reports {
		blocks = append(blocks, report.Markdown())
	}
	return strings.Join(blocks, "\n"+strings.Repeat("=", 80)+"\n\n")
}

// WriteFile renders the reports and writes them to path, creating parent
// directories as needed.
func WriteFile(path string, reports []*models.EmployeeReport) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(Render(reports)), 0o644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}
	return nil
}

func statusSet(statuses []string) map[string]bool {
	set := make(map[string]bool, len(statuses))
	for _, status := range statuses {
		set[strings.ToLower(strings.TrimSpace(status))] = true
	}
	return set
}

// filterByStatus keeps only tasks whose status matches the allow-list,
// compared case-insensitively. The API's own status filter is trusted but
// some workspaces return close variants.
func filterByStatus(tasks []models.Task, statuses []string) []models.Task {
	allowed := statusSet(statuses)
	out := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if allowed[task.StatusLower()] {
			out = append(out, task)
		}
	}
	return out
}

// daysOverdue counts whole days between the due date and the report day.
func daysOverdue(due, day time.Time) int {
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, due.Location())
	return int(day.Sub(dueDay).Hours()/24 + 0.5)
}
