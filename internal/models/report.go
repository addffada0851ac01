package models

import (
	"fmt"
	"strings"
	"time"
)

// PriorityBucket is one of the three normalized priority groups used by
// daily reports.
type PriorityBucket string

const (
	PriorityUrgent PriorityBucket = "urgent"
	PriorityNormal PriorityBucket = "normal"
	PriorityLow    PriorityBucket = "low"
)

// NormalizePriority folds a raw ClickUp priority label into a bucket.
// Missing priorities count as normal; unrecognized labels as low.
func NormalizePriority(priority string) PriorityBucket {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "":
		return PriorityNormal
	case "urgent", "high":
		return PriorityUrgent
	case "normal", "medium":
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// PriorityMarker returns the emoji used to flag a task's priority in
// rendered reports.
func PriorityMarker(priority string) string {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "urgent", "high":
		return "🟥"
	case "normal", "medium":
		return "🟨"
	case "low":
		return "🟩"
	default:
		return "⚪"
	}
}

// TaskStats captures one task's contribution to an employee's daily report.
type TaskStats struct {
	Name           string
	PriorityMarker string
	EstimateHours  float64
	SpentHours     float64
	Completed      bool
	Overdue        bool
	DaysOverdue    int
}

// PriorityStats tallies completed/not-completed counts for one bucket.
type PriorityStats struct {
	Completed    int
	NotCompleted int
}

// EmployeeReport aggregates one performer's tasks for one local day.
type EmployeeReport struct {
	EmployeeID   string
	EmployeeName string
	Date         time.Time

	Completed    []TaskStats
	NotCompleted []TaskStats

	TotalPlannedHours float64
	TotalActualHours  float64

	Priorities map[PriorityBucket]*PriorityStats

	Rescheduled []string
	Overdue     []string
}

// NewEmployeeReport returns a report with all priority buckets initialized.
func NewEmployeeReport(id, name string, date time.Time) *EmployeeReport {
	return &EmployeeReport{
		EmployeeID:   id,
		EmployeeName: name,
		Date:         date,
		Priorities: map[PriorityBucket]*PriorityStats{
			PriorityUrgent: {},
			PriorityNormal: {},
			PriorityLow:    {},
		},
	}
}

// Markdown renders the report as the plain-text block posted to chat or
// written to the report file.
func (r *EmployeeReport) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 Report for %s\n", r.Date.Format("02.01.2006"))
	fmt.Fprintf(&b, "👤 Employee: %s\n\n", r.EmployeeName)

	fmt.Fprintf(&b, "✅ Tasks completed: %d\n", len(r.Completed))
	if len(r.Completed) == 0 {
		b.WriteString("  No completed tasks\n")
	}
	for _, task := range r.Completed {
		fmt.Fprintf(&b, "  %s %s (plan: %.1fh / actual: %.1fh)\n",
			task.Name, task.PriorityMarker, task.EstimateHours, task.SpentHours)
	}
	b.WriteString("\n")

	diff := r.TotalActualHours - r.TotalPlannedHours
	sign := ""
	if diff >= 0 {
		sign = "+"
	}
	b.WriteString("⏱️ Time:\n")
	fmt.Fprintf(&b, "  Planned: %.1f h\n", r.TotalPlannedHours)
	fmt.Fprintf(&b, "  Actual: %.1f h\n", r.TotalActualHours)
	fmt.Fprintf(&b, "  Difference: %s%.1f h\n\n", sign, diff)

	b.WriteString("⚡ Priority:\n")
	for _, bucket := range []struct {
		label string
		key   PriorityBucket
	}{
		{"Urgent", PriorityUrgent},
		{"Normal", PriorityNormal},
		{"Low", PriorityLow},
	} {
		stats := r.Priorities[bucket.key]
		if stats == nil {
			stats = &PriorityStats{}
		}
		fmt.Fprintf(&b, "  %s: completed %d, not completed %d\n",
			bucket.label, stats.Completed, stats.NotCompleted)
	}
	b.WriteString("\n")

	if len(r.Rescheduled) > 0 {
		fmt.Fprintf(&b, "📌 Rescheduled past due date: %d\n", len(r.Rescheduled))
		for _, name := range r.Rescheduled {
			fmt.Fprintf(&b, "  %s\n", name)
		}
		b.WriteString("\n")
	}

	if len(r.Overdue) > 0 {
		fmt.Fprintf(&b, "⏳ Overdue by more than a day: %d\n", len(r.Overdue))
		for _, name := range r.Overdue {
			fmt.Fprintf(&b, "  %s\n", name)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}
