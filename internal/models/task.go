// Package models holds the typed records shared across the taskpulse
// pipeline: ClickUp tasks, assessment results, history entries, and report
// aggregates.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Assignee is one member of a task's assignee list.
type Assignee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Task is the subset of ClickUp task attributes the agent works with.
// Instances are built via TaskFromAPI so optional fields are always
// normalized; code downstream never touches raw API maps.
type Task struct {
	ID          string
	Name        string
	Description string
	Status      string
	Priority    string
	URL         string
	ParentID    string
	Assignees   []Assignee

	DueDate    *time.Time
	DateClosed *time.Time
	DateDone   *time.Time

	// TimeEstimate and TimeSpent are in milliseconds, as delivered by the
	// API. Use PlannedMinutes/TrackedMinutes for rubric math.
	TimeEstimate int64
	TimeSpent    int64

	CustomFields []CustomField

	CommentCount  *int
	ActivityCount *int
}

// CustomField is one custom-field entry on a task.
type CustomField struct {
	ID    string
	Value any
}

// TaskFromAPI builds a Task from a raw ClickUp payload, defaulting every
// optional field. Unknown keys are ignored; malformed values degrade to
// their zero form rather than erroring.
func TaskFromAPI(payload map[string]any) Task {
	t := Task{
		ID:          strings.TrimSpace(cast.ToString(payload["id"])),
		Name:        strings.TrimSpace(cast.ToString(payload["name"])),
		Description: strings.TrimSpace(cast.ToString(payload["description"])),
		URL:         strings.TrimSpace(cast.ToString(payload["url"])),
	}

	if status, ok := payload["status"].(map[string]any); ok {
		t.Status = strings.TrimSpace(cast.ToString(status["status"]))
	}
	switch p := payload["priority"].(type) {
	case map[string]any:
		for _, key := range []string{"priority", "label", "name"} {
			if v := strings.TrimSpace(cast.ToString(p[key])); v != "" {
				t.Priority = v
				break
			}
		}
	case string:
		t.Priority = strings.TrimSpace(p)
	}

	t.ParentID = strings.TrimSpace(cast.ToString(payload["parent"]))

	if raw, ok := payload["assignees"].([]any); ok {
		for _, entry := range raw {
			switch a := entry.(type) {
			case map[string]any:
				assignee := Assignee{
					ID:   strings.TrimSpace(cast.ToString(a["id"])),
					Role: strings.TrimSpace(cast.ToString(a["role"])),
				}
				for _, key := range []string{"username", "email", "user", "id"} {
					if v := strings.TrimSpace(cast.ToString(a[key])); v != "" {
						assignee.Name = v
						break
					}
				}
				t.Assignees = append(t.Assignees, assignee)
			case string:
				name := strings.TrimSpace(a)
				if name != "" {
					t.Assignees = append(t.Assignees, Assignee{ID: name, Name: name})
				}
			}
		}
	}

	due := payload["due_date"]
	if due == nil {
		due = payload["due_date_time"]
	}
	t.DueDate = ParseTimestamp(due)
	t.DateClosed = ParseTimestamp(payload["date_closed"])
	t.DateDone = ParseTimestamp(payload["date_done"])

	t.TimeEstimate = parseDurationMillis(payload["time_estimate"])
	t.TimeSpent = parseDurationMillis(payload["time_spent"])

	if raw, ok := payload["custom_fields"].([]any); ok {
		for _, entry := range raw {
			field, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			id := strings.TrimSpace(cast.ToString(field["id"]))
			if id == "" {
				continue
			}
			t.CustomFields = append(t.CustomFields, CustomField{ID: id, Value: field["value"]})
		}
	}

	if v, err := cast.ToIntE(payload["comment_count"]); err == nil && payload["comment_count"] != nil {
		t.CommentCount = &v
	}
	if v, err := cast.ToIntE(payload["activity_count"]); err == nil && payload["activity_count"] != nil {
		t.ActivityCount = &v
	}

	if t.URL == "" && t.ID != "" {
		t.URL = "https://app.clickup.com/t/" + t.ID
	}

	return t
}

// ParseTimestamp converts a ClickUp timestamp (millisecond epoch, often as a
// string) to UTC time. Returns nil for absent, zero, or malformed values.
func ParseTimestamp(value any) *time.Time {
	if value == nil {
		return nil
	}
	millis, err := cast.ToInt64E(value)
	if err != nil || millis == 0 {
		return nil
	}
	// Values below ~1973 in milliseconds are second-precision epochs.
	if millis < 1e11 {
		millis *= 1000
	}
	ts := time.UnixMilli(millis).UTC()
	return &ts
}

func parseDurationMillis(value any) int64 {
	if value == nil {
		return 0
	}
	millis, err := cast.ToInt64E(value)
	if err != nil || millis < 0 {
		return 0
	}
	return millis
}

// StatusLower returns the status label lowercased for comparisons.
func (t Task) StatusLower() string {
	return strings.ToLower(strings.TrimSpace(t.Status))
}

// PlannedMinutes returns the time estimate in whole minutes, or nil when the
// task has no estimate.
func (t Task) PlannedMinutes() *int {
	return millisToMinutes(t.TimeEstimate)
}

// TrackedMinutes returns the tracked time in whole minutes, or nil when no
// time has been logged.
func (t Task) TrackedMinutes() *int {
	return millisToMinutes(t.TimeSpent)
}

// EstimateHours returns the time estimate in fractional hours (0 when unset).
func (t Task) EstimateHours() float64 {
	return float64(t.TimeEstimate) / (1000 * 60 * 60)
}

// SpentHours returns the tracked time in fractional hours (0 when unset).
func (t Task) SpentHours() float64 {
	return float64(t.TimeSpent) / (1000 * 60 * 60)
}

func millisToMinutes(millis int64) *int {
	if millis <= 0 {
		return nil
	}
	minutes := int((float64(millis)/60000 + 0.5))
	return &minutes
}

// PrimaryAssignee resolves the first assignee. The returned name and role
// fall back to "not specified" sentinels so callers never deal with blanks.
func (t Task) PrimaryAssignee() (id, name, role string) {
	name = "not specified"
	role = "not specified"
	if len(t.Assignees) == 0 {
		return "", name, role
	}
	first := t.Assignees[0]
	if first.ID != "" {
		id = first.ID
	}
	if first.Name != "" {
		name = first.Name
	}
	if first.Role != "" {
		role = first.Role
	}
	return id, name, role
}

// CustomFieldHasValue reports whether the field with the given id holds a
// non-empty value.
func (t Task) CustomFieldHasValue(fieldID string) bool {
	target := strings.TrimSpace(fieldID)
	if target == "" {
		return false
	}
	for _, field := range t.CustomFields {
		if field.ID != target {
			continue
		}
		if field.Value == nil {
			continue
		}
		if s, ok := field.Value.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return true
	}
	return false
}

// FormatMinutes renders a minute count as "2h 30m" style text for prompts,
// comments and the history ledger.
func FormatMinutes(minutes *int) string {
	if minutes == nil {
		return "no data"
	}
	hours, mins := *minutes/60, *minutes%60
	switch {
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
