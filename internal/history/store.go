// Package history persists assessment outcomes to a flat markdown ledger.
// Each entry carries a machine-readable tagged line (an HTML comment wrapping
// the JSON record) followed by a human-readable block, so the same file
// serves as prompt context for later assessments and as an audit trail.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskpulse/taskpulse/internal/models"
)

const entrySeparator = "---"

// Store reads and writes the assessment history ledger. All I/O failures
// are logged and degrade (no history / skipped append) rather than
// propagating: history is advisory, never load-bearing.
type Store struct {
	path  string
	limit int
}

// NewStore returns a store over the ledger at path, retaining at most limit
// entries. A non-positive limit disables both read-back and pruning.
func NewStore(path string, limit int) *Store {
	if limit < 0 {
		limit = 0
	}
	return &Store{path: path, limit: limit}
}

// Path returns the ledger location.
func (s *Store) Path() string { return s.path }

// Append writes one entry to the ledger and prunes it to the retention
// limit. Failures are logged and swallowed.
func (s *Store) Append(record models.HistoryRecord) {
	tagged, err := json.Marshal(record)
	if err != nil {
		slog.Warn("could not serialize history record", "task_id", record.TaskID, "error", err)
		return
	}

	lines := []string{
		fmt.Sprintf("<!-- %s -->", tagged),
		fmt.Sprintf("## [%s](%s)", record.TaskName, record.TaskURL),
		fmt.Sprintf("- Task ID: %s", record.TaskID),
		fmt.Sprintf("- Assignee: %s", record.AssigneeName),
		fmt.Sprintf("- Speed: %.0f/5 - %s", record.Speed, record.SpeedReason),
		fmt.Sprintf("- Quality: %.0f/5 - %s", record.Quality, record.QualityReason),
		fmt.Sprintf("- Planned time: %s", models.FormatMinutes(record.PlannedMinutes)),
		fmt.Sprintf("- Tracked time: %s", models.FormatMinutes(record.TrackedMinutes)),
	}
	if record.OptimalMinutes != nil {
		lines = append(lines, fmt.Sprintf("- Optimal time (AI estimate): %s", models.FormatMinutes(record.OptimalMinutes)))
	}
	if record.EstimateRealistic != nil {
		lines = append(lines, fmt.Sprintf("- Estimate realistic: %s", yesNo(*record.EstimateRealistic)))
	}
	if record.ContextAdjustment != nil {
		lines = append(lines, fmt.Sprintf("- Context adjustment: %+.2f", *record.ContextAdjustment))
	}
	if record.Trend != "" {
		lines = append(lines, fmt.Sprintf("- Performer trend: %s", record.Trend))
	}
	if record.LevelMatch != nil {
		lines = append(lines, fmt.Sprintf("- Matches performer level: %s", yesNo(*record.LevelMatch)))
	}
	lines = append(lines, fmt.Sprintf("_Evaluated: %s_", record.Timestamp), entrySeparator)
	entry := strings.Join(lines, "\n")

	if err := s.appendRaw(entry); err != nil {
		slog.Warn("could not write history entry", "task_id", record.TaskID, "error", err)
		return
	}
	s.Prune(s.limit)
}

func (s *Store) appendRaw(entry string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	needsSeparator := false
	if info, err := os.Stat(s.path); err == nil && info.Size() > 0 {
		needsSeparator = true
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if needsSeparator {
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	_, err = f.WriteString(entry)
	return err
}

// ReadRecent parses the ledger's tagged lines and returns at most limit
// records, in chronological order. When assigneeID is non-empty only that
// performer's records are considered. Malformed lines are skipped with a
// warning; a missing or unreadable ledger yields no records.
func (s *Store) ReadRecent(assigneeID string, limit int) []models.HistoryRecord {
	if limit <= 0 {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read assessment history", "path", s.path, "error", err)
		}
		return nil
	}

	var records []models.HistoryRecord
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "<!--") || !strings.HasSuffix(trimmed, "-->") {
			continue
		}
		payload := strings.TrimSpace(trimmed[4 : len(trimmed)-3])
		if payload == "" {
			continue
		}
		var record models.HistoryRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			slog.Warn("skipping corrupt history entry", "payload", payload)
			continue
		}
		records = append(records, record)
	}

	target := strings.TrimSpace(assigneeID)
	if target != "" {
		filtered := records[:0:0]
		for _, record := range records {
			if strings.TrimSpace(record.AssigneeID) == target {
				filtered = append(filtered, record)
			}
		}
		records = filtered
	}

	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records
}

// Prune rewrites the ledger keeping only the last limit entries. A read
// failure abandons pruning for this cycle so a partially-written file is
// never made worse.
func (s *Store) Prune(limit int) {
	if limit <= 0 {
		return
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read history for pruning", "path", s.path, "error", err)
		}
		return
	}
	entries := splitEntries(string(data))
	if len(entries) <= limit {
		return
	}
	kept := entries[len(entries)-limit:]
	content := strings.Join(kept, "\n\n") + "\n"
	if err := os.WriteFile(s.path, []byte(content), 0o644); err != nil {
		slog.Warn("could not prune assessment history", "path", s.path, "error", err)
	}
}

// splitEntries slices ledger text into entries on separator lines. A
// trailing block without a separator counts as the final entry only when it
// is non-blank.
func splitEntries(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var entries []string
	var current []string
	flush := func() {
		entry := strings.TrimSpace(strings.Join(current, "\n"))
		if entry != "" {
			entries = append(entries, entry)
		}
		current = nil
	}
	for _, line := range strings.Split(raw, "\n") {
		current = append(current, line)
		if strings.TrimSpace(line) == entrySeparator {
			flush()
		}
	}
	flush()
	return entries
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
