package models

// Trend labels a performer's direction relative to their scored history.
type Trend string

const (
	TrendProgress   Trend = "progress"
	TrendStable     Trend = "stable"
	TrendRegression Trend = "regression"
)

// Assessment is the outcome of scoring one task. Speed and Quality are
// always integers in [1,5]; every other field is optional and absent when
// the model did not produce a usable value.
type Assessment struct {
	Speed         int
	Quality       int
	SpeedReason   string
	QualityReason string

	PlannedMinutes *int
	TrackedMinutes *int
	OptimalMinutes *int

	EstimateRealistic *bool
	// ContextAdjustment is nominally -1..+1 but is passed through from the
	// model unclamped.
	ContextAdjustment *float64
	Trend             Trend
	LevelMatch        *bool
}

// HistoryRecord is one persisted assessment, written to the history ledger
// and read back as prompt context for later tasks by the same performer.
type HistoryRecord struct {
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`
	TaskURL  string `json:"task_url"`

	Speed         float64 `json:"speed"`
	SpeedReason   string  `json:"speed_reason"`
	Quality       float64 `json:"quality"`
	QualityReason string  `json:"quality_reason"`

	PlannedMinutes    *int     `json:"planned_minutes"`
	TrackedMinutes    *int     `json:"tracked_minutes"`
	OptimalMinutes    *int     `json:"optimal_time_minutes"`
	EstimateRealistic *bool    `json:"time_estimate_realistic"`
	ContextAdjustment *float64 `json:"context_adjustment"`
	Trend             string   `json:"trend"`
	LevelMatch        *bool    `json:"performer_level_match"`

	AssigneeID   string `json:"assignee_id"`
	AssigneeName string `json:"assignee_name"`
	Timestamp    string `json:"timestamp"`
}
