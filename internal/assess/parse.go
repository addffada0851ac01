package assess

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/taskpulse/taskpulse/internal/models"
)

// ErrInvalidOutput reports that the model's response could not be parsed
// into an assessment.
var ErrInvalidOutput = errors.New("invalid model output")

// parseAssessment turns the raw completion text into an Assessment. Speed
// and quality are mandatory and clamped to [1,5]; every other field is
// coerced defensively and dropped when unusable.
func parseAssessment(raw string) (*models.Assessment, error) {
	content := stripCodeFence(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOutput, content)
	}

	speed, err := requiredScore(data, "speed_score")
	if err != nil {
		return nil, err
	}
	quality, err := requiredScore(data, "quality_score")
	if err != nil {
		return nil, err
	}

	result := &models.Assessment{
		Speed:         clampScore(speed),
		Quality:       clampScore(quality),
		SpeedReason:   truncateWords(strings.TrimSpace(cast.ToString(data["speed_reason"])), maxReasonWords),
		QualityReason: truncateWords(strings.TrimSpace(cast.ToString(data["quality_reason"])), maxReasonWords),

		OptimalMinutes:    optionalInt(data["optimal_time_minutes"]),
		EstimateRealistic: optionalBool(data["time_estimate_realistic"]),
		// Deliberately unclamped: the prompt documents -1..+1 but the
		// value is passed through as received.
		ContextAdjustment: optionalFloat(data["context_adjustment"]),
		LevelMatch:        optionalBool(data["performer_level_match"]),
	}

	if trend, ok := data["trend"].(string); ok {
		result.Trend = models.Trend(strings.ToLower(strings.TrimSpace(trend)))
	}

	return result, nil
}

func requiredScore(data map[string]any, key string) (int, error) {
	value, present := data[key]
	if !present || value == nil {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidOutput, key)
	}
	score, err := cast.ToIntE(value)
	if err != nil {
		// Model sometimes answers with a float or a numeric string.
		f, ferr := cast.ToFloat64E(value)
		if ferr != nil {
			return 0, fmt.Errorf("%w: %s is not a number", ErrInvalidOutput, key)
		}
		score = int(f)
	}
	return score, nil
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 5 {
		return 5
	}
	return score
}

func optionalInt(value any) *int {
	if value == nil || value == "" {
		return nil
	}
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return nil
	}
	rounded := int(f + 0.5)
	if f < 0 {
		rounded = int(f - 0.5)
	}
	return &rounded
}

func optionalFloat(value any) *float64 {
	if value == nil || value == "" {
		return nil
	}
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return nil
	}
	return &f
}

// optionalBool accepts real booleans plus the yes/no, true/false and 1/0
// spellings models tend to produce. Anything else is absent.
func optionalBool(value any) *bool {
	switch v := value.(type) {
	case bool:
		return &v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1":
			b := true
			return &b
		case "false", "no", "n", "0":
			b := false
			return &b
		}
	case float64, int, int64, json.Number:
		f, err := cast.ToFloat64E(v)
		if err == nil {
			if f == 1 {
				b := true
				return &b
			}
			if f == 0 {
				b := false
				return &b
			}
		}
	}
	return nil
}

// stripCodeFence removes an optional ```-fenced wrapper around the model's
// JSON answer.
func stripCodeFence(content string) string {
	stripped := strings.TrimSpace(content)
	if !strings.HasPrefix(stripped, "```") {
		return stripped
	}
	lines := strings.Split(stripped, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
