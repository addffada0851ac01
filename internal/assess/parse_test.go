package assess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskpulse/taskpulse/internal/models"
)

func TestParseAssessment(t *testing.T) {
	raw := `{
		"speed_score": 4,
		"quality_score": 5,
		"speed_reason": "finished on time",
		"quality_reason": "no defects found",
		"optimal_time_minutes": 180,
		"time_estimate_realistic": true,
		"context_adjustment": 0.3,
		"trend": "Progress",
		"performer_level_match": false
	}`

	result, err := parseAssessment(raw)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Speed)
	assert.Equal(t, 5, result.Quality)
	assert.Equal(t, "finished on time", result.SpeedReason)
	assert.Equal(t, "no defects found", result.QualityReason)

	require.NotNil(t, result.OptimalMinutes)
	assert.Equal(t, 180, *result.OptimalMinutes)
	require.NotNil(t, result.EstimateRealistic)
	assert.True(t, *result.EstimateRealistic)
	require.NotNil(t, result.ContextAdjustment)
	assert.InDelta(t, 0.3, *result.ContextAdjustment, 0.001)
	require.NotNil(t, result.LevelMatch)
	assert.False(t, *result.LevelMatch)
	assert.Equal(t, models.TrendProgress, result.Trend)
}

func TestParseAssessment_CodeFence(t *testing.T) {
	raw := "```json\n{\"speed_score\": 3, \"quality_score\": 3}\n```"
	result, err := parseAssessment(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Speed)
	assert.Equal(t, 3, result.Quality)
}

func TestParseAssessment_ClampsScores(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantSpeed   int
		wantQuality int
	}{
		{"above range", `{"speed_score": 9, "quality_score": 7}`, 5, 5},
		{"below range", `{"speed_score": 0, "quality_score": -2}`, 1, 1},
		{"float scores", `{"speed_score": 4.7, "quality_score": 2.2}`, 4, 2},
		{"string scores", `{"speed_score": "4", "quality_score": "5"}`, 4, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseAssessment(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSpeed, result.Speed)
			assert.Equal(t, tt.wantQuality, result.Quality)
		})
	}
}

func TestParseAssessment_InvalidOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "I think this task deserves a 4."},
		{"missing speed", `{"quality_score": 4}`},
		{"missing quality", `{"speed_score": 4}`},
		{"null score", `{"speed_score": null, "quality_score": 4}`},
		{"non numeric score", `{"speed_score": "fast", "quality_score": 4}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAssessment(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOutput)
		})
	}
}

func TestParseAssessment_TruncatesReasons(t *testing.T) {
	long := strings.Repeat("word ", 40)
	raw := `{"speed_score": 3, "quality_score": 3, "speed_reason": "` + strings.TrimSpace(long) + `"}`

	result, err := parseAssessment(raw)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(result.SpeedReason), 30)
}

func TestParseAssessment_OptionalFieldsDropped(t *testing.T) {
	raw := `{
		"speed_score": 3,
		"quality_score": 3,
		"optimal_time_minutes": "soon",
		"time_estimate_realistic": "maybe",
		"context_adjustment": "a lot",
		"trend": 7
	}`

	result, err := parseAssessment(raw)
	require.NoError(t, err)
	assert.Nil(t, result.OptimalMinutes)
	assert.Nil(t, result.EstimateRealistic)
	assert.Nil(t, result.ContextAdjustment)
	assert.Equal(t, models.Trend(""), result.Trend)
}

func TestParseAssessment_BoolSpellings(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{`"yes"`, true},
		{`"No"`, false},
		{`1`, true},
		{`0`, false},
		{`"true"`, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			raw := `{"speed_score": 3, "quality_score": 3, "time_estimate_realistic": ` + tt.value + `}`
			result, err := parseAssessment(raw)
			require.NoError(t, err)
			require.NotNil(t, result.EstimateRealistic)
			assert.Equal(t, tt.want, *result.EstimateRealistic)
		})
	}
}

func TestParseAssessment_AdjustmentUnclamped(t *testing.T) {
	raw := `{"speed_score": 3, "quality_score": 3, "context_adjustment": 2.5}`
	result, err := parseAssessment(raw)
	require.NoError(t, err)
	require.NotNil(t, result.ContextAdjustment)
	assert.InDelta(t, 2.5, *result.ContextAdjustment, 0.001)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"fenced", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced with language", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"unterminated fence", "```json\n{\"a\": 1}", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFence(tt.raw))
		})
	}
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "one two", truncateWords("one two", 5))
	assert.Equal(t, "one two three", truncateWords("one two three four five", 3))
	assert.Equal(t, "", truncateWords("", 3))
}
