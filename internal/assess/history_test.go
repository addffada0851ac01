package assess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskpulse/taskpulse/internal/models"
)

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  float64
		ok    bool
	}{
		{"zero discarded", 0, 0, false},
		{"negative discarded", -3, 0, false},
		{"in range", 3.5, 3.5, true},
		{"ten scale halved", 8, 4, true},
		{"ten scale clamped low", 0.5, 1, true},
		{"huge clamped high", 20, 5, true},
		{"boundary five", 5, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeScore(tt.value)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}

func TestAverages(t *testing.T) {
	records := []models.HistoryRecord{
		{Speed: 4, Quality: 8},  // quality on the 1-10 scale, normalizes to 4
		{Speed: 2, Quality: 0},  // quality carries no signal
		{Speed: -1, Quality: 3}, // speed carries no signal
	}

	speed := AverageSpeed(records)
	require.NotNil(t, speed)
	assert.InDelta(t, 3.0, *speed, 0.001)

	quality := AverageQuality(records)
	require.NotNil(t, quality)
	assert.InDelta(t, 3.5, *quality, 0.001)

	// Per-record means: (4+4)/2=4, 2/1=2, 3/1=3 -> (4+2+3)/3
	combined := CombinedAverage(records)
	require.NotNil(t, combined)
	assert.InDelta(t, 3.0, *combined, 0.001)
}

func TestAverages_NoSignal(t *testing.T) {
	records := []models.HistoryRecord{{Speed: 0, Quality: -2}}
	assert.Nil(t, AverageSpeed(records))
	assert.Nil(t, AverageQuality(records))
	assert.Nil(t, CombinedAverage(records))
	assert.Nil(t, CombinedAverage(nil))
}

func TestPerformerBand(t *testing.T) {
	tests := []struct {
		name string
		avg  *float64
		want string
	}{
		{"nil is no data", nil, BandNoData},
		{"expert", floatPtr(4.6), BandExpert},
		{"expert boundary", floatPtr(4.5), BandExpert},
		{"professional", floatPtr(3.6), BandProfessional},
		{"developing", floatPtr(2.6), BandDeveloping},
		{"problematic", floatPtr(1.0), BandProblematic},
		{"problematic boundary", floatPtr(2.49), BandProblematic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PerformerBand(tt.avg))
		})
	}
}

func floatPtr(v float64) *float64 { return &v }
