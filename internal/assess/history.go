package assess

import "github.com/taskpulse/taskpulse/internal/models"

// Performer bands derived from a combined historical average.
const (
	BandExpert       = "expert"
	BandProfessional = "professional"
	BandDeveloping   = "developing"
	BandProblematic  = "problematic"
	BandNoData       = "no data"
)

// NormalizeScore maps a raw historical score onto the 1-5 scale. Values
// above 5 are read as a 1-10 scale and halved; the result is clamped to
// [1,5]. Non-positive values carry no signal and are discarded.
func NormalizeScore(value float64) (float64, bool) {
	if value <= 0 {
		return 0, false
	}
	if value > 5 {
		value = value / 2
	}
	if value < 1 {
		value = 1
	}
	if value > 5 {
		value = 5
	}
	return value, true
}

// AverageSpeed returns the mean normalized speed score across records, or
// nil when no record carries a usable value.
func AverageSpeed(records []models.HistoryRecord) *float64 {
	return metricAverage(records, func(r models.HistoryRecord) float64 { return r.Speed })
}

// AverageQuality returns the mean normalized quality score across records.
func AverageQuality(records []models.HistoryRecord) *float64 {
	return metricAverage(records, func(r models.HistoryRecord) float64 { return r.Quality })
}

func metricAverage(records []models.HistoryRecord, pick func(models.HistoryRecord) float64) *float64 {
	var sum float64
	var n int
	for _, record := range records {
		if value, ok := NormalizeScore(pick(record)); ok {
			sum += value
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// CombinedAverage averages, per record, whichever of speed/quality are
// usable, then averages those per-record means across records.
func CombinedAverage(records []models.HistoryRecord) *float64 {
	var sum float64
	var n int
	for _, record := range records {
		var recordSum float64
		var parts int
		if value, ok := NormalizeScore(record.Speed); ok {
			recordSum += value
			parts++
		}
		if value, ok := NormalizeScore(record.Quality); ok {
			recordSum += value
			parts++
		}
		if parts > 0 {
			sum += recordSum / float64(parts)
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// PerformerBand classifies a combined average into a fixed band. A nil
// average means the performer has no scored history, which is reported as
// such rather than defaulted.
func PerformerBand(avg *float64) string {
	if avg == nil {
		return BandNoData
	}
	switch {
	case *avg >= 4.5:
		return BandExpert
	case *avg >= 3.5:
		return BandProfessional
	case *avg >= 2.5:
		return BandDeveloping
	default:
		return BandProblematic
	}
}
