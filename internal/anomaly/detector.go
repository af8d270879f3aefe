package anomaly

import (
	"math"
	"time"

	"github.com/google/uuid"

	"vitalscore/internal/model"
)

// Thresholds control the two-bar detection policy. A metric becomes a
// candidate at CandidateSigma, is emitted when adverse-directioned or
// beyond OverrideSigma, and is critical beyond CriticalSigma.
type Thresholds struct {
	CandidateSigma float64
	OverrideSigma  float64
	CriticalSigma  float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{CandidateSigma: 1.5, OverrideSigma: 2.0, CriticalSigma: 2.5}
}

// lowerIsAdverse marks metrics where a drop below baseline is the bad
// direction. Resting heart rate inverts: a rise is adverse.
var lowerIsAdverse = map[model.MetricType]bool{
	model.MetricHRV:       true,
	model.MetricDeepSleep: true,
	model.MetricRecovery:  true,
	model.MetricSteps:     true,
	model.MetricRestingHR: false,
}

// Detect compares one day's sample against the user's rolling baselines
// and emits an event per significant deviation. Metrics with no reading
// or a zero-variance baseline are skipped. Large swings in the favorable
// direction are still surfaced, at the higher override bar.
func Detect(sample model.MetricSample, baselines []model.Baseline, th Thresholds, now time.Time) []model.AnomalyEvent {
	events := make([]model.AnomalyEvent, 0)
	for _, b := range baselines {
		adverseLow, tracked := lowerIsAdverse[b.MetricType]
		if !tracked {
			continue
		}
		value := sample.Value(b.MetricType)
		if value == nil || b.StdDeviation <= 0 {
			continue
		}
		deviation := (*value - b.MeanValue) / b.StdDeviation
		magnitude := math.Abs(deviation)
		if magnitude < th.CandidateSigma {
			continue
		}
		adverse := (deviation < 0) == adverseLow
		if !adverse && magnitude < th.OverrideSigma {
			continue
		}
		severity := model.SeverityWarning
		if magnitude >= th.CriticalSigma {
			severity = model.SeverityCritical
		}
		events = append(events, model.AnomalyEvent{
			ID:             uuid.NewString(),
			UserID:         sample.UserID,
			MetricType:     b.MetricType,
			DetectedValue:  *value,
			BaselineValue:  b.MeanValue,
			DeviationSigma: deviation,
			Severity:       severity,
			DetectedAt:     now.UTC(),
		})
	}
	return events
}
