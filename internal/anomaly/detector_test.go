package anomaly

import (
	"testing"
	"time"

	"vitalscore/internal/model"
)

func f(v float64) *float64 { return &v }

func baselineFor(mt model.MetricType, mean, std float64) model.Baseline {
	return model.Baseline{UserID: "u1", MetricType: mt, MeanValue: mean, StdDeviation: std}
}

func detectOne(t *testing.T, sample model.MetricSample, b model.Baseline) []model.AnomalyEvent {
	t.Helper()
	return Detect(sample, []model.Baseline{b}, DefaultThresholds(), time.Now())
}

func TestAdverseHRVDropWarning(t *testing.T) {
	// mean=45 std=8, today 29: deviation exactly -2.0, adverse, below
	// the critical bar.
	sample := model.MetricSample{UserID: "u1", HRV: f(29)}
	events := detectOne(t, sample, baselineFor(model.MetricHRV, 45, 8))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.DeviationSigma != -2.0 {
		t.Fatalf("deviation = %v, want -2.0", ev.DeviationSigma)
	}
	if ev.Severity != model.SeverityWarning {
		t.Fatalf("severity = %s, want warning", ev.Severity)
	}
}

func TestRestingHRSpikeCritical(t *testing.T) {
	// Resting HR inverts direction: +2.6 sigma is adverse and critical.
	sample := model.MetricSample{UserID: "u1", RestingHeartRate: f(73)}
	events := detectOne(t, sample, baselineFor(model.MetricRestingHR, 60, 5))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Severity != model.SeverityCritical {
		t.Fatalf("severity = %s, want critical", events[0].Severity)
	}
}

func TestFavorableHRVRiseBelowOverrideSuppressed(t *testing.T) {
	// +1.8 sigma in the good direction stays under the 2.0 override bar.
	sample := model.MetricSample{UserID: "u1", HRV: f(59.4)}
	events := detectOne(t, sample, baselineFor(model.MetricHRV, 45, 8))
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestFavorableExtremeSurfacedAtOverrideBar(t *testing.T) {
	// A +2.2 sigma step-count jump in the good direction still surfaces.
	sample := model.MetricSample{UserID: "u1", Steps: f(15500)}
	events := detectOne(t, sample, baselineFor(model.MetricSteps, 9000, 2954.5454))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Severity != model.SeverityWarning {
		t.Fatalf("severity = %s, want warning", events[0].Severity)
	}
}

func TestSymmetricCriticalOnAdverseDrop(t *testing.T) {
	// -2.6 sigma HRV drop mirrors the resting-HR spike severity.
	sample := model.MetricSample{UserID: "u1", HRV: f(24.2)}
	events := detectOne(t, sample, baselineFor(model.MetricHRV, 45, 8))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Severity != model.SeverityCritical {
		t.Fatalf("severity = %s, want critical", events[0].Severity)
	}
}

func TestBelowCandidateIgnored(t *testing.T) {
	sample := model.MetricSample{UserID: "u1", HRV: f(36)}
	events := detectOne(t, sample, baselineFor(model.MetricHRV, 45, 8))
	if len(events) != 0 {
		t.Fatalf("expected no events at -1.125 sigma, got %d", len(events))
	}
}

func TestDegenerateBaselineSkipped(t *testing.T) {
	sample := model.MetricSample{UserID: "u1", HRV: f(10)}
	events := detectOne(t, sample, baselineFor(model.MetricHRV, 45, 0))
	if len(events) != 0 {
		t.Fatalf("zero-variance baseline must be skipped, got %d events", len(events))
	}
}

func TestMissingValueSkipped(t *testing.T) {
	sample := model.MetricSample{UserID: "u1"}
	events := detectOne(t, sample, baselineFor(model.MetricHRV, 45, 8))
	if len(events) != 0 {
		t.Fatalf("missing reading must be skipped, got %d events", len(events))
	}
}

func TestMultipleMetricsOneRun(t *testing.T) {
	sample := model.MetricSample{
		UserID:           "u1",
		HRV:              f(24),
		RestingHeartRate: f(75),
		RecoveryScore:    f(68),
	}
	baselines := []model.Baseline{
		baselineFor(model.MetricHRV, 45, 8),
		baselineFor(model.MetricRestingHR, 60, 5),
		baselineFor(model.MetricRecovery, 70, 6),
	}
	events := Detect(sample, baselines, DefaultThresholds(), time.Now())
	if len(events) != 2 {
		t.Fatalf("expected hrv and resting-hr events only, got %d", len(events))
	}
	seen := map[model.MetricType]bool{}
	for _, ev := range events {
		seen[ev.MetricType] = true
		if ev.ID == "" {
			t.Fatalf("event missing id")
		}
	}
	if !seen[model.MetricHRV] || !seen[model.MetricRestingHR] {
		t.Fatalf("unexpected event set: %v", seen)
	}
}
