package baseline

import (
	"math"
	"testing"
	"time"

	"vitalscore/internal/model"
)

func f(v float64) *float64 { return &v }

func hrvSample(date time.Time, v float64) model.MetricSample {
	return model.MetricSample{UserID: "u1", Date: date, Source: "test", HRV: f(v)}
}

func TestComputeMeanAndStd(t *testing.T) {
	cutoff := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	values := []float64{40, 42, 44, 46, 48}
	samples := make([]model.MetricSample, 0, len(values))
	for i, v := range values {
		samples = append(samples, hrvSample(cutoff.AddDate(0, 0, -(i+1)), v))
	}
	baselines := Compute(samples, cutoff, DefaultParams(), time.Now())
	if len(baselines) != 1 {
		t.Fatalf("expected 1 baseline, got %d", len(baselines))
	}
	b := baselines[0]
	if b.MetricType != model.MetricHRV {
		t.Fatalf("metric = %s", b.MetricType)
	}
	if math.Abs(b.MeanValue-44) > 1e-9 {
		t.Fatalf("mean = %v, want 44", b.MeanValue)
	}
	if math.Abs(b.StdDeviation-math.Sqrt(10)) > 1e-9 {
		t.Fatalf("std = %v, want sqrt(10)", b.StdDeviation)
	}
	if b.SampleCount != 5 {
		t.Fatalf("sample count = %d, want 5", b.SampleCount)
	}
}

func TestCutoffDayExcluded(t *testing.T) {
	// The scored day's own reading must not leak into its baseline.
	cutoff := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	samples := []model.MetricSample{hrvSample(cutoff, 500)}
	for i := 1; i <= 5; i++ {
		samples = append(samples, hrvSample(cutoff.AddDate(0, 0, -i), 44))
	}
	baselines := Compute(samples, cutoff, DefaultParams(), time.Now())
	if len(baselines) != 1 {
		t.Fatalf("expected 1 baseline, got %d", len(baselines))
	}
	if baselines[0].MeanValue != 44 {
		t.Fatalf("cutoff-day value leaked into mean: %v", baselines[0].MeanValue)
	}
}

func TestWindowBound(t *testing.T) {
	cutoff := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	var samples []model.MetricSample
	for i := 1; i <= 5; i++ {
		samples = append(samples, hrvSample(cutoff.AddDate(0, 0, -i), 44))
	}
	// Ancient outlier outside the 30-day window.
	samples = append(samples, hrvSample(cutoff.AddDate(0, 0, -45), 500))
	baselines := Compute(samples, cutoff, DefaultParams(), time.Now())
	if len(baselines) != 1 || baselines[0].MeanValue != 44 {
		t.Fatalf("out-of-window sample included: %+v", baselines)
	}
}

func TestMinSamplesGuard(t *testing.T) {
	cutoff := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	samples := []model.MetricSample{
		hrvSample(cutoff.AddDate(0, 0, -1), 44),
		hrvSample(cutoff.AddDate(0, 0, -2), 46),
	}
	baselines := Compute(samples, cutoff, DefaultParams(), time.Now())
	if len(baselines) != 0 {
		t.Fatalf("expected no baseline below min samples, got %d", len(baselines))
	}
}
