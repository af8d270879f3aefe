package percentile

import (
	"math"
	"testing"

	"vitalscore/internal/model"
)

func male45() model.UserProfile {
	return model.UserProfile{UserID: "u1", Age: 45, Sex: model.SexMale}
}

func TestHRVMedian(t *testing.T) {
	res, err := Classify(model.MetricHRV, 48, male45())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res.Percentile != 50 {
		t.Fatalf("percentile = %v, want 50", res.Percentile)
	}
	if res.Classification != ClassModerate {
		t.Fatalf("classification = %s, want moderate", res.Classification)
	}
}

func TestHRVInterpolation(t *testing.T) {
	// Age 45 male: p5=18, p25=34. Value 26 sits halfway between.
	res, err := Classify(model.MetricHRV, 26, male45())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if math.Abs(res.Percentile-15) > 1e-9 {
		t.Fatalf("percentile = %v, want 15", res.Percentile)
	}
	if res.Classification != ClassLow {
		t.Fatalf("classification = %s, want low", res.Classification)
	}
}

func TestHRVBuckets(t *testing.T) {
	cases := []struct {
		value float64
		want  Classification
	}{
		{20, ClassLow},
		{45, ClassModerate},
		{70, ClassFavorable},
	}
	for _, tc := range cases {
		res, err := Classify(model.MetricHRV, tc.value, male45())
		if err != nil {
			t.Fatalf("classify %v: %v", tc.value, err)
		}
		if res.Classification != tc.want {
			t.Fatalf("value %v: classification = %s, want %s", tc.value, res.Classification, tc.want)
		}
	}
}

func TestExtrapolationClamps(t *testing.T) {
	low, err := Classify(model.MetricHRV, 2, male45())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if low.Percentile != 1 {
		t.Fatalf("deep low percentile = %v, want clamp to 1", low.Percentile)
	}
	high, err := Classify(model.MetricHRV, 300, male45())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if high.Percentile != 99 {
		t.Fatalf("extreme high percentile = %v, want clamp to 99", high.Percentile)
	}
}

func TestFemaleTablesDiffer(t *testing.T) {
	female := model.UserProfile{UserID: "u2", Age: 45, Sex: model.SexFemale}
	m, _ := Classify(model.MetricHRV, 50, male45())
	f, _ := Classify(model.MetricHRV, 50, female)
	if m.Percentile == f.Percentile {
		t.Fatalf("expected sex-specific percentiles, both %v", m.Percentile)
	}
}

func TestDeepSleepBucketsAreThresholdBased(t *testing.T) {
	// Under-50 band thresholds: <50 inadequate, <75 borderline.
	cases := []struct {
		minutes float64
		want    Classification
	}{
		{45, ClassInadequate},
		{60, ClassBorderline},
		{80, ClassAdequate},
	}
	for _, tc := range cases {
		res, err := Classify(model.MetricDeepSleep, tc.minutes, male45())
		if err != nil {
			t.Fatalf("classify %v: %v", tc.minutes, err)
		}
		if res.Classification != tc.want {
			t.Fatalf("minutes %v: classification = %s, want %s", tc.minutes, res.Classification, tc.want)
		}
		if res.Percentile < 1 || res.Percentile > 99 {
			t.Fatalf("percentile %v out of range", res.Percentile)
		}
	}
}

func TestUnsupportedMetric(t *testing.T) {
	if _, err := Classify(model.MetricSteps, 9000, male45()); err == nil {
		t.Fatalf("expected error for unsupported metric")
	}
}
