package normalize

import (
	"math"
	"testing"

	"vitalscore/internal/model"
)

func f(v float64) *float64 { return &v }

func profile(age int, sex model.Sex, conds ...model.Condition) model.UserProfile {
	return model.UserProfile{UserID: "u1", Age: age, Sex: sex, Conditions: conds}
}

func TestHRVLowSegment(t *testing.T) {
	// Age 45 male puts the low threshold at 30ms; 22ms lands in the
	// 0-40 linear segment at 22/30*40.
	score := HRVScore(f(22), profile(45, model.SexMale))
	if math.Round(score) != 29 {
		t.Fatalf("hrv score = %v, want ~29", score)
	}
}

func TestHRVMidAndUpperSegments(t *testing.T) {
	p := profile(45, model.SexMale)
	if got := HRVScore(f(30), p); got != 40 {
		t.Fatalf("score at low threshold = %v, want 40", got)
	}
	if got := HRVScore(f(60), p); got != 70 {
		t.Fatalf("score at high threshold = %v, want 70", got)
	}
	// Above high the rate halves: +60ms over high earns the last 30.
	if got := HRVScore(f(120), p); got != 100 {
		t.Fatalf("score at saturation = %v, want 100", got)
	}
	if got := HRVScore(f(200), p); got != 100 {
		t.Fatalf("score beyond saturation = %v, want 100", got)
	}
}

func TestHRVMonotonic(t *testing.T) {
	p := profile(38, model.SexFemale)
	prev := -1.0
	for raw := 0.0; raw <= 150; raw += 2.5 {
		got := HRVScore(f(raw), p)
		if got < prev {
			t.Fatalf("score decreased at raw=%v: %v < %v", raw, got, prev)
		}
		prev = got
	}
}

func TestHRVConditionPenaltiesCommute(t *testing.T) {
	a := HRVScore(f(50), profile(45, model.SexMale,
		model.ConditionHeartFailure, model.ConditionDiabetes, model.ConditionChronicKidney))
	b := HRVScore(f(50), profile(45, model.SexMale,
		model.ConditionChronicKidney, model.ConditionHeartFailure, model.ConditionDiabetes))
	if a != b {
		t.Fatalf("penalty order changed score: %v != %v", a, b)
	}
	healthy := HRVScore(f(50), profile(45, model.SexMale))
	if a >= healthy {
		t.Fatalf("penalized score %v not below healthy score %v", a, healthy)
	}
}

func TestDeepSleepSeniorInflation(t *testing.T) {
	// Senior band target is 60 minutes; age 65 inflates 60 raw minutes
	// to 66, landing above target: 70 + 6/96*30.
	score := SleepScore(f(60), nil, profile(65, model.SexMale))
	want := 70 + (66.0-60.0)/(2*(60.0-36.0))*30
	if math.Abs(score-want) > 1e-9 {
		t.Fatalf("sleep score = %v, want %v", score, want)
	}
}

func TestSleepScoreFallback(t *testing.T) {
	p := profile(30, model.SexFemale)
	if got := SleepScore(nil, f(82), p); got != 82 {
		t.Fatalf("vendor sleep score passthrough = %v, want 82", got)
	}
	if got := SleepScore(nil, nil, p); got != 50 {
		t.Fatalf("missing sleep = %v, want neutral 50", got)
	}
}

func TestRecoveryScore(t *testing.T) {
	cases := []struct {
		name string
		raw  *float64
		want float64
	}{
		{"missing defaults neutral", nil, 50},
		{"passthrough", f(73), 73},
		{"clamped high", f(130), 100},
		{"clamped low", f(-10), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RecoveryScore(tc.raw); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestActivityTiers(t *testing.T) {
	cases := []struct {
		steps float64
		want  float64
	}{
		{0, 0},
		{2500, 25},
		{5000, 50},
		{7500, 70},
		{10000, 85},
		{25000, 100},
	}
	for _, tc := range cases {
		if got := ActivityScore(f(tc.steps), nil); got != tc.want {
			t.Fatalf("steps=%v: got %v, want %v", tc.steps, got, tc.want)
		}
	}
}

func TestActivityHeartRateAdjustment(t *testing.T) {
	if got := ActivityScore(f(10000), f(55)); got != 95 {
		t.Fatalf("low rhr bonus: got %v, want 95", got)
	}
	if got := ActivityScore(f(10000), f(95)); got != 65 {
		t.Fatalf("high rhr penalty: got %v, want 65", got)
	}
	// Missing steps still gets the adjustment on the neutral base.
	if got := ActivityScore(nil, f(55)); got != 60 {
		t.Fatalf("neutral base with bonus: got %v, want 60", got)
	}
}

func TestActivityMonotonicInSteps(t *testing.T) {
	prev := -1.0
	for steps := 0.0; steps <= 30000; steps += 250 {
		got := ActivityScore(f(steps), nil)
		if got < prev {
			t.Fatalf("activity score decreased at steps=%v: %v < %v", steps, got, prev)
		}
		prev = got
	}
}

func TestComponentsMissingEverything(t *testing.T) {
	c := Components(model.MetricSample{UserID: "u1"}, profile(50, model.SexOther))
	if c.HRVScore != 50 || c.SleepScore != 50 || c.RecoveryScore != 50 || c.ActivityScore != 50 {
		t.Fatalf("empty sample should score neutral across the board: %+v", c)
	}
}
