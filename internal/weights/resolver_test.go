package weights

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"vitalscore/internal/advisory"
	"vitalscore/internal/model"
)

type stubAdvisor struct {
	fn func(ctx context.Context, req advisory.Request) (advisory.Suggestion, error)
}

func (s *stubAdvisor) SuggestWeights(ctx context.Context, req advisory.Request) (advisory.Suggestion, error) {
	return s.fn(ctx, req)
}

func f(v float64) *float64 { return &v }

func male45() model.UserProfile {
	return model.UserProfile{UserID: "u1", Age: 45, Sex: model.SexMale}
}

func assertSumsToOne(t *testing.T, w model.Weights) {
	t.Helper()
	if math.Abs(w.Sum()-1.0) > 1e-6 {
		t.Fatalf("weights sum = %v, want 1.0", w.Sum())
	}
}

func TestNoAdvisorUsesDefaults(t *testing.T) {
	r := NewResolver(nil, time.Second, nil)
	w := r.Resolve(context.Background(), male45(), nil)
	if w.HRV != 0.30 || w.Sleep != 0.30 || w.Recovery != 0.20 || w.Activity != 0.20 {
		t.Fatalf("unexpected defaults: %+v", w)
	}
	assertSumsToOne(t, w)
}

func TestAdvisorySuggestionRenormalized(t *testing.T) {
	adv := &stubAdvisor{fn: func(context.Context, advisory.Request) (advisory.Suggestion, error) {
		return advisory.Suggestion{HRV: 2, Sleep: 1, Recovery: 1, Activity: 1, Reasoning: "hrv priority"}, nil
	}}
	r := NewResolver(adv, time.Second, nil)
	w := r.Resolve(context.Background(), male45(), nil)
	assertSumsToOne(t, w)
	if math.Abs(w.HRV-0.4) > 1e-9 || math.Abs(w.Sleep-0.2) > 1e-9 {
		t.Fatalf("renormalization wrong: %+v", w)
	}
	if w.Reasoning != "hrv priority" {
		t.Fatalf("reasoning = %q", w.Reasoning)
	}
}

func TestFallbackOnAdvisoryError(t *testing.T) {
	adv := &stubAdvisor{fn: func(context.Context, advisory.Request) (advisory.Suggestion, error) {
		return advisory.Suggestion{}, advisory.ErrUnavailable
	}}
	r := NewResolver(adv, time.Second, nil)
	w := r.Resolve(context.Background(), male45(), nil)
	assertSumsToOne(t, w)
	if !strings.Contains(w.Reasoning, "advisory unavailable") {
		t.Fatalf("fallback reasoning not marked: %q", w.Reasoning)
	}
}

func TestFallbackOnTimeout(t *testing.T) {
	adv := &stubAdvisor{fn: func(ctx context.Context, _ advisory.Request) (advisory.Suggestion, error) {
		<-ctx.Done()
		return advisory.Suggestion{}, ctx.Err()
	}}
	r := NewResolver(adv, 10*time.Millisecond, nil)
	w := r.Resolve(context.Background(), male45(), nil)
	assertSumsToOne(t, w)
	if !strings.Contains(w.Reasoning, "advisory unavailable") {
		t.Fatalf("timeout should fall back: %q", w.Reasoning)
	}
}

func TestFallbackOnDegenerateSuggestions(t *testing.T) {
	cases := []struct {
		name string
		s    advisory.Suggestion
	}{
		{"all zero", advisory.Suggestion{}},
		{"negative weight", advisory.Suggestion{HRV: -1, Sleep: 1, Recovery: 1, Activity: 1}},
		{"nan weight", advisory.Suggestion{HRV: math.NaN(), Sleep: 1, Recovery: 1, Activity: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adv := &stubAdvisor{fn: func(context.Context, advisory.Request) (advisory.Suggestion, error) {
				return tc.s, nil
			}}
			r := NewResolver(adv, time.Second, nil)
			w := r.Resolve(context.Background(), male45(), nil)
			assertSumsToOne(t, w)
			if !strings.Contains(w.Reasoning, "advisory unavailable") {
				t.Fatalf("degenerate suggestion should fall back: %q", w.Reasoning)
			}
		})
	}
}

func TestResolveNeverReturnsError(t *testing.T) {
	adv := &stubAdvisor{fn: func(context.Context, advisory.Request) (advisory.Suggestion, error) {
		return advisory.Suggestion{}, errors.New("boom")
	}}
	r := NewResolver(adv, time.Second, nil)
	// The contract is by signature: Resolve cannot propagate the error,
	// only degrade. This asserts the degraded value is usable.
	w := r.Resolve(context.Background(), male45(), nil)
	assertSumsToOne(t, w)
}

func TestSufficiencyFlags(t *testing.T) {
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	samples := []model.MetricSample{
		{UserID: "u1", Date: day.AddDate(0, 0, -1), HRV: f(45), Steps: f(8000)},
		{UserID: "u1", Date: day.AddDate(0, 0, -2), HRV: f(47), RecoveryScore: f(70)},
		{UserID: "u1", Date: day.AddDate(0, 0, -3), HRV: f(44), DeepSleepMinutes: f(80)},
		{UserID: "u1", Date: day.AddDate(0, 0, -4), Steps: f(9000)},
	}
	flags := SufficiencyFlags(samples)
	if !flags.HRV {
		t.Fatalf("hrv has 3 readings, want sufficient")
	}
	if flags.Sleep || flags.Recovery || flags.Activity {
		t.Fatalf("only hrv should be sufficient: %+v", flags)
	}
}

func TestSufficiencyCountsDaysNotRows(t *testing.T) {
	// Two devices reporting the same two days give four HRV rows but only
	// two distinct days, short of the three-day bar.
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	samples := []model.MetricSample{
		{UserID: "u1", Date: day.AddDate(0, 0, -1), Source: "ring", HRV: f(45)},
		{UserID: "u1", Date: day.AddDate(0, 0, -1), Source: "watch", HRV: f(46)},
		{UserID: "u1", Date: day.AddDate(0, 0, -2), Source: "ring", HRV: f(44)},
		{UserID: "u1", Date: day.AddDate(0, 0, -2), Source: "watch", HRV: f(45)},
	}
	flags := SufficiencyFlags(samples)
	if flags.HRV {
		t.Fatalf("2 days from 2 sources flagged sufficient: %+v", flags)
	}
	samples = append(samples, model.MetricSample{UserID: "u1", Date: day.AddDate(0, 0, -3), Source: "ring", HRV: f(47)})
	if flags = SufficiencyFlags(samples); !flags.HRV {
		t.Fatalf("3 distinct days should be sufficient: %+v", flags)
	}
}

func TestRecentWindowExcludesScoredDay(t *testing.T) {
	day := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	samples := []model.MetricSample{
		{UserID: "u1", Date: day, HRV: f(45)},
		{UserID: "u1", Date: day.AddDate(0, 0, -1), HRV: f(46)},
		{UserID: "u1", Date: day.AddDate(0, 0, -8), HRV: f(47)},
	}
	window := RecentWindow(samples, day)
	if len(window) != 1 {
		t.Fatalf("window size = %d, want 1", len(window))
	}
	if !window[0].Date.Equal(day.AddDate(0, 0, -1)) {
		t.Fatalf("wrong sample in window: %v", window[0].Date)
	}
}
