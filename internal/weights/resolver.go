package weights

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"vitalscore/internal/advisory"
	"vitalscore/internal/model"
)

const (
	// A metric counts as sufficiently covered with at least this many
	// distinct days carrying a non-null reading over the trailing window.
	sufficientReadings = 3
	windowDays         = 7

	fallbackReasoning = "default weights (advisory unavailable)"
)

// DefaultWeights returns the deterministic weight table.
func DefaultWeights() model.Weights {
	return model.Weights{
		HRV:       0.30,
		Sleep:     0.30,
		Recovery:  0.20,
		Activity:  0.20,
		Reasoning: "default weights",
	}
}

// Resolver produces the component weights for one scoring run. The
// advisory step is optional and fallible; resolution itself never fails.
type Resolver struct {
	advisor  advisory.Advisor
	timeout  time.Duration
	defaults model.Weights
	logger   *slog.Logger
}

func NewResolver(advisor advisory.Advisor, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		advisor:  advisor,
		timeout:  timeout,
		defaults: DefaultWeights(),
		logger:   logger,
	}
}

// SetDefaults replaces the deterministic weight table, typically from
// configuration. Tables that do not sum to 1.0 are ignored.
func (r *Resolver) SetDefaults(w model.Weights) {
	if math.Abs(w.Sum()-1.0) > 1e-6 {
		return
	}
	if w.Reasoning == "" {
		w.Reasoning = "default weights"
	}
	r.defaults = w
}

// Resolve returns valid weights for the profile. Any advisory failure
// (transport, timeout, malformed reply, degenerate weights) falls back to
// the defaults with a reasoning string marking the fallback.
func (r *Resolver) Resolve(ctx context.Context, profile model.UserProfile, recent []model.MetricSample) model.Weights {
	if r.advisor == nil {
		return r.defaults
	}
	req := advisory.Request{
		Age:         profile.Age,
		Conditions:  profile.Conditions,
		Sufficiency: SufficiencyFlags(recent),
	}
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	suggestion, err := r.advisor.SuggestWeights(callCtx, req)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("weight advisory failed, using defaults", "user_id", profile.UserID, "err", err)
		}
		return r.fallback()
	}
	w, err := normalizeSuggestion(suggestion)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("weight suggestion rejected, using defaults", "user_id", profile.UserID, "err", err)
		}
		return r.fallback()
	}
	return w
}

func (r *Resolver) fallback() model.Weights {
	w := r.defaults
	w.Reasoning = fallbackReasoning
	return w
}

// SufficiencyFlags reports, per metric, whether at least 3 of the last 7
// days carry a non-null reading. Days count once regardless of how many
// sources reported them.
func SufficiencyFlags(recent []model.MetricSample) advisory.Sufficiency {
	hrv := make(map[string]struct{})
	sleep := make(map[string]struct{})
	recovery := make(map[string]struct{})
	activity := make(map[string]struct{})
	for _, s := range recent {
		day := s.Date.UTC().Format("2006-01-02")
		if s.HRV != nil {
			hrv[day] = struct{}{}
		}
		if s.DeepSleepMinutes != nil || s.SleepScore != nil {
			sleep[day] = struct{}{}
		}
		if s.RecoveryScore != nil {
			recovery[day] = struct{}{}
		}
		if s.Steps != nil {
			activity[day] = struct{}{}
		}
	}
	return advisory.Sufficiency{
		HRV:      len(hrv) >= sufficientReadings,
		Sleep:    len(sleep) >= sufficientReadings,
		Recovery: len(recovery) >= sufficientReadings,
		Activity: len(activity) >= sufficientReadings,
	}
}

// normalizeSuggestion re-normalizes the collaborator's weights so they
// sum to 1.0 regardless of what was returned. Negative or non-finite
// weights and a non-positive sum are rejected.
func normalizeSuggestion(s advisory.Suggestion) (model.Weights, error) {
	values := []float64{s.HRV, s.Sleep, s.Recovery, s.Activity}
	sum := 0.0
	for _, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Weights{}, fmt.Errorf("invalid weight %v", v)
		}
		sum += v
	}
	if sum <= 0 {
		return model.Weights{}, fmt.Errorf("weights sum to %v", sum)
	}
	reasoning := s.Reasoning
	if reasoning == "" {
		reasoning = "advisory weights"
	}
	return model.Weights{
		HRV:       s.HRV / sum,
		Sleep:     s.Sleep / sum,
		Recovery:  s.Recovery / sum,
		Activity:  s.Activity / sum,
		Reasoning: reasoning,
	}, nil
}

// RecentWindow filters samples to the trailing sufficiency window that
// ends the day before the scored date.
func RecentWindow(samples []model.MetricSample, date time.Time) []model.MetricSample {
	cutoff := date.AddDate(0, 0, -windowDays)
	out := make([]model.MetricSample, 0, len(samples))
	for _, s := range samples {
		if s.Date.Before(date) && !s.Date.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}
