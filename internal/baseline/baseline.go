package baseline

import (
	"context"
	"math"
	"time"

	"vitalscore/internal/model"
)

// Params bound the trailing recompute window. MinSamples guards against
// degenerate baselines built from one or two readings.
type Params struct {
	WindowDays int
	MinSamples int
}

func DefaultParams() Params {
	return Params{WindowDays: 30, MinSamples: 5}
}

// Compute derives per-metric rolling baselines from samples that fall
// strictly before the cutoff date, so the value being tested never leaks
// into its own baseline.
func Compute(samples []model.MetricSample, cutoff time.Time, p Params, computedAt time.Time) []model.Baseline {
	if p.WindowDays <= 0 {
		p.WindowDays = DefaultParams().WindowDays
	}
	if p.MinSamples <= 0 {
		p.MinSamples = DefaultParams().MinSamples
	}
	windowStart := cutoff.AddDate(0, 0, -p.WindowDays)

	out := make([]model.Baseline, 0, len(model.TrackedMetrics))
	for _, mt := range model.TrackedMetrics {
		var acc welford
		var userID string
		for _, s := range samples {
			if !s.Date.Before(cutoff) || s.Date.Before(windowStart) {
				continue
			}
			v := s.Value(mt)
			if v == nil {
				continue
			}
			userID = s.UserID
			acc.add(*v)
		}
		if acc.n < p.MinSamples {
			continue
		}
		out = append(out, model.Baseline{
			UserID:       userID,
			MetricType:   mt,
			MeanValue:    acc.mean,
			StdDeviation: acc.stddev(),
			SampleCount:  acc.n,
			ComputedAt:   computedAt.UTC(),
		})
	}
	return out
}

// Refresh recomputes and persists a user's baselines from stored samples.
type SampleReader interface {
	ListSamples(ctx context.Context, userID string, from, to time.Time) ([]model.MetricSample, error)
}

type BaselineWriter interface {
	UpsertBaseline(ctx context.Context, b model.Baseline) error
}

func Refresh(ctx context.Context, reader SampleReader, writer BaselineWriter, userID string, cutoff time.Time, p Params) ([]model.Baseline, error) {
	from := cutoff.AddDate(0, 0, -p.WindowDays)
	samples, err := reader.ListSamples(ctx, userID, from, cutoff.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	baselines := Compute(samples, cutoff, p, time.Now())
	for i := range baselines {
		baselines[i].UserID = userID
		if writer != nil {
			if err := writer.UpsertBaseline(ctx, baselines[i]); err != nil {
				return nil, err
			}
		}
	}
	return baselines, nil
}

type welford struct {
	n    int
	mean float64
	m2   float64
}

func (w *welford) add(v float64) {
	w.n++
	diff := v - w.mean
	w.mean += diff / float64(w.n)
	w.m2 += diff * (v - w.mean)
}

func (w *welford) stddev() float64 {
	if w.n < 2 {
		return 0
	}
	return math.Sqrt(w.m2 / float64(w.n-1))
}
