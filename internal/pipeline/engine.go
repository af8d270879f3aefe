package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"vitalscore/internal/anomaly"
	"vitalscore/internal/baseline"
	"vitalscore/internal/config"
	"vitalscore/internal/events"
	"vitalscore/internal/model"
	"vitalscore/internal/normalize"
	"vitalscore/internal/results"
	"vitalscore/internal/scoring"
	"vitalscore/internal/storage"
	"vitalscore/internal/weights"
)

// ProfileSource supplies user profiles. Scoring fails fast when the
// profile or its age is missing.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (model.UserProfile, bool, error)
}

// Engine runs the scoring pipeline for each ingested sample: persist the
// row, resolve weights, normalize, score, refresh baselines, detect
// anomalies, persist results. Runs for different users are independent;
// all per-user state lives in storage.
type Engine struct {
	logger   *slog.Logger
	results  *results.Store
	events   *events.Store
	store    storage.Store
	profiles ProfileSource
	resolver *weights.Resolver
	cfg      atomic.Value
	started  time.Time
}

func NewEngine(cfg *config.Config, logger *slog.Logger, resultsStore *results.Store, eventsStore *events.Store, store storage.Store, profiles ProfileSource, resolver *weights.Resolver) *Engine {
	e := &Engine{
		logger:   logger,
		results:  resultsStore,
		events:   eventsStore,
		store:    store,
		profiles: profiles,
		resolver: resolver,
		started:  time.Now().UTC(),
	}
	e.cfg.Store(cfg)
	return e
}

func (e *Engine) UpdateConfig(cfg *config.Config) {
	e.cfg.Store(cfg)
}

func (e *Engine) config() *config.Config {
	if v := e.cfg.Load(); v != nil {
		return v.(*config.Config)
	}
	return config.DefaultConfig()
}

func (e *Engine) Start(ctx context.Context, in <-chan model.MetricSample) {
	go func() {
		for {
			select {
			case sample := <-in:
				if _, _, err := e.ProcessSample(ctx, sample); err != nil {
					if e.logger != nil {
						e.logger.Warn("scoring run failed",
							"user_id", sample.UserID,
							"date", sample.Date.Format("2006-01-02"),
							"err", err,
						)
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// ProcessSample persists one ingested row and rescores the affected
// (user, date). Rescoring an already-scored day overwrites the record.
func (e *Engine) ProcessSample(ctx context.Context, sample model.MetricSample) (model.HealthScoreRecord, []model.AnomalyEvent, error) {
	if e.store != nil {
		if err := e.store.UpsertSample(ctx, sample); err != nil {
			return model.HealthScoreRecord{}, nil, err
		}
	}
	return e.ScoreUser(ctx, sample.UserID, sample.Date)
}

// ScoreUser executes one full scoring run for a user and date.
func (e *Engine) ScoreUser(ctx context.Context, userID string, date time.Time) (model.HealthScoreRecord, []model.AnomalyEvent, error) {
	cfg := e.config()

	profile, ok, err := e.profiles.Profile(ctx, userID)
	if err != nil {
		return model.HealthScoreRecord{}, nil, err
	}
	if !ok {
		return model.HealthScoreRecord{}, nil, &scoring.PreconditionError{UserID: userID, Field: "profile"}
	}
	if profile.Age <= 0 {
		return model.HealthScoreRecord{}, nil, &scoring.PreconditionError{UserID: userID, Field: "age"}
	}

	var recent []model.MetricSample
	if e.store != nil {
		recent, err = e.store.ListSamples(ctx, userID, date.AddDate(0, 0, -7), date)
		if err != nil {
			return model.HealthScoreRecord{}, nil, err
		}
	}
	dayRows := rowsForDate(recent, date)
	if len(dayRows) == 0 {
		return model.HealthScoreRecord{}, nil, &scoring.NoDataError{UserID: userID, Date: date}
	}
	merged := MergeDaily(dayRows)

	w := weights.DefaultWeights()
	if e.resolver != nil {
		w = e.resolver.Resolve(ctx, profile, weights.RecentWindow(recent, date))
	}
	components := normalize.Components(merged, profile)
	rec, err := scoring.Score(ctx, e.store, userID, date, components, w)
	if err != nil {
		return model.HealthScoreRecord{}, nil, err
	}
	if e.results != nil {
		e.results.Update(rec)
	}
	if e.logger != nil {
		e.logger.Info("health score computed",
			"user_id", userID,
			"date", date.Format("2006-01-02"),
			"overall_score", rec.OverallScore,
			"weights_reasoning", w.Reasoning,
		)
	}

	detected, err := e.detectAnomalies(ctx, userID, date, merged, cfg)
	if err != nil {
		return rec, nil, err
	}
	return rec, detected, nil
}

// detectAnomalies refreshes the user's baselines from a window that ends
// the day before the scored date, then runs detection on the merged row.
// Missing baselines disable detection for that metric, never fail the run.
func (e *Engine) detectAnomalies(ctx context.Context, userID string, date time.Time, merged model.MetricSample, cfg *config.Config) ([]model.AnomalyEvent, error) {
	if e.store == nil {
		return nil, nil
	}
	params := baseline.Params{
		WindowDays: cfg.Baseline.WindowDays,
		MinSamples: cfg.Baseline.MinSamples,
	}
	baselines, err := baseline.Refresh(ctx, e.store, e.store, userID, date, params)
	if err != nil {
		return nil, err
	}
	th := anomaly.Thresholds{
		CandidateSigma: cfg.Anomaly.CandidateSigma,
		OverrideSigma:  cfg.Anomaly.OverrideSigma,
		CriticalSigma:  cfg.Anomaly.CriticalSigma,
	}
	detected := anomaly.Detect(merged, baselines, th, time.Now())
	if len(detected) == 0 {
		return nil, nil
	}
	if err := e.store.AppendAnomalies(ctx, detected); err != nil {
		return nil, err
	}
	if e.events != nil {
		e.events.AddAll(detected)
	}
	if e.logger != nil {
		for _, ev := range detected {
			e.logger.Warn("anomaly detected",
				"user_id", ev.UserID,
				"metric_type", ev.MetricType,
				"deviation_sigma", ev.DeviationSigma,
				"severity", ev.Severity,
			)
		}
	}
	return detected, nil
}

func (e *Engine) Reset() {
	if e.results != nil {
		e.results.Clear()
	}
	if e.events != nil {
		e.events.Clear()
	}
}

func rowsForDate(samples []model.MetricSample, date time.Time) []model.MetricSample {
	day := date.UTC().Truncate(24 * time.Hour)
	out := make([]model.MetricSample, 0, 2)
	for _, s := range samples {
		if s.Date.UTC().Truncate(24 * time.Hour).Equal(day) {
			out = append(out, s)
		}
	}
	return out
}

// MergeDaily folds same-day rows from multiple sources into one sample.
// First non-nil value per field wins, in input order.
func MergeDaily(rows []model.MetricSample) model.MetricSample {
	if len(rows) == 0 {
		return model.MetricSample{}
	}
	merged := rows[0]
	merged.Source = "merged"
	if len(rows) == 1 {
		merged.Source = rows[0].Source
		return merged
	}
	for _, r := range rows[1:] {
		if merged.HRV == nil {
			merged.HRV = r.HRV
		}
		if merged.RestingHeartRate == nil {
			merged.RestingHeartRate = r.RestingHeartRate
		}
		if merged.DeepSleepMinutes == nil {
			merged.DeepSleepMinutes = r.DeepSleepMinutes
		}
		if merged.SleepScore == nil {
			merged.SleepScore = r.SleepScore
		}
		if merged.RecoveryScore == nil {
			merged.RecoveryScore = r.RecoveryScore
		}
		if merged.Steps == nil {
			merged.Steps = r.Steps
		}
	}
	return merged
}
