package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"vitalscore/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/vitalscore?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			user_id TEXT NOT NULL,
			date DATE NOT NULL,
			source TEXT NOT NULL,
			hrv DOUBLE PRECISION,
			resting_heart_rate DOUBLE PRECISION,
			deep_sleep_minutes DOUBLE PRECISION,
			sleep_score DOUBLE PRECISION,
			recovery_score DOUBLE PRECISION,
			steps DOUBLE PRECISION,
			ingested_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, date, source)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_user_date ON samples(user_id, date)`,
		`CREATE TABLE IF NOT EXISTS health_scores (
			user_id TEXT NOT NULL,
			date DATE NOT NULL,
			overall_score INTEGER NOT NULL,
			hrv_score DOUBLE PRECISION NOT NULL,
			sleep_score DOUBLE PRECISION NOT NULL,
			recovery_score DOUBLE PRECISION NOT NULL,
			activity_score DOUBLE PRECISION NOT NULL,
			hrv_weight DOUBLE PRECISION NOT NULL,
			sleep_weight DOUBLE PRECISION NOT NULL,
			recovery_weight DOUBLE PRECISION NOT NULL,
			activity_weight DOUBLE PRECISION NOT NULL,
			reasoning TEXT,
			computed_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS anomaly_events (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			detected_value DOUBLE PRECISION NOT NULL,
			baseline_value DOUBLE PRECISION NOT NULL,
			deviation_sigma DOUBLE PRECISION NOT NULL,
			severity TEXT NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_anomaly_events_user ON anomaly_events(user_id, detected_at)`,
		`CREATE TABLE IF NOT EXISTS baselines (
			user_id TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			mean_value DOUBLE PRECISION NOT NULL,
			std_deviation DOUBLE PRECISION NOT NULL,
			sample_count INTEGER NOT NULL,
			computed_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, metric_type)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *postgresStore) UpsertSample(ctx context.Context, sample model.MetricSample) error {
	if s.db == nil || sample.UserID == "" {
		return nil
	}
	source := sample.Source
	if source == "" {
		source = "unknown"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO samples (user_id, date, source, hrv, resting_heart_rate, deep_sleep_minutes, sleep_score, recovery_score, steps, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id, date, source) DO UPDATE SET
			hrv = EXCLUDED.hrv,
			resting_heart_rate = EXCLUDED.resting_heart_rate,
			deep_sleep_minutes = EXCLUDED.deep_sleep_minutes,
			sleep_score = EXCLUDED.sleep_score,
			recovery_score = EXCLUDED.recovery_score,
			steps = EXCLUDED.steps,
			ingested_at = EXCLUDED.ingested_at`,
		sample.UserID,
		sample.Date.UTC(),
		source,
		sample.HRV,
		sample.RestingHeartRate,
		sample.DeepSleepMinutes,
		sample.SleepScore,
		sample.RecoveryScore,
		sample.Steps,
		nowUTC(),
	)
	return err
}

func (s *postgresStore) ListSamples(ctx context.Context, userID string, from, to time.Time) ([]model.MetricSample, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, date, source, hrv, resting_heart_rate, deep_sleep_minutes, sleep_score, recovery_score, steps
		FROM samples WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, source`,
		userID, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

func (s *postgresStore) UpsertHealthScore(ctx context.Context, rec model.HealthScoreRecord) error {
	if s.db == nil || rec.UserID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO health_scores (user_id, date, overall_score, hrv_score, sleep_score, recovery_score, activity_score,
			hrv_weight, sleep_weight, recovery_weight, activity_weight, reasoning, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, date) DO UPDATE SET
			overall_score = EXCLUDED.overall_score,
			hrv_score = EXCLUDED.hrv_score,
			sleep_score = EXCLUDED.sleep_score,
			recovery_score = EXCLUDED.recovery_score,
			activity_score = EXCLUDED.activity_score,
			hrv_weight = EXCLUDED.hrv_weight,
			sleep_weight = EXCLUDED.sleep_weight,
			recovery_weight = EXCLUDED.recovery_weight,
			activity_weight = EXCLUDED.activity_weight,
			reasoning = EXCLUDED.reasoning,
			computed_at = EXCLUDED.computed_at`,
		rec.UserID,
		rec.Date.UTC(),
		rec.OverallScore,
		rec.Components.HRVScore,
		rec.Components.SleepScore,
		rec.Components.RecoveryScore,
		rec.Components.ActivityScore,
		rec.Weights.HRV,
		rec.Weights.Sleep,
		rec.Weights.Recovery,
		rec.Weights.Activity,
		rec.Weights.Reasoning,
		nowUTC(),
	)
	return err
}

func (s *postgresStore) GetHealthScore(ctx context.Context, userID string, date time.Time) (model.HealthScoreRecord, bool, error) {
	if s.db == nil {
		return model.HealthScoreRecord{}, false, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, date, overall_score, hrv_score, sleep_score, recovery_score, activity_score,
			hrv_weight, sleep_weight, recovery_weight, activity_weight, reasoning
		FROM health_scores WHERE user_id = $1 AND date = $2`,
		userID, date.UTC(),
	)
	return scanHealthScore(row)
}

func (s *postgresStore) AppendAnomalies(ctx context.Context, events []model.AnomalyEvent) error {
	if s.db == nil || len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO anomaly_events (id, user_id, metric_type, detected_value, baseline_value, deviation_sigma, severity, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx,
			ev.ID,
			ev.UserID,
			string(ev.MetricType),
			ev.DetectedValue,
			ev.BaselineValue,
			ev.DeviationSigma,
			string(ev.Severity),
			ev.DetectedAt.UTC(),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *postgresStore) UpsertBaseline(ctx context.Context, b model.Baseline) error {
	if s.db == nil || b.UserID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO baselines (user_id, metric_type, mean_value, std_deviation, sample_count, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, metric_type) DO UPDATE SET
			mean_value = EXCLUDED.mean_value,
			std_deviation = EXCLUDED.std_deviation,
			sample_count = EXCLUDED.sample_count,
			computed_at = EXCLUDED.computed_at`,
		b.UserID,
		string(b.MetricType),
		b.MeanValue,
		b.StdDeviation,
		b.SampleCount,
		b.ComputedAt.UTC(),
	)
	return err
}

func (s *postgresStore) ListBaselines(ctx context.Context, userID string) ([]model.Baseline, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, metric_type, mean_value, std_deviation, sample_count, computed_at
		FROM baselines WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBaselines(rows)
}
