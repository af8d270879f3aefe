package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"vitalscore/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:vitalscore.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS samples (
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			source TEXT NOT NULL,
			hrv REAL,
			resting_heart_rate REAL,
			deep_sleep_minutes REAL,
			sleep_score REAL,
			recovery_score REAL,
			steps REAL,
			ingested_at TEXT NOT NULL,
			PRIMARY KEY (user_id, date, source)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_user_date ON samples(user_id, date)`,
		`CREATE TABLE IF NOT EXISTS health_scores (
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			overall_score INTEGER NOT NULL,
			hrv_score REAL NOT NULL,
			sleep_score REAL NOT NULL,
			recovery_score REAL NOT NULL,
			activity_score REAL NOT NULL,
			hrv_weight REAL NOT NULL,
			sleep_weight REAL NOT NULL,
			recovery_weight REAL NOT NULL,
			activity_weight REAL NOT NULL,
			reasoning TEXT,
			computed_at TEXT NOT NULL,
			PRIMARY KEY (user_id, date)
		)`,
		`CREATE TABLE IF NOT EXISTS anomaly_events (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			detected_value REAL NOT NULL,
			baseline_value REAL NOT NULL,
			deviation_sigma REAL NOT NULL,
			severity TEXT NOT NULL,
			detected_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_anomaly_events_user ON anomaly_events(user_id, detected_at)`,
		`CREATE TABLE IF NOT EXISTS baselines (
			user_id TEXT NOT NULL,
			metric_type TEXT NOT NULL,
			mean_value REAL NOT NULL,
			std_deviation REAL NOT NULL,
			sample_count INTEGER NOT NULL,
			computed_at TEXT NOT NULL,
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

func (s *sqliteStore) UpsertSample(ctx context.Context, sample model.MetricSample) error {
	if s.db == nil || sample.UserID == "" {
		return nil
	}
	source := sample.Source
	if source == "" {
		source = "unknown"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO samples (user_id, date, source, hrv, resting_heart_rate, deep_sleep_minutes, sleep_score, recovery_score, steps, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date, source) DO UPDATE SET
			hrv = excluded.hrv,
			resting_heart_rate = excluded.resting_heart_rate,
			deep_sleep_minutes = excluded.deep_sleep_minutes,
			sleep_score = excluded.sleep_score,
			recovery_score = excluded.recovery_score,
			steps = excluded.steps,
			ingested_at = excluded.ingested_at`,
		sample.UserID,
		dateStr(sample.Date),
		source,
		sample.HRV,
		sample.RestingHeartRate,
		sample.DeepSleepMinutes,
		sample.SleepScore,
		sample.RecoveryScore,
		sample.Steps,
		nowUTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) ListSamples(ctx context.Context, userID string, from, to time.Time) ([]model.MetricSample, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, date, source, hrv, resting_heart_rate, deep_sleep_minutes, sleep_score, recovery_score, steps
		FROM samples WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date, source`,
		userID, dateStr(from), dateStr(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

func (s *sqliteStore) UpsertHealthScore(ctx context.Context, rec model.HealthScoreRecord) error {
	if s.db == nil || rec.UserID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO health_scores (user_id, date, overall_score, hrv_score, sleep_score, recovery_score, activity_score,
			hrv_weight, sleep_weight, recovery_weight, activity_weight, reasoning, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			overall_score = excluded.overall_score,
			hrv_score = excluded.hrv_score,
			sleep_score = excluded.sleep_score,
			recovery_score = excluded.recovery_score,
			activity_score = excluded.activity_score,
			hrv_weight = excluded.hrv_weight,
			sleep_weight = excluded.sleep_weight,
			recovery_weight = excluded.recovery_weight,
			activity_weight = excluded.activity_weight,
			reasoning = excluded.reasoning,
			computed_at = excluded.computed_at`,
		rec.UserID,
		dateStr(rec.Date),
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
		nowUTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) GetHealthScore(ctx context.Context, userID string, date time.Time) (model.HealthScoreRecord, bool, error) {
	if s.db == nil {
		return model.HealthScoreRecord{}, false, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, date, overall_score, hrv_score, sleep_score, recovery_score, activity_score,
			hrv_weight, sleep_weight, recovery_weight, activity_weight, reasoning
		FROM health_scores WHERE user_id = ? AND date = ?`,
		userID, dateStr(date),
	)
	return scanHealthScore(row)
}

func (s *sqliteStore) AppendAnomalies(ctx context.Context, events []model.AnomalyEvent) error {
	if s.db == nil || len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO anomaly_events (id, user_id, metric_type, detected_value, baseline_value, deviation_sigma, severity, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
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
			ev.DetectedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) UpsertBaseline(ctx context.Context, b model.Baseline) error {
	if s.db == nil || b.UserID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO baselines (user_id, metric_type, mean_value, std_deviation, sample_count, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, metric_type) DO UPDATE SET
			mean_value = excluded.mean_value,
			std_deviation = excluded.std_deviation,
			sample_count = excluded.sample_count,
			computed_at = excluded.computed_at`,
		b.UserID,
		string(b.MetricType),
		b.MeanValue,
		b.StdDeviation,
		b.SampleCount,
		b.ComputedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) ListBaselines(ctx context.Context, userID string) ([]model.Baseline, error) {
	if s.db == nil {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, metric_type, mean_value, std_deviation, sample_count, computed_at
		FROM baselines WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBaselines(rows)
}
