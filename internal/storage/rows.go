package storage

import (
	"database/sql"
	"time"

	"vitalscore/internal/model"
)

// Scan helpers shared by the sqlite and postgres stores. Dates and
// timestamps come back as TEXT from sqlite and as time.Time from pgx, so
// temporal columns scan through `any` and coerce.

func asDate(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		return parseDate(t)
	case []byte:
		return parseDate(string(t))
	}
	return time.Time{}
}

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts.UTC()
		}
	case []byte:
		if ts, err := time.Parse(time.RFC3339Nano, string(t)); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

func scanSamples(rows *sql.Rows) ([]model.MetricSample, error) {
	out := make([]model.MetricSample, 0)
	for rows.Next() {
		var s model.MetricSample
		var date any
		if err := rows.Scan(&s.UserID, &date, &s.Source,
			&s.HRV, &s.RestingHeartRate, &s.DeepSleepMinutes,
			&s.SleepScore, &s.RecoveryScore, &s.Steps,
		); err != nil {
			return nil, err
		}
		s.Date = asDate(date)
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanHealthScore(row *sql.Row) (model.HealthScoreRecord, bool, error) {
	var rec model.HealthScoreRecord
	var date any
	var reasoning sql.NullString
	err := row.Scan(&rec.UserID, &date, &rec.OverallScore,
		&rec.Components.HRVScore, &rec.Components.SleepScore,
		&rec.Components.RecoveryScore, &rec.Components.ActivityScore,
		&rec.Weights.HRV, &rec.Weights.Sleep,
		&rec.Weights.Recovery, &rec.Weights.Activity,
		&reasoning,
	)
	if err == sql.ErrNoRows {
		return model.HealthScoreRecord{}, false, nil
	}
	if err != nil {
		return model.HealthScoreRecord{}, false, err
	}
	rec.Date = asDate(date)
	rec.Weights.Reasoning = reasoning.String
	return rec, true, nil
}

func scanBaselines(rows *sql.Rows) ([]model.Baseline, error) {
	out := make([]model.Baseline, 0)
	for rows.Next() {
		var b model.Baseline
		var mt string
		var computedAt any
		if err := rows.Scan(&b.UserID, &mt, &b.MeanValue, &b.StdDeviation, &b.SampleCount, &computedAt); err != nil {
			return nil, err
		}
		b.MetricType = model.MetricType(mt)
		b.ComputedAt = asTime(computedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}
