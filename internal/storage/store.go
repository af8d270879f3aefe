package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"vitalscore/internal/config"
	"vitalscore/internal/model"
)

// Store is the persistence boundary: sample rows in, computed results
// out. Health scores upsert on (user, date); anomaly events append.
type Store interface {
	Init(ctx context.Context) error
	Close() error

	UpsertSample(ctx context.Context, sample model.MetricSample) error
	ListSamples(ctx context.Context, userID string, from, to time.Time) ([]model.MetricSample, error)

	UpsertHealthScore(ctx context.Context, rec model.HealthScoreRecord) error
	GetHealthScore(ctx context.Context, userID string, date time.Time) (model.HealthScoreRecord, bool, error)

	AppendAnomalies(ctx context.Context, events []model.AnomalyEvent) error

	UpsertBaseline(ctx context.Context, b model.Baseline) error
	ListBaselines(ctx context.Context, userID string) ([]model.Baseline, error)
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}

const dateLayout = "2006-01-02"

func dateStr(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
