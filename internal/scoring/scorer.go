package scoring

import (
	"context"
	"math"
	"time"

	"vitalscore/internal/model"
)

// RecordSink accepts computed records for upsert on (user, date).
type RecordSink interface {
	UpsertHealthScore(ctx context.Context, rec model.HealthScoreRecord) error
}

// Composite combines sub-scores with weights into the final score,
// rounded and clamped to [0,100].
func Composite(components model.ComponentScores, w model.Weights) int {
	sum := components.HRVScore*w.HRV +
		components.SleepScore*w.Sleep +
		components.RecoveryScore*w.Recovery +
		components.ActivityScore*w.Activity
	score := int(math.Round(sum))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// BuildRecord assembles the record for one (user, date). Identical inputs
// yield a byte-identical record.
func BuildRecord(userID string, date time.Time, components model.ComponentScores, w model.Weights) model.HealthScoreRecord {
	return model.HealthScoreRecord{
		UserID:       userID,
		Date:         date,
		OverallScore: Composite(components, w),
		Components:   components,
		Weights:      w,
	}
}

// Score builds and persists the record. A second call for the same
// (user, date) overwrites the stored row rather than duplicating it.
func Score(ctx context.Context, sink RecordSink, userID string, date time.Time, components model.ComponentScores, w model.Weights) (model.HealthScoreRecord, error) {
	rec := BuildRecord(userID, date, components, w)
	if sink != nil {
		if err := sink.UpsertHealthScore(ctx, rec); err != nil {
			return model.HealthScoreRecord{}, err
		}
	}
	return rec, nil
}
