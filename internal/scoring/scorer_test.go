package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"vitalscore/internal/model"
)

func defaultWeights() model.Weights {
	return model.Weights{HRV: 0.30, Sleep: 0.30, Recovery: 0.20, Activity: 0.20}
}

func TestWeightedAverageOfConstant(t *testing.T) {
	components := model.ComponentScores{HRVScore: 70, SleepScore: 70, RecoveryScore: 70, ActivityScore: 70}
	weightSets := []model.Weights{
		defaultWeights(),
		{HRV: 0.7, Sleep: 0.1, Recovery: 0.1, Activity: 0.1},
		{HRV: 0.25, Sleep: 0.25, Recovery: 0.25, Activity: 0.25},
	}
	for _, w := range weightSets {
		if got := Composite(components, w); got != 70 {
			t.Fatalf("weights %+v: composite = %d, want 70", w, got)
		}
	}
}

func TestCompositeRounding(t *testing.T) {
	components := model.ComponentScores{HRVScore: 71, SleepScore: 70, RecoveryScore: 70, ActivityScore: 70}
	// 0.3*71 + 0.7*70 = 70.3 rounds down.
	if got := Composite(components, defaultWeights()); got != 70 {
		t.Fatalf("composite = %d, want 70", got)
	}
	components.HRVScore = 72 // 70.6 rounds up
	if got := Composite(components, defaultWeights()); got != 71 {
		t.Fatalf("composite = %d, want 71", got)
	}
}

func TestCompositeRange(t *testing.T) {
	extremes := []model.ComponentScores{
		{},
		{HRVScore: 100, SleepScore: 100, RecoveryScore: 100, ActivityScore: 100},
		{HRVScore: 100, SleepScore: 0, RecoveryScore: 100, ActivityScore: 0},
	}
	for _, c := range extremes {
		got := Composite(c, defaultWeights())
		if got < 0 || got > 100 {
			t.Fatalf("composite %d out of range for %+v", got, c)
		}
	}
}

func TestBuildRecordIdempotent(t *testing.T) {
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	components := model.ComponentScores{HRVScore: 64.5, SleepScore: 71, RecoveryScore: 80, ActivityScore: 55}

	a := BuildRecord("u1", date, components, defaultWeights())
	b := BuildRecord("u1", date, components, defaultWeights())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("records differ:\n%+v\n%+v", a, b)
	}
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	if !bytes.Equal(aj, bj) {
		t.Fatalf("serialized records differ")
	}
}

func TestScoreIdempotentAcrossCalls(t *testing.T) {
	// Identical inputs at different wall-clock times must produce
	// byte-identical records, including through the sink.
	sink := &captureSink{}
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	components := model.ComponentScores{HRVScore: 64.5, SleepScore: 71, RecoveryScore: 80, ActivityScore: 55}

	first, err := Score(context.Background(), sink, "u1", date, components, defaultWeights())
	if err != nil {
		t.Fatalf("first score: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	second, err := Score(context.Background(), sink, "u1", date, components, defaultWeights())
	if err != nil {
		t.Fatalf("second score: %v", err)
	}
	fj, _ := json.Marshal(first)
	sj, _ := json.Marshal(second)
	if !bytes.Equal(fj, sj) {
		t.Fatalf("rescoring changed the record:\n%s\n%s", fj, sj)
	}
	if len(sink.records) != 2 || !reflect.DeepEqual(sink.records[0], sink.records[1]) {
		t.Fatalf("persisted records differ: %+v", sink.records)
	}
}

type captureSink struct {
	records []model.HealthScoreRecord
}

func (c *captureSink) UpsertHealthScore(_ context.Context, rec model.HealthScoreRecord) error {
	c.records = append(c.records, rec)
	return nil
}

func TestScorePersistsRecord(t *testing.T) {
	sink := &captureSink{}
	date := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	components := model.ComponentScores{HRVScore: 60, SleepScore: 70, RecoveryScore: 80, ActivityScore: 50}
	rec, err := Score(context.Background(), sink, "u1", date, components, defaultWeights())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(sink.records))
	}
	if sink.records[0].OverallScore != rec.OverallScore {
		t.Fatalf("persisted record mismatch")
	}
	// 0.3*60 + 0.3*70 + 0.2*80 + 0.2*50 = 65
	if rec.OverallScore != 65 {
		t.Fatalf("overall = %d, want 65", rec.OverallScore)
	}
}
