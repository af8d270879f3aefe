package ingest

import (
	"encoding/json"
	"errors"
	"fmt"

	"vitalscore/internal/model"
)

type sampleRow struct {
	UserID           string   `json:"user_id"`
	Date             string   `json:"date"`
	Source           string   `json:"source"`
	HRV              *float64 `json:"hrv"`
	RestingHeartRate *float64 `json:"resting_heart_rate"`
	DeepSleepMinutes *float64 `json:"deep_sleep_minutes"`
	SleepScore       *float64 `json:"sleep_score"`
	RecoveryScore    *float64 `json:"recovery_score"`
	Steps            *float64 `json:"steps"`
}

func ParseJSONBytes(data []byte) (*model.MetricSample, error) {
	var row sampleRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	if row.UserID == "" {
		return nil, errors.New("sample row missing user_id")
	}
	date, err := ParseDate(row.Date)
	if err != nil {
		return nil, fmt.Errorf("sample row date: %w", err)
	}
	return &model.MetricSample{
		UserID:           row.UserID,
		Date:             date,
		Source:           row.Source,
		HRV:              row.HRV,
		RestingHeartRate: row.RestingHeartRate,
		DeepSleepMinutes: row.DeepSleepMinutes,
		SleepScore:       row.SleepScore,
		RecoveryScore:    row.RecoveryScore,
		Steps:            row.Steps,
	}, nil
}
