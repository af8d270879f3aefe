package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"vitalscore/internal/model"
)

// Parser decodes already-normalized metric rows from JSON objects or CSV
// lines. Vendor-specific payload mapping happens upstream; anything that
// does not match the normalized shape is rejected.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseLine returns nil, nil for blank lines and CSV headers.
func (p *Parser) ParseLine(line string) (*model.MetricSample, error) {
	trim := strings.TrimSpace(line)
	if trim == "" {
		return nil, nil
	}
	if looksLikeJSON(trim) {
		return ParseJSONBytes([]byte(trim))
	}
	if strings.Contains(trim, ",") {
		return parseCSV(trim)
	}
	return nil, fmt.Errorf("unrecognized sample row: %q", truncate(trim, 80))
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

// CSV column order: date,user_id,source,hrv,resting_heart_rate,
// deep_sleep_minutes,sleep_score,recovery_score,steps. Empty cells mean
// no measurement.
func parseCSV(line string) (*model.MetricSample, error) {
	reader := csv.NewReader(strings.NewReader(line))
	record, err := reader.Read()
	if err != nil {
		return nil, err
	}
	if len(record) < 3 {
		return nil, errors.New("csv sample row needs at least date,user_id,source")
	}
	if strings.EqualFold(strings.TrimSpace(record[0]), "date") {
		return nil, nil
	}
	date, err := ParseDate(record[0])
	if err != nil {
		return nil, err
	}
	sample := &model.MetricSample{
		UserID: strings.TrimSpace(record[1]),
		Date:   date,
		Source: strings.TrimSpace(record[2]),
	}
	if sample.UserID == "" {
		return nil, errors.New("csv sample row missing user_id")
	}
	fields := []**float64{
		&sample.HRV,
		&sample.RestingHeartRate,
		&sample.DeepSleepMinutes,
		&sample.SleepScore,
		&sample.RecoveryScore,
		&sample.Steps,
	}
	for i, dst := range fields {
		col := 3 + i
		if col >= len(record) {
			break
		}
		cell := strings.TrimSpace(record[col])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("csv column %d: %w", col, err)
		}
		value := v
		*dst = &value
	}
	return sample, nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// ParseDate accepts a calendar date or a timestamp, truncated to the day.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Truncate(24 * time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %q", value)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
