package model

import "time"

type MetricType string

const (
	MetricHRV        MetricType = "hrv"
	MetricRestingHR  MetricType = "resting_heart_rate"
	MetricDeepSleep  MetricType = "deep_sleep_minutes"
	MetricSleepScore MetricType = "sleep_score"
	MetricRecovery   MetricType = "recovery_score"
	MetricSteps      MetricType = "steps"
)

// TrackedMetrics are the metric types that carry a rolling baseline and
// participate in anomaly detection.
var TrackedMetrics = []MetricType{
	MetricHRV,
	MetricRestingHR,
	MetricDeepSleep,
	MetricRecovery,
	MetricSteps,
}

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
	SexOther  Sex = "other"
)

type Condition string

const (
	ConditionHeartFailure  Condition = "heart_failure"
	ConditionDiabetes      Condition = "diabetes"
	ConditionChronicKidney Condition = "chronic_kidney_disease"
)

// MetricSample is one user's measurements for one calendar date from one
// source. Any field may be nil when the source recorded no value that day.
// Rows are upserted on (user, date, source).
type MetricSample struct {
	UserID           string    `json:"user_id"`
	Date             time.Time `json:"date"`
	Source           string    `json:"source,omitempty"`
	HRV              *float64  `json:"hrv,omitempty"`
	RestingHeartRate *float64  `json:"resting_heart_rate,omitempty"`
	DeepSleepMinutes *float64  `json:"deep_sleep_minutes,omitempty"`
	SleepScore       *float64  `json:"sleep_score,omitempty"`
	RecoveryScore    *float64  `json:"recovery_score,omitempty"`
	Steps            *float64  `json:"steps,omitempty"`
}

// Value returns the sample's reading for a tracked metric type, or nil.
func (s MetricSample) Value(mt MetricType) *float64 {
	switch mt {
	case MetricHRV:
		return s.HRV
	case MetricRestingHR:
		return s.RestingHeartRate
	case MetricDeepSleep:
		return s.DeepSleepMinutes
	case MetricSleepScore:
		return s.SleepScore
	case MetricRecovery:
		return s.RecoveryScore
	case MetricSteps:
		return s.Steps
	}
	return nil
}

type UserProfile struct {
	UserID     string      `json:"user_id"`
	Age        int         `json:"age"`
	Sex        Sex         `json:"sex"`
	Conditions []Condition `json:"conditions,omitempty"`
}

func (p UserProfile) HasCondition(c Condition) bool {
	for _, have := range p.Conditions {
		if have == c {
			return true
		}
	}
	return false
}

// ComponentScores holds the four normalized 0-100 sub-scores.
type ComponentScores struct {
	HRVScore      float64 `json:"hrv_score"`
	SleepScore    float64 `json:"sleep_score"`
	RecoveryScore float64 `json:"recovery_score"`
	ActivityScore float64 `json:"activity_score"`
}

// Weights combine sub-scores into the composite. Invariant: the four
// weights sum to 1.0 within 1e-6 after normalization.
type Weights struct {
	HRV       float64 `json:"hrv"`
	Sleep     float64 `json:"sleep"`
	Recovery  float64 `json:"recovery"`
	Activity  float64 `json:"activity"`
	Reasoning string  `json:"reasoning,omitempty"`
}

func (w Weights) Sum() float64 {
	return w.HRV + w.Sleep + w.Recovery + w.Activity
}

// HealthScoreRecord is the computed result for one (user, date). It is a
// pure function of its inputs: recomputing with identical inputs yields a
// byte-identical record. Row timestamps are storage metadata, not part of
// the record.
type HealthScoreRecord struct {
	UserID       string          `json:"user_id"`
	Date         time.Time       `json:"date"`
	OverallScore int             `json:"overall_score"`
	Components   ComponentScores `json:"components"`
	Weights      Weights         `json:"weights"`
}

// Baseline is the rolling mean/std for one metric of one user, recomputed
// from a trailing sample window that strictly precedes the scored date.
type Baseline struct {
	UserID       string     `json:"user_id"`
	MetricType   MetricType `json:"metric_type"`
	MeanValue    float64    `json:"mean_value"`
	StdDeviation float64    `json:"std_deviation"`
	SampleCount  int        `json:"sample_count"`
	ComputedAt   time.Time  `json:"computed_at"`
}

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AnomalyEvent records one statistically significant deviation from a
// baseline. Events are append-only; dedup is left to consumers.
type AnomalyEvent struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	MetricType     MetricType `json:"metric_type"`
	DetectedValue  float64    `json:"detected_value"`
	BaselineValue  float64    `json:"baseline_value"`
	DeviationSigma float64    `json:"deviation_sigma"`
	Severity       Severity   `json:"severity"`
	DetectedAt     time.Time  `json:"detected_at"`
}
