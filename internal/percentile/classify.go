package percentile

import (
	"fmt"

	"vitalscore/internal/model"
	"vitalscore/internal/normalize"
)

type Classification string

const (
	// HRV buckets.
	ClassLow       Classification = "low"
	ClassModerate  Classification = "moderate"
	ClassFavorable Classification = "favorable"

	// Deep-sleep buckets.
	ClassInadequate Classification = "inadequate"
	ClassBorderline Classification = "borderline"
	ClassAdequate   Classification = "adequate"
)

type Result struct {
	Classification Classification `json:"classification"`
	Percentile     float64        `json:"percentile"`
}

// Distribution holds the five named population percentiles for one
// age band and sex. These are population tables, not scoring curves.
type Distribution struct {
	P5, P25, P50, P75, P95 float64
}

var hrvDistDefault = map[normalize.AgeBand]Distribution{
	normalize.BandUnder30: {P5: 25, P25: 45, P50: 62, P75: 80, P95: 105},
	normalize.BandUnder40: {P5: 22, P25: 40, P50: 55, P75: 72, P95: 95},
	normalize.BandUnder50: {P5: 18, P25: 34, P50: 48, P75: 62, P95: 85},
	normalize.BandUnder60: {P5: 15, P25: 28, P50: 40, P75: 54, P95: 75},
	normalize.BandSenior:  {P5: 12, P25: 24, P50: 34, P75: 46, P95: 65},
}

var hrvDistFemale = map[normalize.AgeBand]Distribution{
	normalize.BandUnder30: {P5: 28, P25: 48, P50: 66, P75: 84, P95: 110},
	normalize.BandUnder40: {P5: 24, P25: 43, P50: 58, P75: 75, P95: 98},
	normalize.BandUnder50: {P5: 20, P25: 36, P50: 50, P75: 65, P95: 88},
	normalize.BandUnder60: {P5: 16, P25: 30, P50: 42, P75: 56, P95: 78},
	normalize.BandSenior:  {P5: 13, P25: 26, P50: 36, P75: 48, P95: 68},
}

var deepSleepDist = map[normalize.AgeBand]Distribution{
	normalize.BandUnder30: {P5: 40, P25: 70, P50: 95, P75: 120, P95: 150},
	normalize.BandUnder40: {P5: 35, P25: 62, P50: 85, P75: 110, P95: 140},
	normalize.BandUnder50: {P5: 30, P25: 55, P50: 75, P75: 100, P95: 128},
	normalize.BandUnder60: {P5: 26, P25: 48, P50: 66, P75: 88, P95: 115},
	normalize.BandSenior:  {P5: 22, P25: 40, P50: 56, P75: 75, P95: 100},
}

// Deep-sleep minute thresholds: below the first is inadequate, below the
// second borderline. Deliberately threshold-based rather than
// percentile-derived; the two metrics bucket differently.
var deepSleepThresholds = map[normalize.AgeBand][2]float64{
	normalize.BandUnder30: {60, 90},
	normalize.BandUnder40: {55, 80},
	normalize.BandUnder50: {50, 75},
	normalize.BandUnder60: {45, 70},
	normalize.BandSenior:  {40, 60},
}

// Classify maps a raw HRV or deep-sleep value to its age/sex population
// percentile and a qualitative bucket.
func Classify(mt model.MetricType, raw float64, profile model.UserProfile) (Result, error) {
	band := normalize.BandFor(profile.Age)
	switch mt {
	case model.MetricHRV:
		dist := hrvDistDefault[band]
		if profile.Sex == model.SexFemale {
			dist = hrvDistFemale[band]
		}
		pct := interpolate(dist, raw)
		return Result{Classification: hrvBucket(pct), Percentile: pct}, nil
	case model.MetricDeepSleep:
		dist := deepSleepDist[band]
		pct := interpolate(dist, raw)
		th := deepSleepThresholds[band]
		return Result{Classification: sleepBucket(raw, th), Percentile: pct}, nil
	default:
		return Result{}, fmt.Errorf("no percentile table for metric %q", mt)
	}
}

func hrvBucket(percentile float64) Classification {
	switch {
	case percentile < 25:
		return ClassLow
	case percentile < 60:
		return ClassModerate
	default:
		return ClassFavorable
	}
}

func sleepBucket(minutes float64, th [2]float64) Classification {
	switch {
	case minutes < th[0]:
		return ClassInadequate
	case minutes < th[1]:
		return ClassBorderline
	default:
		return ClassAdequate
	}
}

// interpolate finds the value's percentile by linear interpolation between
// the bracketing named percentiles. Outside p5..p95 it extrapolates along
// the nearest segment's slope, clamped to [1,99].
func interpolate(d Distribution, value float64) float64 {
	points := []struct {
		pct float64
		val float64
	}{
		{5, d.P5}, {25, d.P25}, {50, d.P50}, {75, d.P75}, {95, d.P95},
	}
	if value < points[0].val {
		slope := (points[1].pct - points[0].pct) / (points[1].val - points[0].val)
		return clampPct(points[0].pct - (points[0].val-value)*slope)
	}
	last := points[len(points)-1]
	if value >= last.val {
		prev := points[len(points)-2]
		slope := (last.pct - prev.pct) / (last.val - prev.val)
		return clampPct(last.pct + (value-last.val)*slope)
	}
	for i := 1; i < len(points); i++ {
		if value < points[i].val {
			lo, hi := points[i-1], points[i]
			frac := (value - lo.val) / (hi.val - lo.val)
			return clampPct(lo.pct + frac*(hi.pct-lo.pct))
		}
	}
	return clampPct(last.pct)
}

func clampPct(p float64) float64 {
	if p < 1 {
		return 1
	}
	if p > 99 {
		return 99
	}
	return p
}
