package normalize

import "vitalscore/internal/model"

// Sub-score defaults when a metric has no reading for the day.
const neutralScore = 50.0

// Components normalizes one day's sample into the four 0-100 sub-scores.
// Pure function: no I/O, no hidden state.
func Components(sample model.MetricSample, profile model.UserProfile) model.ComponentScores {
	return model.ComponentScores{
		HRVScore:      HRVScore(sample.HRV, profile),
		SleepScore:    SleepScore(sample.DeepSleepMinutes, sample.SleepScore, profile),
		RecoveryScore: RecoveryScore(sample.RecoveryScore),
		ActivityScore: ActivityScore(sample.Steps, sample.RestingHeartRate),
	}
}

// HRVScore scores heart-rate variability against the age/sex reference
// curve. Chronic-condition penalties shrink the raw value before lookup.
func HRVScore(raw *float64, profile model.UserProfile) float64 {
	if raw == nil {
		return neutralScore
	}
	value := *raw
	for _, c := range profile.Conditions {
		if penalty, ok := conditionPenalties[c]; ok {
			value *= penalty
		}
	}
	th := hrvThresholds(BandFor(profile.Age), profile.Sex)
	return clamp(ThreeSegment(th.low, th.high).Score(value), 0, 100)
}

// SleepScore scores deep-sleep duration against the age-band target.
// Users over 60 get a 10% duration inflation to model eased thresholds.
// When deep sleep was not measured, a vendor sleep score passes through.
func SleepScore(deepSleepMinutes, sleepScore *float64, profile model.UserProfile) float64 {
	if deepSleepMinutes == nil {
		if sleepScore != nil {
			return clamp(*sleepScore, 0, 100)
		}
		return neutralScore
	}
	value := *deepSleepMinutes
	if profile.Age > 60 {
		value *= 1.10
	}
	target := deepSleepTargets[BandFor(profile.Age)]
	return clamp(ThreeSegment(0.6*target, target).Score(value), 0, 100)
}

// RecoveryScore passes a vendor recovery score through, clamped.
func RecoveryScore(raw *float64) float64 {
	if raw == nil {
		return neutralScore
	}
	return clamp(*raw, 0, 100)
}

// ActivityScore combines a stepped base score with a resting-heart-rate
// adjustment. Missing steps fall back to a neutral base so the heart-rate
// adjustment still applies.
func ActivityScore(steps, restingHR *float64) float64 {
	base := neutralScore
	if steps != nil {
		base = stepBase(*steps)
	}
	if restingHR != nil {
		base += restingHRAdjustment(*restingHR)
	}
	return clamp(base, 0, 100)
}

// stepBase is a four-tier step function, continuous at tier boundaries.
func stepBase(steps float64) float64 {
	switch {
	case steps >= 10000:
		return 85 + min(15, (steps-10000)/1000)
	case steps >= 7500:
		return 70 + (steps-7500)/2500*15
	case steps >= 5000:
		return 50 + (steps-5000)/2500*20
	default:
		return steps / 5000 * 50
	}
}

func restingHRAdjustment(bpm float64) float64 {
	switch {
	case bpm < 60:
		return 10
	case bpm < 70:
		return 5
	case bpm > 90:
		return -20
	case bpm > 80:
		return -10
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
