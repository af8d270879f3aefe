package normalize

import "vitalscore/internal/model"

// AgeBand indexes the five physiological reference bands.
type AgeBand int

const (
	BandUnder30 AgeBand = iota
	BandUnder40
	BandUnder50
	BandUnder60
	BandSenior
)

func BandFor(age int) AgeBand {
	switch {
	case age < 30:
		return BandUnder30
	case age < 40:
		return BandUnder40
	case age < 50:
		return BandUnder50
	case age < 60:
		return BandUnder60
	default:
		return BandSenior
	}
}

type hrvThreshold struct {
	low  float64
	high float64
}

// HRV low/high thresholds (ms) by age band. Female resting HRV runs
// slightly higher in population data, so the bands are shifted up.
var hrvDefault = map[AgeBand]hrvThreshold{
	BandUnder30: {low: 40, high: 75},
	BandUnder40: {low: 35, high: 70},
	BandUnder50: {low: 30, high: 60},
	BandUnder60: {low: 25, high: 50},
	BandSenior:  {low: 20, high: 45},
}

var hrvFemale = map[AgeBand]hrvThreshold{
	BandUnder30: {low: 45, high: 80},
	BandUnder40: {low: 38, high: 72},
	BandUnder50: {low: 32, high: 62},
	BandUnder60: {low: 27, high: 52},
	BandSenior:  {low: 22, high: 47},
}

func hrvThresholds(band AgeBand, sex model.Sex) hrvThreshold {
	if sex == model.SexFemale {
		return hrvFemale[band]
	}
	return hrvDefault[band]
}

// Deep-sleep target minutes by age band.
var deepSleepTargets = map[AgeBand]float64{
	BandUnder30: 100,
	BandUnder40: 90,
	BandUnder50: 80,
	BandUnder60: 70,
	BandSenior:  60,
}

// Multiplicative HRV penalties for chronic conditions. They commute, so
// application order does not matter.
var conditionPenalties = map[model.Condition]float64{
	model.ConditionHeartFailure:  0.85,
	model.ConditionDiabetes:      0.92,
	model.ConditionChronicKidney: 0.88,
}
