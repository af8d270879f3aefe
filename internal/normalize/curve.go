package normalize

import "sort"

// Breakpoint maps a raw threshold to the score awarded at that threshold.
type Breakpoint struct {
	Threshold float64
	Score     float64
}

// Curve is a monotonic piecewise-linear reference curve over ordered
// breakpoints. Values below the first breakpoint clamp to its score,
// values above the last clamp to the last score.
type Curve []Breakpoint

func (c Curve) Score(raw float64) float64 {
	if len(c) == 0 {
		return 0
	}
	if raw <= c[0].Threshold {
		return c[0].Score
	}
	last := c[len(c)-1]
	if raw >= last.Threshold {
		return last.Score
	}
	i := sort.Search(len(c), func(i int) bool { return c[i].Threshold > raw })
	lo, hi := c[i-1], c[i]
	span := hi.Threshold - lo.Threshold
	if span <= 0 {
		return lo.Score
	}
	frac := (raw - lo.Threshold) / span
	return lo.Score + frac*(hi.Score-lo.Score)
}

// ThreeSegment builds the standard scoring curve: 0-40 rising to the low
// threshold, 40-70 between low and high, then 70-100 at half rate above
// high (twice the low-to-high span is needed for the last 30 points).
func ThreeSegment(low, high float64) Curve {
	span := high - low
	return Curve{
		{Threshold: 0, Score: 0},
		{Threshold: low, Score: 40},
		{Threshold: high, Score: 70},
		{Threshold: high + 2*span, Score: 100},
	}
}
