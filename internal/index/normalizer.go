package index

import "math"

// NeutralSeverity is the severity assigned when a metric cannot be
// normalized (unknown metric, empty observation).
const NeutralSeverity = 0.5

// Normalize maps a raw metric value onto the 0-1 severity scale using its
// reference range.
//
// Without an optimal point this is plain min-max scaling clamped to [0,1].
// With one, the linear term is blended with a Gaussian deviation factor
// centered on the optimal value (sigma = range/6), so readings far from
// optimal score high severity regardless of direction.
func Normalize(value float64, r MetricRange) float64 {
	linear := clamp01((value - r.Min) / (r.Max - r.Min))

	if r.Optimal == nil {
		return linear
	}

	sigma := (r.Max - r.Min) / 6
	deviation := value - *r.Optimal
	gaussian := 1 - math.Exp(-(deviation*deviation)/(2*sigma*sigma))

	return clamp01(linear*0.3 + gaussian*0.7)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
