package index

import (
	"math"
	"time"
)

// Calculator computes composite weather indices from observations and a
// config snapshot. It holds no state and is safe for concurrent use.
type Calculator struct{}

// NewCalculator creates a calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate computes the composite index for a single region.
//
// Only metrics present in both the observation and the configured weights
// contribute; the weighted sum is divided by the total weight of those
// metrics, so the index stays in [0,1] no matter which subset of metrics
// the upstream source managed to deliver. An observation with no usable
// metrics yields the neutral index with level "unknown".
func (c *Calculator) Calculate(obs Observation, cfg Config) Result {
	result := Result{
		Region:    obs.Region,
		Timestamp: time.Now().UTC(),
		Details:   make(map[string]MetricDetail),
	}
	if !obs.Time.IsZero() {
		t := obs.Time
		result.PredictionTime = &t
	}

	if len(obs.Metrics) == 0 {
		result.Value = NeutralSeverity
		result.Level = LevelUnknown
		return result
	}

	var weightedSum, totalWeight float64
	for metric, weight := range cfg.Weights {
		value, ok := obs.Metrics[metric]
		if !ok {
			continue
		}

		normalized := NeutralSeverity
		if r, known := cfg.Ranges[metric]; known {
			normalized = Normalize(value, r)
		}

		contribution := normalized * weight
		weightedSum += contribution
		totalWeight += weight
		result.Details[metric] = MetricDetail{
			RawValue:     value,
			Normalized:   normalized,
			Weight:       weight,
			Contribution: contribution,
		}
	}

	if totalWeight > 0 {
		result.Value = round3(weightedSum / totalWeight)
	} else {
		result.Value = NeutralSeverity
	}
	result.Level = ClassifyLevel(result.Value, cfg.Thresholds)

	return result
}

// CalculateGlobal averages per-region results into one cross-region index.
// Per-metric details are averaged as well so callers can still see which
// metric drove the global severity.
func (c *Calculator) CalculateGlobal(results []Result, cfg Config) Result {
	global := Result{
		Region:    GlobalRegion,
		Timestamp: time.Now().UTC(),
		Details:   make(map[string]MetricDetail),
	}

	if len(results) == 0 {
		global.Value = NeutralSeverity
		global.Level = LevelUnknown
		return global
	}

	var sum float64
	sums := make(map[string]MetricDetail)
	counts := make(map[string]int)
	for _, r := range results {
		sum += r.Value
		for metric, d := range r.Details {
			agg := sums[metric]
			agg.RawValue += d.RawValue
			agg.Normalized += d.Normalized
			agg.Weight += d.Weight
			agg.Contribution += d.Contribution
			sums[metric] = agg
			counts[metric]++
		}
	}

	for metric, agg := range sums {
		n := float64(counts[metric])
		global.Details[metric] = MetricDetail{
			RawValue:     agg.RawValue / n,
			Normalized:   agg.Normalized / n,
			Weight:       agg.Weight / n,
			Contribution: agg.Contribution / n,
		}
	}

	global.Value = round3(sum / float64(len(results)))
	global.Level = ClassifyLevel(global.Value, cfg.Thresholds)

	return global
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
