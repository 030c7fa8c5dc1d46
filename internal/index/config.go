package index

import (
	"fmt"
	"sort"
)

// MetricRange is the reference range used to normalize one metric.
// Optimal, when set, marks the value considered ideal; readings are
// penalized the further they drift from it in either direction.
type MetricRange struct {
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	Optimal *float64 `json:"optimal,omitempty"`
}

// Thresholds are the ordered level boundaries on the 0-1 index scale.
type Thresholds struct {
	Low      float64 `json:"low"`
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	Critical float64 `json:"critical"`
}

// Config is one immutable snapshot of the calculator configuration.
// Weights need not sum to 1; the calculator normalizes by the total
// weight of the metrics actually present in an observation.
type Config struct {
	Weights    map[string]float64     `json:"weights"`
	Thresholds Thresholds             `json:"thresholds"`
	Ranges     map[string]MetricRange `json:"reference_ranges"`
}

func optimal(v float64) *float64 { return &v }

// DefaultConfig returns the built-in weights, thresholds and reference
// ranges derived from historical data.
func DefaultConfig() Config {
	return Config{
		Weights: map[string]float64{
			"temperature":   0.25,
			"humidity":      0.20,
			"pressure":      0.15,
			"precipitation": 0.15,
			"wind_speed":    0.10,
			"visibility":    0.10,
			"cloud_cover":   0.05,
		},
		Thresholds: Thresholds{
			Low:      0.3,
			Medium:   0.5,
			High:     0.7,
			Critical: 0.8,
		},
		Ranges: map[string]MetricRange{
			"temperature":   {Min: -10, Max: 40, Optimal: optimal(20)},
			"humidity":      {Min: 0, Max: 100, Optimal: optimal(60)},
			"pressure":      {Min: 950, Max: 1050, Optimal: optimal(1013)},
			"precipitation": {Min: 0, Max: 50, Optimal: optimal(0)},
			"wind_speed":    {Min: 0, Max: 100, Optimal: optimal(10)},
			"visibility":    {Min: 0, Max: 50, Optimal: optimal(10)},
			"cloud_cover":   {Min: 0, Max: 100, Optimal: optimal(30)},
		},
	}
}

// Validate reports the first constraint violation in the config.
func (c Config) Validate() error {
	for _, metric := range sortedKeys(c.Weights) {
		if c.Weights[metric] < 0 {
			return fmt.Errorf("weight for %q must be non-negative, got %v", metric, c.Weights[metric])
		}
	}

	t := c.Thresholds
	if !(t.Low < t.Medium && t.Medium < t.High && t.High < t.Critical) {
		return fmt.Errorf("thresholds must be strictly increasing, got low=%v medium=%v high=%v critical=%v",
			t.Low, t.Medium, t.High, t.Critical)
	}
	if t.Low < 0 || t.Critical > 1 {
		return fmt.Errorf("thresholds must lie within [0,1], got low=%v critical=%v", t.Low, t.Critical)
	}

	for _, metric := range sortedKeys(c.Ranges) {
		r := c.Ranges[metric]
		if r.Min >= r.Max {
			return fmt.Errorf("reference range for %q requires min < max, got min=%v max=%v", metric, r.Min, r.Max)
		}
		if r.Optimal != nil && (*r.Optimal < r.Min || *r.Optimal > r.Max) {
			return fmt.Errorf("optimal for %q must lie within [%v,%v], got %v", metric, r.Min, r.Max, *r.Optimal)
		}
	}

	return nil
}

// Clone returns a deep copy so snapshots can be swapped without sharing maps.
func (c Config) Clone() Config {
	out := Config{
		Weights:    make(map[string]float64, len(c.Weights)),
		Thresholds: c.Thresholds,
		Ranges:     make(map[string]MetricRange, len(c.Ranges)),
	}
	for k, v := range c.Weights {
		out.Weights[k] = v
	}
	for k, r := range c.Ranges {
		if r.Optimal != nil {
			o := *r.Optimal
			r.Optimal = &o
		}
		out.Ranges[k] = r
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
