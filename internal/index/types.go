package index

import "time"

// Level classifies a composite index value into an alert level.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
	// LevelUnknown is returned when an observation carries no usable metrics.
	LevelUnknown Level = "unknown"
)

// GlobalRegion is the region identifier used for the cross-region index.
const GlobalRegion = "global"

// Observation is a single multi-metric weather reading for one region.
// It is immutable once handed to the calculator.
type Observation struct {
	Region  string             `json:"region"`
	Time    time.Time          `json:"time"`
	Metrics map[string]float64 `json:"metrics"`
}

// MetricDetail records how one metric contributed to a composite index.
type MetricDetail struct {
	RawValue     float64 `json:"raw_value"`
	Normalized   float64 `json:"normalized"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// Result is one composite index computation. Every calculation produces a
// fresh Result; callers must not mutate it.
type Result struct {
	Value          float64                 `json:"index"`
	Level          Level                   `json:"level"`
	Region         string                  `json:"region"`
	Timestamp      time.Time               `json:"timestamp"`
	PredictionTime *time.Time              `json:"prediction_time,omitempty"`
	Details        map[string]MetricDetail `json:"details"`
}
