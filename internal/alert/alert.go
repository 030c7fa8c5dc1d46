package alert

import (
	"context"
	"time"

	"github.com/smukkama/weather-index-server/internal/index"
)

// TypeWeatherIndex is the alert type managed by this service.
const TypeWeatherIndex = "weather_index"

const (
	StatusActive       = "active"
	StatusAcknowledged = "acknowledged"
	StatusResolved     = "resolved"
)

// Alert is a persisted alert record. At most one alert per (region, type)
// pair may be active at a time.
type Alert struct {
	ID             string
	Type           string
	Region         string
	Level          index.Level
	IndexValue     float64
	Status         string
	Message        string
	Data           Data
	CreatedAt      time.Time
	UpdatedAt      time.Time
	AcknowledgedAt *time.Time
	ResolvedAt     *time.Time
}

// Data is the computation detail blob stored alongside an alert.
type Data struct {
	Region         string                        `json:"region"`
	IndexValue     float64                       `json:"index_value"`
	Level          index.Level                   `json:"level"`
	Details        map[string]index.MetricDetail `json:"details"`
	PredictionTime *time.Time                    `json:"prediction_time,omitempty"`
	Description    string                        `json:"description"`
}

// Store is the persistence boundary for alert records.
type Store interface {
	FindActive(ctx context.Context, alertType, region string) ([]*Alert, error)
	Insert(ctx context.Context, a *Alert) error
	Update(ctx context.Context, a *Alert) error
	Resolve(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, alertType, status string) ([]*Alert, error)
	Acknowledge(ctx context.Context, id string, at time.Time) (*Alert, error)
}

// Notifier receives alert-created events. Delivery is best-effort; a
// failing notifier must never affect the lifecycle transition.
type Notifier interface {
	AlertCreated(ctx context.Context, a *Alert) error
}

// levelInfo carries the human-facing name and description per level.
type levelInfo struct {
	Name        string
	Description string
}

var levelCatalog = map[index.Level]levelInfo{
	index.LevelLow: {
		Name:        "Normal conditions",
		Description: "Weather conditions are within normal bounds",
	},
	index.LevelMedium: {
		Name:        "Caution",
		Description: "Weather conditions require attention",
	},
	index.LevelHigh: {
		Name:        "Alert",
		Description: "Adverse weather conditions, alert active",
	},
	index.LevelCritical: {
		Name:        "Critical alert",
		Description: "Critical weather conditions, urgent alert",
	},
}

// LevelName returns the display name for a level.
func LevelName(l index.Level) string {
	if info, ok := levelCatalog[l]; ok {
		return info.Name
	}
	return string(l)
}

// LevelDescription returns the display description for a level.
func LevelDescription(l index.Level) string {
	return levelCatalog[l].Description
}
