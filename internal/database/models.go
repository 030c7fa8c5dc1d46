package database

import (
	"time"
)

// Region is a monitored geographic region.
type Region struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ObservationRow is one stored multi-metric reading (prediction or
// normalized historical data) for a region. Metric columns are nullable:
// upstream coverage varies per region and hour.
type ObservationRow struct {
	ID            int64
	Region        string
	Time          time.Time
	Temperature   *float64
	Humidity      *float64
	Pressure      *float64
	Precipitation *float64
	WindSpeed     *float64
	Visibility    *float64
	CloudCover    *float64
	CreatedAt     time.Time
}

// Metrics flattens the non-null metric columns into a map keyed by the
// canonical metric names used by the index calculator.
func (r *ObservationRow) Metrics() map[string]float64 {
	out := make(map[string]float64)
	put := func(name string, v *float64) {
		if v != nil {
			out[name] = *v
		}
	}
	put("temperature", r.Temperature)
	put("humidity", r.Humidity)
	put("pressure", r.Pressure)
	put("precipitation", r.Precipitation)
	put("wind_speed", r.WindSpeed)
	put("visibility", r.Visibility)
	put("cloud_cover", r.CloudCover)
	return out
}

// SetMetric writes one metric value onto the matching column. Unknown
// metric names are ignored.
func (r *ObservationRow) SetMetric(name string, value float64) {
	v := value
	switch name {
	case "temperature":
		r.Temperature = &v
	case "humidity":
		r.Humidity = &v
	case "pressure":
		r.Pressure = &v
	case "precipitation":
		r.Precipitation = &v
	case "wind_speed":
		r.WindSpeed = &v
	case "visibility":
		r.Visibility = &v
	case "cloud_cover":
		r.CloudCover = &v
	}
}
