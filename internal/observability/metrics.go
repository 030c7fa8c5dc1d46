package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instruments for the index pipeline.
type Metrics struct {
	registry *prometheus.Registry

	CyclesTotal     prometheus.Counter
	CycleDuration   prometheus.Histogram
	RegionsSkipped  prometheus.Counter
	AlertsCreated   prometheus.Counter
	AlertsUpdated   prometheus.Counter
	AlertsResolved  prometheus.Counter
	IndexGauge      *prometheus.GaugeVec
}

// NewMetrics creates and registers the pipeline metrics on a fresh
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_index_cycles_total",
			Help: "Number of completed evaluation cycles.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weather_index_cycle_duration_seconds",
			Help:    "Duration of evaluation cycles.",
			Buckets: prometheus.DefBuckets,
		}),
		RegionsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_index_regions_skipped_total",
			Help: "Regions skipped during a cycle because their data could not be loaded.",
		}),
		AlertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_index_alerts_created_total",
			Help: "Alerts created.",
		}),
		AlertsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_index_alerts_updated_total",
			Help: "Alerts updated in place after a level change.",
		}),
		AlertsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_index_alerts_resolved_total",
			Help: "Alerts resolved after conditions normalized.",
		}),
		IndexGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weather_index_value",
			Help: "Latest composite index value per region.",
		}, []string{"region"}),
	}

	registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.RegionsSkipped,
		m.AlertsCreated,
		m.AlertsUpdated,
		m.AlertsResolved,
		m.IndexGauge,
	)

	return m
}

// Registry exposes the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
