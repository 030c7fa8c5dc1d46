package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/smukkama/weather-index-server/internal/alert"
	"github.com/smukkama/weather-index-server/internal/cache"
	"github.com/smukkama/weather-index-server/internal/database"
	"github.com/smukkama/weather-index-server/internal/index"
	"github.com/smukkama/weather-index-server/internal/observability"
)

// predictionWindow is how far back the latest-prediction lookup reaches.
// Regions whose newest prediction is older than this are skipped.
const predictionWindow = time.Hour

// DataSource is the persistence boundary the service reads observations
// and regions from.
type DataSource interface {
	ListRegions(ctx context.Context) ([]*database.Region, error)
	LatestPrediction(ctx context.Context, region string, since time.Time) (*database.ObservationRow, error)
	ObservationHistory(ctx context.Context, region string, since, until time.Time) ([]*database.ObservationRow, error)
	InsertPrediction(ctx context.Context, o *database.ObservationRow) error
}

// Fetcher pulls current conditions from the upstream forecast API.
type Fetcher interface {
	FetchCurrent(ctx context.Context, region string, lat, lon float64) (index.Observation, error)
}

// Service orchestrates index calculation and the alert lifecycle across
// regions. The calculation path is stateless; all shared state lives in
// the config store, the alert store and the result cache.
type Service struct {
	data    DataSource
	calc    *index.Calculator
	configs *index.ConfigStore
	manager *alert.Manager
	cache   *cache.ResultCache
	fetcher Fetcher
	metrics *observability.Metrics
	clock   clockwork.Clock
	logger  *zap.Logger
}

// New creates the index service. cache, fetcher and metrics may be nil.
func New(
	data DataSource,
	configs *index.ConfigStore,
	manager *alert.Manager,
	resultCache *cache.ResultCache,
	fetcher Fetcher,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	logger *zap.Logger,
) *Service {
	return &Service{
		data:    data,
		calc:    index.NewCalculator(),
		configs: configs,
		manager: manager,
		cache:   resultCache,
		fetcher: fetcher,
		metrics: metrics,
		clock:   clock,
		logger:  logger,
	}
}

// CalculateIndex computes the current composite index for the given
// regions, or for every registered region when regions is empty. A region
// whose data cannot be loaded is skipped and logged; it never aborts the
// others.
func (s *Service) CalculateIndex(ctx context.Context, regions []string) ([]index.Result, error) {
	names, err := s.resolveRegions(ctx, regions)
	if err != nil {
		return nil, err
	}

	cfg := s.configs.Get()
	since := s.clock.Now().Add(-predictionWindow)

	results := make([]index.Result, 0, len(names))
	for _, region := range names {
		row, err := s.data.LatestPrediction(ctx, region, since)
		if err != nil {
			s.logger.Warn("Skipping region, failed to load latest prediction",
				zap.String("region", region),
				zap.Error(err))
			s.countSkip()
			continue
		}
		if row == nil {
			s.logger.Debug("No recent prediction for region", zap.String("region", region))
			continue
		}

		obs := index.Observation{
			Region:  region,
			Time:    row.Time,
			Metrics: row.Metrics(),
		}
		results = append(results, s.calc.Calculate(obs, cfg))
	}

	return results, nil
}

// History recomputes the index over the stored observations of one region
// for the past N hours, oldest first.
func (s *Service) History(ctx context.Context, region string, hours int) ([]index.Result, error) {
	until := s.clock.Now()
	since := until.Add(-time.Duration(hours) * time.Hour)

	rows, err := s.data.ObservationHistory(ctx, region, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", region, err)
	}

	cfg := s.configs.Get()
	results := make([]index.Result, 0, len(rows))
	for _, row := range rows {
		obs := index.Observation{
			Region:  region,
			Time:    row.Time,
			Metrics: row.Metrics(),
		}
		result := s.calc.Calculate(obs, cfg)
		result.Timestamp = row.Time
		result.PredictionTime = nil
		results = append(results, result)
	}

	return results, nil
}

// Global aggregates per-region results into the cross-region index.
func (s *Service) Global(results []index.Result) index.Result {
	return s.calc.CalculateGlobal(results, s.configs.Get())
}

// RunCycle is one scheduled evaluation: refresh observations when a
// fetcher is configured, compute every region's index, drive the alert
// lifecycle, and cache the results. Failures are isolated per region.
func (s *Service) RunCycle(ctx context.Context) {
	start := s.clock.Now()
	s.logger.Info("Starting index evaluation cycle")

	if s.fetcher != nil {
		s.refreshObservations(ctx)
	}

	results, err := s.CalculateIndex(ctx, nil)
	if err != nil {
		s.logger.Error("Evaluation cycle aborted, failed to list regions", zap.Error(err))
		return
	}

	for _, result := range results {
		s.cacheResult(ctx, result)

		if result.Level == index.LevelUnknown {
			// No usable data; leave the current alert state untouched.
			continue
		}

		action, _, err := s.manager.Evaluate(ctx, result)
		if err != nil {
			// The transition stays pending; the next cycle recomputes from
			// the current level and retries.
			s.logger.Error("Alert evaluation failed",
				zap.String("region", result.Region),
				zap.Error(err))
			continue
		}
		s.countAction(action)
	}

	global := s.Global(results)
	s.cacheResult(ctx, global)

	s.logger.Info("Index evaluation cycle completed",
		zap.Int("regions", len(results)),
		zap.Float64("global_index", global.Value),
		zap.String("global_level", string(global.Level)),
		zap.Duration("duration", s.clock.Since(start)))

	if s.metrics != nil {
		s.metrics.CyclesTotal.Inc()
		s.metrics.CycleDuration.Observe(s.clock.Since(start).Seconds())
	}
}

// refreshObservations pulls current conditions for every region and stores
// them as the newest prediction rows.
func (s *Service) refreshObservations(ctx context.Context) {
	regions, err := s.data.ListRegions(ctx)
	if err != nil {
		s.logger.Warn("Skipping observation refresh, failed to list regions", zap.Error(err))
		return
	}

	for _, region := range regions {
		obs, err := s.fetcher.FetchCurrent(ctx, region.Name, region.Latitude, region.Longitude)
		if err != nil {
			s.logger.Warn("Failed to fetch current conditions",
				zap.String("region", region.Name),
				zap.Error(err))
			continue
		}

		row := &database.ObservationRow{
			Region: obs.Region,
			Time:   obs.Time,
		}
		for metric, value := range obs.Metrics {
			row.SetMetric(metric, value)
		}

		if err := s.data.InsertPrediction(ctx, row); err != nil {
			s.logger.Warn("Failed to store fetched observation",
				zap.String("region", region.Name),
				zap.Error(err))
		}
	}
}

func (s *Service) cacheResult(ctx context.Context, result index.Result) {
	if s.metrics != nil {
		s.metrics.IndexGauge.WithLabelValues(result.Region).Set(result.Value)
	}
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, result); err != nil {
		s.logger.Warn("Failed to cache index result",
			zap.String("region", result.Region),
			zap.Error(err))
	}
}

func (s *Service) resolveRegions(ctx context.Context, regions []string) ([]string, error) {
	if len(regions) > 0 {
		return regions, nil
	}

	all, err := s.data.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}

	names := make([]string, 0, len(all))
	for _, r := range all {
		names = append(names, r.Name)
	}
	return names, nil
}

func (s *Service) countSkip() {
	if s.metrics != nil {
		s.metrics.RegionsSkipped.Inc()
	}
}

func (s *Service) countAction(action alert.Action) {
	if s.metrics == nil {
		return
	}
	switch action {
	case alert.ActionCreated:
		s.metrics.AlertsCreated.Inc()
	case alert.ActionUpdated:
		s.metrics.AlertsUpdated.Inc()
	case alert.ActionResolved:
		s.metrics.AlertsResolved.Inc()
	}
}
