package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smukkama/weather-index-server/internal/alert"
	"github.com/smukkama/weather-index-server/internal/database"
	"github.com/smukkama/weather-index-server/internal/index"
	"github.com/smukkama/weather-index-server/internal/observability"
	"github.com/smukkama/weather-index-server/internal/service"
)

// --- fakes ---

type fakeData struct {
	mu        sync.Mutex
	regions   []*database.Region
	latest    map[string]*database.ObservationRow
	latestErr map[string]error
	history   map[string][]*database.ObservationRow
	inserted  []*database.ObservationRow
	listErr   error
}

func (f *fakeData) ListRegions(context.Context) ([]*database.Region, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.regions, nil
}

func (f *fakeData) LatestPrediction(_ context.Context, region string, _ time.Time) (*database.ObservationRow, error) {
	if err := f.latestErr[region]; err != nil {
		return nil, err
	}
	return f.latest[region], nil
}

func (f *fakeData) ObservationHistory(_ context.Context, region string, _, _ time.Time) ([]*database.ObservationRow, error) {
	return f.history[region], nil
}

func (f *fakeData) InsertPrediction(_ context.Context, o *database.ObservationRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, o)
	return nil
}

type fakeAlertStore struct {
	mu     sync.Mutex
	active map[string]*alert.Alert
}

func newFakeAlertStore() *fakeAlertStore {
	return &fakeAlertStore{active: make(map[string]*alert.Alert)}
}

func (s *fakeAlertStore) FindActive(_ context.Context, _, region string) ([]*alert.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.active[region]; ok {
		copied := *a
		return []*alert.Alert{&copied}, nil
	}
	return nil, nil
}

func (s *fakeAlertStore) Insert(_ context.Context, a *alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *a
	s.active[a.Region] = &copied
	return nil
}

func (s *fakeAlertStore) Update(_ context.Context, a *alert.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *a
	s.active[a.Region] = &copied
	return nil
}

func (s *fakeAlertStore) Resolve(_ context.Context, id string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for region, a := range s.active {
		if a.ID == id {
			delete(s.active, region)
		}
	}
	return nil
}

func (s *fakeAlertStore) Acknowledge(context.Context, string, time.Time) (*alert.Alert, error) {
	return nil, nil
}

func (s *fakeAlertStore) List(context.Context, string, string) ([]*alert.Alert, error) {
	return nil, nil
}

type fakeFetcher struct {
	observations map[string]index.Observation
}

func (f *fakeFetcher) FetchCurrent(_ context.Context, region string, _, _ float64) (index.Observation, error) {
	obs, ok := f.observations[region]
	if !ok {
		return index.Observation{}, errors.New("upstream unavailable")
	}
	return obs, nil
}

// --- helpers ---

func row(region string, at time.Time, temperature float64) *database.ObservationRow {
	r := &database.ObservationRow{Region: region, Time: at}
	r.SetMetric("temperature", temperature)
	return r
}

func newTestService(t *testing.T, data *fakeData, alerts alert.Store, fetcher service.Fetcher) *service.Service {
	t.Helper()

	logger := zap.NewNop()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	configs, err := index.NewConfigStore(context.Background(), nil, logger)
	require.NoError(t, err)

	manager := alert.NewManager(alerts, nil, clock, logger)
	metrics := observability.NewMetrics()

	return service.New(data, configs, manager, nil, fetcher, metrics, clock, logger)
}

// --- tests ---

func TestCalculateIndex_PerRegionFailureIsolation(t *testing.T) {
	now := time.Date(2024, 6, 1, 11, 30, 0, 0, time.UTC)
	data := &fakeData{
		regions: []*database.Region{
			{ID: "1", Name: "paris"},
			{ID: "2", Name: "lyon"},
			{ID: "3", Name: "nice"},
		},
		latest: map[string]*database.ObservationRow{
			"paris": row("paris", now, 28.5),
			"nice":  row("nice", now, 40),
		},
		latestErr: map[string]error{
			"lyon": errors.New("connection reset"),
		},
	}

	svc := newTestService(t, data, newFakeAlertStore(), nil)

	results, err := svc.CalculateIndex(context.Background(), nil)
	require.NoError(t, err)

	// lyon failed and was skipped; the others still computed.
	require.Len(t, results, 2)
	regions := []string{results[0].Region, results[1].Region}
	assert.Contains(t, regions, "paris")
	assert.Contains(t, regions, "nice")
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Value, 0.0)
		assert.LessOrEqual(t, r.Value, 1.0)
	}
}

func TestCalculateIndex_ExplicitRegions(t *testing.T) {
	now := time.Date(2024, 6, 1, 11, 30, 0, 0, time.UTC)
	data := &fakeData{
		latest: map[string]*database.ObservationRow{
			"paris": row("paris", now, 28.5),
		},
		listErr: errors.New("must not list regions for explicit queries"),
	}

	svc := newTestService(t, data, newFakeAlertStore(), nil)

	results, err := svc.CalculateIndex(context.Background(), []string{"paris"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "paris", results[0].Region)
	require.NotNil(t, results[0].PredictionTime)
	assert.Equal(t, now, *results[0].PredictionTime)
}

func TestHistory_UsesObservationTimestamps(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	data := &fakeData{
		history: map[string][]*database.ObservationRow{
			"paris": {
				row("paris", t0, 15),
				row("paris", t0.Add(time.Hour), 22),
				row("paris", t0.Add(2*time.Hour), 35),
			},
		},
	}

	svc := newTestService(t, data, newFakeAlertStore(), nil)

	results, err := svc.History(context.Background(), "paris", 24)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, r := range results {
		assert.Equal(t, t0.Add(time.Duration(i)*time.Hour), r.Timestamp)
		assert.Nil(t, r.PredictionTime)
	}
	// Hotter afternoon reads as more severe than the mild morning.
	assert.Greater(t, results[2].Value, results[1].Value)
}

func TestRunCycle_DrivesAlertLifecycle(t *testing.T) {
	now := time.Date(2024, 6, 1, 11, 45, 0, 0, time.UTC)
	data := &fakeData{
		regions: []*database.Region{
			{ID: "1", Name: "paris"},
			{ID: "2", Name: "storm"},
		},
		latest: map[string]*database.ObservationRow{
			"paris": row("paris", now, 20), // optimal conditions
			"storm": row("storm", now, 40), // severe heat
		},
	}
	alerts := newFakeAlertStore()

	svc := newTestService(t, data, alerts, nil)
	svc.RunCycle(context.Background())

	// Only the severe region has an active alert.
	assert.NotContains(t, alerts.active, "paris")
	require.Contains(t, alerts.active, "storm")
	assert.Equal(t, alert.StatusActive, alerts.active["storm"].Status)
	assert.Equal(t, index.LevelCritical, alerts.active["storm"].Level)

	// Conditions normalize; the next cycle resolves the alert.
	data.latest["storm"] = row("storm", now, 20)
	svc.RunCycle(context.Background())
	assert.NotContains(t, alerts.active, "storm")
}

func TestRunCycle_SkipsLifecycleWithoutData(t *testing.T) {
	now := time.Date(2024, 6, 1, 11, 45, 0, 0, time.UTC)
	empty := &database.ObservationRow{Region: "paris", Time: now}
	data := &fakeData{
		regions: []*database.Region{{ID: "1", Name: "paris"}},
		latest:  map[string]*database.ObservationRow{"paris": empty},
	}
	alerts := newFakeAlertStore()

	svc := newTestService(t, data, alerts, nil)
	svc.RunCycle(context.Background())

	// An all-null observation must not touch alert state.
	assert.Empty(t, alerts.active)
}

func TestRunCycle_RefreshesObservationsWhenFetcherConfigured(t *testing.T) {
	now := time.Date(2024, 6, 1, 11, 45, 0, 0, time.UTC)
	data := &fakeData{
		regions: []*database.Region{
			{ID: "1", Name: "paris", Latitude: 48.85, Longitude: 2.35},
			{ID: "2", Name: "lyon", Latitude: 45.76, Longitude: 4.83},
		},
		latest: map[string]*database.ObservationRow{},
	}
	fetcher := &fakeFetcher{
		observations: map[string]index.Observation{
			"paris": {
				Region:  "paris",
				Time:    now,
				Metrics: map[string]float64{"temperature": 21.5, "humidity": 55},
			},
			// lyon intentionally missing: fetch failure must not stop paris.
		},
	}

	svc := newTestService(t, data, newFakeAlertStore(), fetcher)
	svc.RunCycle(context.Background())

	require.Len(t, data.inserted, 1)
	stored := data.inserted[0]
	assert.Equal(t, "paris", stored.Region)
	require.NotNil(t, stored.Temperature)
	assert.Equal(t, 21.5, *stored.Temperature)
	require.NotNil(t, stored.Humidity)
	assert.Equal(t, 55.0, *stored.Humidity)
}
