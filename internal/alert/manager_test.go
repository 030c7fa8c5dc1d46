package alert

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

	"github.com/smukkama/weather-index-server/internal/index"
)

// memStore is an in-memory alert.Store for lifecycle tests.
type memStore struct {
	mu      sync.Mutex
	alerts  map[string]*Alert
	inserts int
	updates int
	failOps bool
}

func newMemStore() *memStore {
	return &memStore{alerts: make(map[string]*Alert)}
}

func (s *memStore) FindActive(_ context.Context, alertType, region string) ([]*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOps {
		return nil, errors.New("store unavailable")
	}
	var out []*Alert
	for _, a := range s.alerts {
		if a.Type == alertType && a.Region == region && a.Status == StatusActive {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, a *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOps {
		return errors.New("store unavailable")
	}
	copied := *a
	s.alerts[a.ID] = &copied
	s.inserts++
	return nil
}

func (s *memStore) Update(_ context.Context, a *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *a
	s.alerts[a.ID] = &copied
	s.updates++
	return nil
}

func (s *memStore) Resolve(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return errors.New("not found")
	}
	a.Status = StatusResolved
	a.ResolvedAt = &at
	a.UpdatedAt = at
	return nil
}

func (s *memStore) Acknowledge(_ context.Context, id string, at time.Time) (*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok || a.Status != StatusActive {
		return nil, nil
	}
	a.Status = StatusAcknowledged
	a.AcknowledgedAt = &at
	copied := *a
	return &copied, nil
}

func (s *memStore) List(_ context.Context, alertType, status string) ([]*Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Alert
	for _, a := range s.alerts {
		if a.Type == alertType && (status == "" || a.Status == status) {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memStore) activeCount(region string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.alerts {
		if a.Region == region && a.Status == StatusActive {
			n++
		}
	}
	return n
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []*Alert
	err    error
	fired  chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{fired: make(chan struct{}, 16)}
}

func (n *recordingNotifier) AlertCreated(_ context.Context, a *Alert) error {
	n.mu.Lock()
	n.events = append(n.events, a)
	err := n.err
	n.mu.Unlock()
	n.fired <- struct{}{}
	return err
}

func (n *recordingNotifier) waitFired(t *testing.T) {
	t.Helper()
	select {
	case <-n.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not invoked")
	}
}

func result(region string, level index.Level, value float64) index.Result {
	return index.Result{
		Region:    region,
		Value:     value,
		Level:     level,
		Timestamp: time.Now().UTC(),
		Details: map[string]index.MetricDetail{
			"temperature": {RawValue: 30, Normalized: 0.8, Weight: 0.25, Contribution: 0.2},
		},
	}
}

func newTestManager(store Store, notifier Notifier) (*Manager, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewManager(store, notifier, clock, zap.NewNop()), clock
}

func TestManager_CreatesAlertOnSevereLevel(t *testing.T) {
	store := newMemStore()
	notifier := newRecordingNotifier()
	m, clock := newTestManager(store, notifier)

	action, created, err := m.Evaluate(context.Background(), result("paris", index.LevelHigh, 0.75))
	require.NoError(t, err)

	assert.Equal(t, ActionCreated, action)
	require.NotNil(t, created)
	assert.Equal(t, TypeWeatherIndex, created.Type)
	assert.Equal(t, StatusActive, created.Status)
	assert.Equal(t, index.LevelHigh, created.Level)
	assert.Equal(t, 0.75, created.IndexValue)
	assert.Equal(t, clock.Now().UTC(), created.CreatedAt)
	assert.Equal(t, "Weather index 0.750 - Alert", created.Message)
	assert.Equal(t, 1, store.activeCount("paris"))

	notifier.waitFired(t)
	assert.Len(t, notifier.events, 1)
}

func TestManager_LowLevelWithoutAlertIsNoop(t *testing.T) {
	store := newMemStore()
	m, _ := newTestManager(store, nil)

	action, a, err := m.Evaluate(context.Background(), result("paris", index.LevelLow, 0.1))
	require.NoError(t, err)

	assert.Equal(t, ActionNone, action)
	assert.Nil(t, a)
	assert.Zero(t, store.inserts)
}

func TestManager_UnchangedLevelIsIdempotent(t *testing.T) {
	store := newMemStore()
	notifier := newRecordingNotifier()
	m, _ := newTestManager(store, notifier)

	_, created, err := m.Evaluate(context.Background(), result("paris", index.LevelHigh, 0.75))
	require.NoError(t, err)
	notifier.waitFired(t)

	for i := 0; i < 3; i++ {
		action, existing, err := m.Evaluate(context.Background(), result("paris", index.LevelHigh, 0.75))
		require.NoError(t, err)
		assert.Equal(t, ActionNone, action)
		assert.Equal(t, created.ID, existing.ID)
		assert.Equal(t, created.UpdatedAt, existing.UpdatedAt)
	}

	assert.Equal(t, 1, store.inserts)
	assert.Zero(t, store.updates)
	assert.Len(t, notifier.events, 1)
}

func TestManager_LevelChangeUpdatesInPlace(t *testing.T) {
	store := newMemStore()
	notifier := newRecordingNotifier()
	m, clock := newTestManager(store, notifier)

	_, created, err := m.Evaluate(context.Background(), result("paris", index.LevelMedium, 0.55))
	require.NoError(t, err)
	notifier.waitFired(t)

	clock.Advance(time.Hour)

	action, updated, err := m.Evaluate(context.Background(), result("paris", index.LevelCritical, 0.85))
	require.NoError(t, err)

	assert.Equal(t, ActionUpdated, action)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, index.LevelCritical, updated.Level)
	assert.Equal(t, 0.85, updated.IndexValue)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.Equal(t, 1, store.activeCount("paris"))
	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, 1, store.updates)

	// No notification on update, only on creation.
	assert.Len(t, notifier.events, 1)
}

func TestManager_DropToLowResolves(t *testing.T) {
	store := newMemStore()
	notifier := newRecordingNotifier()
	m, clock := newTestManager(store, notifier)

	_, created, err := m.Evaluate(context.Background(), result("paris", index.LevelHigh, 0.75))
	require.NoError(t, err)
	notifier.waitFired(t)

	clock.Advance(time.Hour)

	action, _, err := m.Evaluate(context.Background(), result("paris", index.LevelLow, 0.12))
	require.NoError(t, err)
	assert.Equal(t, ActionResolved, action)
	assert.Zero(t, store.activeCount("paris"))

	stored := store.alerts[created.ID]
	assert.Equal(t, StatusResolved, stored.Status)
	require.NotNil(t, stored.ResolvedAt)
	assert.Equal(t, clock.Now().UTC(), *stored.ResolvedAt)

	// A later severe reading opens a brand new alert.
	action, recreated, err := m.Evaluate(context.Background(), result("paris", index.LevelMedium, 0.55))
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, action)
	assert.NotEqual(t, created.ID, recreated.ID)
	assert.Equal(t, 1, store.activeCount("paris"))
}

func TestManager_SingleActiveInvariant(t *testing.T) {
	store := newMemStore()
	m, _ := newTestManager(store, nil)

	levels := []index.Level{
		index.LevelMedium, index.LevelHigh, index.LevelHigh, index.LevelCritical,
		index.LevelLow, index.LevelMedium, index.LevelMedium, index.LevelHigh,
	}
	for _, level := range levels {
		_, _, err := m.Evaluate(context.Background(), result("paris", level, 0.6))
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, store.activeCount("paris"), 1)
}

func TestManager_ConcurrentSameRegionDoesNotDoubleCreate(t *testing.T) {
	store := newMemStore()
	m, _ := newTestManager(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := m.Evaluate(context.Background(), result("paris", index.LevelHigh, 0.75))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.inserts)
	assert.Equal(t, 1, store.activeCount("paris"))
}

func TestManager_NotifierFailureDoesNotFailTransition(t *testing.T) {
	store := newMemStore()
	notifier := newRecordingNotifier()
	notifier.err = errors.New("smtp timeout")
	m, _ := newTestManager(store, notifier)

	action, created, err := m.Evaluate(context.Background(), result("paris", index.LevelHigh, 0.75))
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, action)
	assert.NotNil(t, created)

	notifier.waitFired(t)
	assert.Equal(t, 1, store.activeCount("paris"))
}

func TestManager_StoreFailureSurfacesError(t *testing.T) {
	store := newMemStore()
	store.failOps = true
	m, _ := newTestManager(store, nil)

	action, _, err := m.Evaluate(context.Background(), result("paris", index.LevelHigh, 0.75))
	require.Error(t, err)
	assert.Equal(t, ActionNone, action)
}

func TestManager_MultipleActivesUsesFirst(t *testing.T) {
	store := newMemStore()
	m, clock := newTestManager(store, nil)

	// Seed two actives behind the manager's back to simulate a corrupted
	// store; the manager must pick one and carry on.
	now := clock.Now().UTC()
	for _, id := range []string{"a", "b"} {
		store.alerts[id] = &Alert{
			ID: id, Type: TypeWeatherIndex, Region: "paris",
			Level: index.LevelMedium, Status: StatusActive,
			CreatedAt: now, UpdatedAt: now,
		}
	}

	action, _, err := m.Evaluate(context.Background(), result("paris", index.LevelMedium, 0.55))
	require.NoError(t, err)
	assert.Equal(t, ActionNone, action)
}
