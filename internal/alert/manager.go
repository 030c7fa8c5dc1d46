package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/smukkama/weather-index-server/internal/index"
)

// Action describes what an evaluation did to the alert record.
type Action string

const (
	ActionNone     Action = "none"
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionResolved Action = "resolved"
)

const notifyTimeout = 10 * time.Second

// Manager drives the alert lifecycle for weather index results.
//
// Evaluations for the same region are serialized through a per-region lock
// so two overlapping runs cannot both observe "no active alert" and
// double-create; different regions evaluate fully in parallel.
type Manager struct {
	store    Store
	notifier Notifier
	clock    clockwork.Clock
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates an alert lifecycle manager. notifier may be nil.
func NewManager(store Store, notifier Notifier, clock clockwork.Clock, logger *zap.Logger) *Manager {
	return &Manager{
		store:    store,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// Evaluate applies one freshly computed result to the region's alert state
// and returns the transition that was taken. Re-evaluating an unchanged
// level performs no writes.
func (m *Manager) Evaluate(ctx context.Context, result index.Result) (Action, *Alert, error) {
	lock := m.regionLock(result.Region)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.findActive(ctx, result.Region)
	if err != nil {
		return ActionNone, nil, fmt.Errorf("failed to look up active alert for %s: %w", result.Region, err)
	}

	severe := result.Level == index.LevelMedium || result.Level == index.LevelHigh || result.Level == index.LevelCritical

	switch {
	case existing == nil && severe:
		created, err := m.create(ctx, result)
		if err != nil {
			return ActionNone, nil, err
		}
		return ActionCreated, created, nil

	case existing == nil:
		return ActionNone, nil, nil

	case severe && existing.Level == result.Level:
		// Same condition still holding; do not touch the record.
		return ActionNone, existing, nil

	case severe:
		updated, err := m.update(ctx, existing, result)
		if err != nil {
			return ActionNone, existing, err
		}
		return ActionUpdated, updated, nil

	default:
		if err := m.resolve(ctx, existing); err != nil {
			return ActionNone, existing, err
		}
		return ActionResolved, existing, nil
	}
}

func (m *Manager) findActive(ctx context.Context, region string) (*Alert, error) {
	active, err := m.store.FindActive(ctx, TypeWeatherIndex, region)
	if err != nil {
		return nil, err
	}
	if len(active) == 0 {
		return nil, nil
	}
	if len(active) > 1 {
		m.logger.Warn("Multiple active alerts for region, using the first",
			zap.String("region", region),
			zap.Int("count", len(active)))
	}
	return active[0], nil
}

func (m *Manager) create(ctx context.Context, result index.Result) (*Alert, error) {
	now := m.clock.Now().UTC()
	a := &Alert{
		ID:         uuid.NewString(),
		Type:       TypeWeatherIndex,
		Region:     result.Region,
		Level:      result.Level,
		IndexValue: result.Value,
		Status:     StatusActive,
		Message:    alertMessage(result),
		Data:       alertData(result),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := m.store.Insert(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to insert alert for %s: %w", result.Region, err)
	}

	m.logger.Info("Alert created",
		zap.String("region", a.Region),
		zap.String("level", string(a.Level)),
		zap.Float64("index", a.IndexValue),
		zap.String("alert_id", a.ID))

	m.notify(a)
	return a, nil
}

func (m *Manager) update(ctx context.Context, existing *Alert, result index.Result) (*Alert, error) {
	updated := *existing
	updated.Level = result.Level
	updated.IndexValue = result.Value
	updated.Message = alertMessage(result)
	updated.Data = alertData(result)
	updated.UpdatedAt = m.clock.Now().UTC()

	if err := m.store.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update alert %s: %w", existing.ID, err)
	}

	m.logger.Info("Alert level changed",
		zap.String("region", updated.Region),
		zap.String("from", string(existing.Level)),
		zap.String("to", string(updated.Level)),
		zap.String("alert_id", updated.ID))

	return &updated, nil
}

func (m *Manager) resolve(ctx context.Context, existing *Alert) error {
	now := m.clock.Now().UTC()
	if err := m.store.Resolve(ctx, existing.ID, now); err != nil {
		return fmt.Errorf("failed to resolve alert %s: %w", existing.ID, err)
	}

	m.logger.Info("Alert resolved",
		zap.String("region", existing.Region),
		zap.String("alert_id", existing.ID))

	return nil
}

// notify dispatches the alert-created event off the critical path. Failures
// are logged and never surfaced to the lifecycle transition.
func (m *Manager) notify(a *Alert) {
	if m.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := m.notifier.AlertCreated(ctx, a); err != nil {
			m.logger.Warn("Alert notification failed",
				zap.String("alert_id", a.ID),
				zap.String("region", a.Region),
				zap.Error(err))
		}
	}()
}

func (m *Manager) regionLock(region string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[region]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[region] = lock
	}
	return lock
}

func alertMessage(result index.Result) string {
	return fmt.Sprintf("Weather index %.3f - %s", result.Value, LevelName(result.Level))
}

func alertData(result index.Result) Data {
	return Data{
		Region:         result.Region,
		IndexValue:     result.Value,
		Level:          result.Level,
		Details:        result.Details,
		PredictionTime: result.PredictionTime,
		Description:    LevelDescription(result.Level),
	}
}
