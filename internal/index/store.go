package index

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ConfigPersister stores and loads the calculator configuration.
// Load returns (zero, false, nil) when no configuration has been saved yet.
type ConfigPersister interface {
	SaveIndexConfig(ctx context.Context, cfg Config) error
	LoadIndexConfig(ctx context.Context) (Config, bool, error)
}

// ConfigUpdate is a partial configuration change. Nil fields are left
// untouched; maps replace only the listed metrics.
type ConfigUpdate struct {
	Weights    map[string]float64     `json:"weights,omitempty"`
	Thresholds *Thresholds            `json:"thresholds,omitempty"`
	Ranges     map[string]MetricRange `json:"reference_ranges,omitempty"`
}

// ConfigStore holds the current calculator configuration and swaps it
// atomically on update. Reads never observe a half-applied change; an
// update that fails validation leaves the prior config in effect.
type ConfigStore struct {
	mu        sync.RWMutex
	current   Config
	persister ConfigPersister
	logger    *zap.Logger
}

// NewConfigStore creates a store seeded with the persisted configuration,
// falling back to the built-in defaults when none exists.
func NewConfigStore(ctx context.Context, persister ConfigPersister, logger *zap.Logger) (*ConfigStore, error) {
	s := &ConfigStore{
		current:   DefaultConfig(),
		persister: persister,
		logger:    logger,
	}

	if persister != nil {
		saved, ok, err := persister.LoadIndexConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load index config: %w", err)
		}
		if ok {
			if err := saved.Validate(); err != nil {
				logger.Warn("Persisted index config is invalid, using defaults", zap.Error(err))
			} else {
				s.current = saved
			}
		}
	}

	return s, nil
}

// Get returns the current configuration snapshot.
func (s *ConfigStore) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and applies a partial configuration change. The merged
// config is persisted before it becomes visible to readers.
func (s *ConfigStore) Update(ctx context.Context, update ConfigUpdate) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := s.current.Clone()
	for metric, weight := range update.Weights {
		merged.Weights[metric] = weight
	}
	if update.Thresholds != nil {
		merged.Thresholds = *update.Thresholds
	}
	for metric, r := range update.Ranges {
		merged.Ranges[metric] = r
	}

	if err := merged.Validate(); err != nil {
		return s.current, fmt.Errorf("invalid config update: %w", err)
	}

	if s.persister != nil {
		if err := s.persister.SaveIndexConfig(ctx, merged); err != nil {
			return s.current, fmt.Errorf("failed to persist index config: %w", err)
		}
	}

	s.current = merged
	s.logger.Info("Index configuration updated",
		zap.Int("weights", len(merged.Weights)),
		zap.Int("reference_ranges", len(merged.Ranges)))

	return merged, nil
}
