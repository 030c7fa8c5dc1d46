package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cycleTimeout bounds one evaluation run so a stuck cycle cannot hold the
// skip-if-running guard forever.
const cycleTimeout = 10 * time.Minute

// Runner is the unit of work the scheduler drives.
type Runner interface {
	RunCycle(ctx context.Context)
}

// Scheduler fires the evaluation cycle on a cron spec (hourly by default)
// and once immediately at startup. If a cycle is still running when the
// next trigger fires, that trigger is skipped rather than queued.
type Scheduler struct {
	runner  Runner
	spec    string
	cron    *cron.Cron
	logger  *zap.Logger
	running atomic.Bool
}

// New creates a scheduler for the given cron spec.
func New(runner Runner, spec string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner: runner,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the cron job and kicks off the initial run.
func (s *Scheduler) Start() error {
	s.cron = cron.New()

	if _, err := s.cron.AddFunc(s.spec, s.runOnce); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("spec", s.spec))

	// Immediate run at process start.
	go s.runOnce()

	return nil
}

// Stop halts the cron loop. A cycle already in flight finishes on its own.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.logger.Info("Scheduler stopped")
}

// TriggerNow runs a cycle outside the schedule, subject to the same
// at-most-one-concurrent-run guard.
func (s *Scheduler) TriggerNow() {
	go s.runOnce()
}

func (s *Scheduler) runOnce() {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("Skipping trigger, previous cycle still running")
		return
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	s.runner.RunCycle(ctx)
}
