package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	tokensCleanupSchedule = "@hourly"
	enqueueTimeout        = 10 * time.Second
)

// JobDispatcher enqueues the periodic maintenance jobs
type JobDispatcher interface {
	// ReconcileRatings enqueues a recalculation of every course rating
	ReconcileRatings(ctx context.Context) error
	// CleanupTokens enqueues removal of expired refresh tokens
	CleanupTokens(ctx context.Context) error
}

// Scheduler enqueues maintenance jobs on cron schedules
type Scheduler struct {
	cron       *cron.Cron
	dispatcher JobDispatcher
	logger     *zap.Logger
}

// NewScheduler creates a scheduler that enqueues rating reconciliation on reconcileSpec
// and token cleanup every hour. reconcileSpec is a standard 5-field cron expression.
func NewScheduler(dispatcher JobDispatcher, reconcileSpec string, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:       cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		dispatcher: dispatcher,
		logger:     logger,
	}

	if _, err := s.cron.AddFunc(reconcileSpec, func() {
		s.enqueue("ratings reconciliation", s.dispatcher.ReconcileRatings)
	}); err != nil {
		return nil, fmt.Errorf("invalid rating reconcile schedule %q: %w", reconcileSpec, err)
	}

	if _, err := s.cron.AddFunc(tokensCleanupSchedule, func() {
		s.enqueue("token cleanup", s.dispatcher.CleanupTokens)
	}); err != nil {
		return nil, fmt.Errorf("invalid token cleanup schedule: %w", err)
	}

	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		s.logger.Info("Job scheduled", zap.Time("next_run", e.Next))
	}
	s.logger.Info("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// enqueue runs one dispatcher call with a timeout.
// Failures are only logged, the next tick tries again.
func (s *Scheduler) enqueue(job string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			s.logger.Info("Job still pending, skipped", zap.String("job", job))
			return
		}
		s.logger.Error("Failed to enqueue job", zap.String("job", job), zap.Error(err))
		return
	}
	s.logger.Info("Job enqueued", zap.String("job", job))
}
