// Package schedulerengine runs the periodic maintenance loops of the relay.
package schedulerengine

import (
	"context"
	"sync"
	"time"

	"gitlab.com/judge-relay.net/internal/config"
	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/core/services/worker"
	"gitlab.com/judge-relay.net/internal/metrics"
)

type SchedulerEngine struct {
	cfg           *config.MaintenanceCfg
	submissions   secondary.SubmissionRepository
	workerService worker.IWorkerRegistrationService
	metrics       *metrics.Metrics
	logger        primary.Logger
	now           func() time.Time
	wg            sync.WaitGroup
}

// NewSchedulerEngine creates the engine. workerService may be nil when no
// TCP worker registry is in use; the cleanup loop is then skipped.
func NewSchedulerEngine(
	cfg *config.MaintenanceCfg,
	submissions secondary.SubmissionRepository,
	workerService worker.IWorkerRegistrationService,
	m *metrics.Metrics,
	logger primary.Logger,
) *SchedulerEngine {
	return &SchedulerEngine{
		cfg:           cfg,
		submissions:   submissions,
		workerService: workerService,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

// Start launches the loops; they stop when ctx is cancelled
func (s *SchedulerEngine) Start(ctx context.Context) {
	if s.workerService != nil {
		s.every(ctx, s.cfg.WorkerCleanupInterval, func(ctx context.Context) {
			_ = s.CleanupWorkers(ctx)
		})
	}
	s.every(ctx, s.cfg.StalePendingInterval, func(ctx context.Context) {
		_, _ = s.ReportStalePending(ctx)
	})
}

// Wait blocks until every loop started by Start has returned
func (s *SchedulerEngine) Wait() {
	s.wg.Wait()
}

func (s *SchedulerEngine) every(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	if interval <= 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// CleanupWorkers drops TCP workers whose heartbeat went silent
func (s *SchedulerEngine) CleanupWorkers(ctx context.Context) error {
	if err := s.workerService.CleanupInactiveWorkers(ctx); err != nil {
		s.logger.Error("Failed to clean up workers", "error", err)
		return err
	}
	return nil
}

// ReportStalePending gauges submissions still Pending past the threshold.
// They are only reported: nothing is re-dispatched or failed.
func (s *SchedulerEngine) ReportStalePending(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.StalePendingAfter)
	count, err := s.submissions.CountStalePending(ctx, cutoff)
	if err != nil {
		s.logger.Error("Failed to count stale pending submissions", "error", err)
		return 0, err
	}

	s.metrics.StalePending.Set(float64(count))
	if count > 0 {
		s.logger.Warn("Submissions stuck in Pending", "count", count, "olderThan", s.cfg.StalePendingAfter)
	}
	return count, nil
}
