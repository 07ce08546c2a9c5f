package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

var _ IWorkerRegistrationService = &WorkerRegistrationService{}

const (
	heartbeatWindow = 2 * time.Minute
	inactiveCutoff  = 5 * time.Minute
)

// WorkerRegistrationService implements the WorkerRegistrationService interface
type WorkerRegistrationService struct {
	workerRepo secondary.WorkerRepository
	logger     primary.Logger
	now        func() time.Time
}

// NewWorkerRegistrationService creates a new worker registration service
func NewWorkerRegistrationService(workerRepo secondary.WorkerRepository, logger primary.Logger) *WorkerRegistrationService {
	return &WorkerRegistrationService{
		workerRepo: workerRepo,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *WorkerRegistrationService) GetAllWorkers(ctx context.Context) ([]*domain.WorkerInfo, error) {
	s.logger.Debug("Getting all workers")

	workers, err := s.workerRepo.GetAllWorkers(ctx)
	if err != nil {
		s.logger.Error("Failed to get all workers", "error", err)
		return nil, fmt.Errorf("failed to get all workers: %w", err)
	}

	heartbeatThreshold := s.now().Add(-heartbeatWindow)
	for _, worker := range workers {
		worker.IsActive = worker.LastHeartbeat.After(heartbeatThreshold)
	}

	return workers, nil
}

func (s *WorkerRegistrationService) GetLanguages(ctx context.Context) ([]string, error) {
	languages, err := s.workerRepo.GetLanguages(ctx)
	if err != nil {
		s.logger.Error("Failed to get worker languages", "error", err)
		return nil, fmt.Errorf("failed to get worker languages: %w", err)
	}

	return languages, nil
}

// RegisterWorker registers a worker as available for jobs
func (s *WorkerRegistrationService) RegisterWorker(ctx context.Context, workerInfo *domain.WorkerInfo) error {
	if workerInfo.ID == "" || workerInfo.Language == "" || workerInfo.Capacity <= 0 {
		return fmt.Errorf("invalid worker registration: id, language and a positive capacity are required")
	}
	workerInfo.Language = strings.ToLower(workerInfo.Language)
	s.logger.Info("Registering worker", "workerId", workerInfo.ID, "language", workerInfo.Language)

	workerInfo.LastHeartbeat = s.now()
	if err := s.workerRepo.SaveWorker(ctx, workerInfo); err != nil {
		s.logger.Error("Failed to save worker", "error", err)
		return fmt.Errorf("failed to register worker: %w", err)
	}

	return nil
}

// Heartbeat updates the worker's status and availability
func (s *WorkerRegistrationService) Heartbeat(ctx context.Context, workerID string, load int) error {
	s.logger.Debug("Received worker heartbeat", "workerId", workerID, "load", load)

	if err := s.workerRepo.UpdateWorkerHeartbeat(ctx, workerID, load, s.now()); err != nil {
		s.logger.Error("Failed to update worker heartbeat", "workerId", workerID, "error", err)
		return fmt.Errorf("failed to update worker heartbeat: %w", err)
	}

	return nil
}

// GetAvailableWorkers gets live workers for a language that still have capacity
func (s *WorkerRegistrationService) GetAvailableWorkers(ctx context.Context, language string) ([]*domain.WorkerInfo, error) {
	s.logger.Debug("Getting available workers", "language", language)

	workers, err := s.workerRepo.GetWorkersByLanguage(ctx, strings.ToLower(language))
	if err != nil {
		s.logger.Error("Failed to get workers by language", "language", language, "error", err)
		return nil, fmt.Errorf("failed to get workers by language: %w", err)
	}

	availableWorkers := make([]*domain.WorkerInfo, 0, len(workers))
	heartbeatThreshold := s.now().Add(-heartbeatWindow)
	for _, worker := range workers {
		if worker.LastHeartbeat.After(heartbeatThreshold) && worker.HasCapacity() {
			worker.IsActive = true
			availableWorkers = append(availableWorkers, worker)
		}
	}

	return availableWorkers, nil
}

func (s *WorkerRegistrationService) AdjustLoad(ctx context.Context, workerID string, delta int) error {
	if err := s.workerRepo.AdjustLoad(ctx, workerID, delta); err != nil {
		s.logger.Error("Failed to adjust worker load", "workerId", workerID, "delta", delta, "error", err)
		return fmt.Errorf("failed to adjust worker load: %w", err)
	}
	return nil
}

func (s *WorkerRegistrationService) ReserveSlot(ctx context.Context, workerID string) error {
	if err := s.workerRepo.ReserveSlot(ctx, workerID); err != nil {
		if errors.Is(err, errs.ErrWorkerFull) {
			return err
		}
		s.logger.Error("Failed to reserve worker slot", "workerId", workerID, "error", err)
		return fmt.Errorf("failed to reserve worker slot: %w", err)
	}
	return nil
}

func (s *WorkerRegistrationService) Deregister(ctx context.Context, workerID string) error {
	s.logger.Info("Deregistering worker", "workerId", workerID)
	if err := s.workerRepo.RemoveWorker(ctx, workerID); err != nil {
		s.logger.Error("Failed to remove worker", "workerId", workerID, "error", err)
		return fmt.Errorf("failed to remove worker: %w", err)
	}
	return nil
}

// CleanupInactiveWorkers removes workers that haven't sent a heartbeat recently
func (s *WorkerRegistrationService) CleanupInactiveWorkers(ctx context.Context) error {
	s.logger.Info("Cleaning up inactive workers")

	if err := s.workerRepo.RemoveInactiveWorkers(ctx, s.now().Add(-inactiveCutoff)); err != nil {
		s.logger.Error("Failed to remove inactive workers", "error", err)
		return fmt.Errorf("failed to clean up inactive workers: %w", err)
	}

	return nil
}
