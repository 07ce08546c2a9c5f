package worker

import (
	"context"

	"gitlab.com/judge-relay.net/internal/domain"
)

// IWorkerRegistrationService tracks the execution workers connected over TCP
type IWorkerRegistrationService interface {
	// RegisterWorker registers a worker as available for jobs
	RegisterWorker(ctx context.Context, workerInfo *domain.WorkerInfo) error

	// Heartbeat updates the worker's status and availability
	Heartbeat(ctx context.Context, workerID string, load int) error

	// GetAvailableWorkers gets live workers for a language that still have capacity
	GetAvailableWorkers(ctx context.Context, language string) ([]*domain.WorkerInfo, error)

	// GetAllWorkers gets all registered workers
	GetAllWorkers(ctx context.Context) ([]*domain.WorkerInfo, error)

	// GetLanguages gets every language some worker registered for
	GetLanguages(ctx context.Context) ([]string, error)

	// AdjustLoad records a job assigned to (+1) or finished by (-1) a worker
	AdjustLoad(ctx context.Context, workerID string, delta int) error

	// ReserveSlot books a job on a worker, failing with errs.ErrWorkerFull at capacity
	ReserveSlot(ctx context.Context, workerID string) error

	// Deregister removes a disconnected worker
	Deregister(ctx context.Context, workerID string) error

	// CleanupInactiveWorkers removes workers that haven't sent a heartbeat recently
	CleanupInactiveWorkers(ctx context.Context) error
}
