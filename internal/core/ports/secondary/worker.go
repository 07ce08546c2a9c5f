package secondary

import (
	"context"
	"time"

	"gitlab.com/judge-relay.net/internal/domain"
)

type WorkerRepository interface {
	// SaveWorker saves worker information
	SaveWorker(ctx context.Context, worker *domain.WorkerInfo) error

	// GetWorker retrieves worker information by ID
	GetWorker(ctx context.Context, workerID string) (*domain.WorkerInfo, error)

	// GetWorkersByLanguage retrieves every registered worker for a language
	GetWorkersByLanguage(ctx context.Context, language string) ([]*domain.WorkerInfo, error)

	// UpdateWorkerHeartbeat updates a worker's heartbeat and load
	UpdateWorkerHeartbeat(ctx context.Context, workerID string, load int, time time.Time) error

	// AdjustLoad adds delta to the worker's current load, never going below zero
	AdjustLoad(ctx context.Context, workerID string, delta int) error

	// ReserveSlot atomically takes one unit of load if the worker has capacity
	ReserveSlot(ctx context.Context, workerID string) error

	// RemoveInactiveWorkers removes workers that haven't sent a heartbeat recently
	RemoveInactiveWorkers(ctx context.Context, cutoffTime time.Time) error

	// RemoveWorker drops a worker from the registry
	RemoveWorker(ctx context.Context, workerID string) error

	GetAllWorkers(ctx context.Context) ([]*domain.WorkerInfo, error)

	GetLanguages(ctx context.Context) ([]string, error)
}
