package workerport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

var _ secondary.WorkerRepository = (*WorkerRepository)(nil)

const (
	workerKeyPrefix      = "worker:info:"
	workerLanguagePrefix = "worker:lang:"
	workerExpiration     = 5 * time.Minute
	adjustLoadRetries    = 5
)

// WorkerRepository implements the WorkerRepository interface with Redis
type WorkerRepository struct {
	redisClient *redis.Client
	logger      primary.Logger
}

// NewWorkerRepository creates a new Redis worker repository
func NewWorkerRepository(redisClient *redis.Client, logger primary.Logger) *WorkerRepository {
	return &WorkerRepository{
		redisClient: redisClient,
		logger:      logger,
	}
}

func workerKey(workerID string) string {
	return workerKeyPrefix + workerID
}

func languageKey(language string) string {
	return workerLanguagePrefix + language
}

// SaveWorker saves worker information to Redis
func (r *WorkerRepository) SaveWorker(ctx context.Context, worker *domain.WorkerInfo) error {
	workerJSON, err := json.Marshal(worker)
	if err != nil {
		r.logger.Error("Failed to marshal worker info", "error", err)
		return fmt.Errorf("failed to marshal worker info: %w", err)
	}

	if err := r.redisClient.Set(ctx, workerKey(worker.ID), workerJSON, workerExpiration).Err(); err != nil {
		r.logger.Error("Failed to save worker info", "error", err)
		return fmt.Errorf("failed to save worker info: %w", err)
	}

	if err := r.redisClient.SAdd(ctx, languageKey(worker.Language), worker.ID).Err(); err != nil {
		r.logger.Error("Failed to add worker to language index", "error", err)
		return fmt.Errorf("failed to add worker to language index: %w", err)
	}

	return nil
}

// GetWorker retrieves worker information from Redis by ID
func (r *WorkerRepository) GetWorker(ctx context.Context, workerID string) (*domain.WorkerInfo, error) {
	workerJSON, err := r.redisClient.Get(ctx, workerKey(workerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		r.logger.Error("Failed to get worker info", "error", err)
		return nil, fmt.Errorf("failed to get worker info: %w", err)
	}

	var worker domain.WorkerInfo
	if err := json.Unmarshal(workerJSON, &worker); err != nil {
		r.logger.Error("Failed to unmarshal worker info", "error", err)
		return nil, fmt.Errorf("failed to unmarshal worker info: %w", err)
	}

	return &worker, nil
}

// GetWorkersByLanguage resolves the language index to worker records. Index
// entries whose record expired are skipped.
func (r *WorkerRepository) GetWorkersByLanguage(ctx context.Context, language string) ([]*domain.WorkerInfo, error) {
	workerIDs, err := r.redisClient.SMembers(ctx, languageKey(language)).Result()
	if err != nil {
		r.logger.Error("Failed to get worker IDs", "error", err)
		return nil, fmt.Errorf("failed to get worker IDs: %w", err)
	}
	if len(workerIDs) == 0 {
		return []*domain.WorkerInfo{}, nil
	}

	keys := make([]string, 0, len(workerIDs))
	for _, id := range workerIDs {
		keys = append(keys, workerKey(id))
	}
	return r.loadWorkers(ctx, keys)
}

// GetAllWorkers retrieves all worker information from Redis.
func (r *WorkerRepository) GetAllWorkers(ctx context.Context) ([]*domain.WorkerInfo, error) {
	workerKeys, err := r.scan(ctx, workerKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan worker keys: %w", err)
	}
	if len(workerKeys) == 0 {
		return []*domain.WorkerInfo{}, nil
	}

	return r.loadWorkers(ctx, workerKeys)
}

func (r *WorkerRepository) GetLanguages(ctx context.Context) ([]string, error) {
	keys, err := r.scan(ctx, workerLanguagePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan language keys: %w", err)
	}

	languages := make([]string, 0, len(keys))
	for _, key := range keys {
		languages = append(languages, strings.TrimPrefix(key, workerLanguagePrefix))
	}
	sort.Strings(languages)
	return languages, nil
}

// UpdateWorkerHeartbeat updates a worker's heartbeat and load in Redis
func (r *WorkerRepository) UpdateWorkerHeartbeat(ctx context.Context, workerID string, load int, heartbeatTime time.Time) error {
	worker, err := r.GetWorker(ctx, workerID)
	if err != nil {
		return err
	}
	if worker == nil {
		return fmt.Errorf("worker not found: %s", workerID)
	}

	worker.CurrentLoad = load
	worker.LastHeartbeat = heartbeatTime

	return r.SaveWorker(ctx, worker)
}

// AdjustLoad changes the load under WATCH so concurrent assignments and
// results do not overwrite each other.
func (r *WorkerRepository) AdjustLoad(ctx context.Context, workerID string, delta int) error {
	return r.updateLoad(ctx, workerID, func(worker *domain.WorkerInfo) error {
		worker.CurrentLoad += delta
		if worker.CurrentLoad < 0 {
			worker.CurrentLoad = 0
		}
		return nil
	})
}

// ReserveSlot takes one unit of load in the same WATCH transaction that
// checks capacity. It fails with errs.ErrWorkerFull when none is left.
func (r *WorkerRepository) ReserveSlot(ctx context.Context, workerID string) error {
	return r.updateLoad(ctx, workerID, func(worker *domain.WorkerInfo) error {
		if !worker.HasCapacity() {
			return fmt.Errorf("%w: %s", errs.ErrWorkerFull, workerID)
		}
		worker.CurrentLoad++
		return nil
	})
}

func (r *WorkerRepository) updateLoad(ctx context.Context, workerID string, apply func(worker *domain.WorkerInfo) error) error {
	key := workerKey(workerID)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("worker not found: %s", workerID)
		}
		if err != nil {
			return err
		}

		var worker domain.WorkerInfo
		if err := json.Unmarshal(raw, &worker); err != nil {
			return fmt.Errorf("failed to unmarshal worker info: %w", err)
		}
		if err := apply(&worker); err != nil {
			return err
		}
		updated, err := json.Marshal(worker)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}

	for i := 0; i < adjustLoadRetries; i++ {
		err := r.redisClient.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("failed to adjust load of %s: too much contention", workerID)
}

func (r *WorkerRepository) RemoveWorker(ctx context.Context, workerID string) error {
	worker, err := r.GetWorker(ctx, workerID)
	if err != nil {
		return err
	}
	if err := r.redisClient.Del(ctx, workerKey(workerID)).Err(); err != nil {
		return fmt.Errorf("failed to delete worker: %w", err)
	}
	if worker != nil {
		if err := r.redisClient.SRem(ctx, languageKey(worker.Language), workerID).Err(); err != nil {
			return fmt.Errorf("failed to remove worker from language index: %w", err)
		}
	}
	return nil
}

// RemoveInactiveWorkers drops workers whose record expired or whose last
// heartbeat is older than cutoffTime.
func (r *WorkerRepository) RemoveInactiveWorkers(ctx context.Context, cutoffTime time.Time) error {
	languageKeys, err := r.scan(ctx, workerLanguagePrefix+"*")
	if err != nil {
		r.logger.Error("Failed to get worker language keys", "error", err)
		return fmt.Errorf("failed to get worker language keys: %w", err)
	}

	for _, langKey := range languageKeys {
		workerIDs, err := r.redisClient.SMembers(ctx, langKey).Result()
		if err != nil {
			r.logger.Error("Failed to get worker IDs", "languageKey", langKey, "error", err)
			continue
		}

		for _, workerID := range workerIDs {
			worker, err := r.GetWorker(ctx, workerID)
			if err != nil {
				r.logger.Error("Failed to check worker", "workerId", workerID, "error", err)
				continue
			}

			if worker != nil && !worker.LastHeartbeat.Before(cutoffTime) {
				continue
			}
			if err := r.redisClient.Del(ctx, workerKey(workerID)).Err(); err != nil {
				r.logger.Error("Failed to delete inactive worker", "workerId", workerID, "error", err)
				continue
			}
			if err := r.redisClient.SRem(ctx, langKey, workerID).Err(); err != nil {
				r.logger.Error("Failed to remove worker from language index", "workerId", workerID, "error", err)
				continue
			}
			r.logger.Info("Removed inactive worker", "workerId", workerID)
		}
	}

	return nil
}

func (r *WorkerRepository) scan(ctx context.Context, pattern string) ([]string, error) {
	var cursor uint64
	var out []string
	for {
		keys, next, err := r.redisClient.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		out = append(out, keys...)
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

func (r *WorkerRepository) loadWorkers(ctx context.Context, keys []string) ([]*domain.WorkerInfo, error) {
	workerData, err := r.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve worker data: %w", err)
	}

	workers := make([]*domain.WorkerInfo, 0, len(workerData))
	for _, data := range workerData {
		raw, ok := data.(string)
		if !ok {
			continue
		}
		var worker domain.WorkerInfo
		if err := json.Unmarshal([]byte(raw), &worker); err != nil {
			return nil, fmt.Errorf("failed to unmarshal worker data: %w", err)
		}
		workers = append(workers, &worker)
	}
	sort.Slice(workers, func(i, j int) bool { return workers[i].ID < workers[j].ID })
	return workers, nil
}
