package ephemeralstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
)

var _ secondary.EphemeralResultStore = (*Store)(nil)

const (
	resultKeyPrefix = "run_result:"
	defaultTTL      = 10 * time.Minute
	concludeRetries = 5
)

// Store keeps run results in Redis under run_result:<job id> with a TTL.
type Store struct {
	redisClient *redis.Client
	ttl         time.Duration
	logger      primary.Logger
}

func NewStore(redisClient *redis.Client, ttl time.Duration, logger primary.Logger) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{
		redisClient: redisClient,
		ttl:         ttl,
		logger:      logger,
	}
}

func resultKey(jobID string) string {
	return resultKeyPrefix + jobID
}

func (s *Store) Put(ctx context.Context, result *domain.EphemeralResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal run result: %w", err)
	}

	if err := s.redisClient.Set(ctx, resultKey(result.JobID), data, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to save run result", "jobId", result.JobID, "error", err)
		return fmt.Errorf("failed to save run result: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, jobID string) (*domain.EphemeralResult, error) {
	data, err := s.redisClient.Get(ctx, resultKey(jobID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		s.logger.Error("Failed to get run result", "jobId", jobID, "error", err)
		return nil, fmt.Errorf("failed to get run result: %w", err)
	}

	var result domain.EphemeralResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run result: %w", err)
	}
	return &result, nil
}

// Conclude runs the terminal check and the write under WATCH so two
// concurrent results for one job cannot both be stored.
func (s *Store) Conclude(ctx context.Context, result *domain.EphemeralResult) (*domain.EphemeralResult, bool, error) {
	key := resultKey(result.JobID)
	data, err := json.Marshal(result)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal run result: %w", err)
	}

	var current *domain.EphemeralResult
	written := false
	txf := func(tx *redis.Tx) error {
		current, written = nil, false
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			var existing domain.EphemeralResult
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("failed to unmarshal run result: %w", err)
			}
			if existing.Verdict.IsTerminal() {
				current = &existing
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		if err == nil {
			current, written = result, true
		}
		return err
	}

	for i := 0; i < concludeRetries; i++ {
		err := s.redisClient.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			s.logger.Error("Failed to conclude run result", "jobId", result.JobID, "error", err)
			return nil, false, fmt.Errorf("failed to save run result: %w", err)
		}
		return current, written, nil
	}
	return nil, false, fmt.Errorf("failed to save run result %s: too much contention", result.JobID)
}
