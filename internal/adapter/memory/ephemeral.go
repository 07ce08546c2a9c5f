package memory

import (
	"context"
	"sync"
	"time"

	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
)

var _ secondary.EphemeralResultStore = (*EphemeralStore)(nil)

type ephemeralEntry struct {
	result    domain.EphemeralResult
	expiresAt time.Time
}

// EphemeralStore is a TTL map of run results.
type EphemeralStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]ephemeralEntry
}

func NewEphemeralStore(ttl time.Duration, now func() time.Time) *EphemeralStore {
	if now == nil {
		now = time.Now
	}
	return &EphemeralStore{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]ephemeralEntry),
	}
}

func (s *EphemeralStore) Put(ctx context.Context, result *domain.EphemeralResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[result.JobID] = ephemeralEntry{result: *result, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *EphemeralStore) Get(ctx context.Context, jobID string) (*domain.EphemeralResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[jobID]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.entries, jobID)
		return nil, nil
	}
	result := entry.result
	return &result, nil
}

func (s *EphemeralStore) Conclude(ctx context.Context, result *domain.EphemeralResult) (*domain.EphemeralResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.entries[result.JobID]; ok && now.Before(entry.expiresAt) && entry.result.Verdict.IsTerminal() {
		existing := entry.result
		return &existing, false, nil
	}
	s.entries[result.JobID] = ephemeralEntry{result: *result, expiresAt: now.Add(s.ttl)}
	stored := *result
	return &stored, true, nil
}
