package secondary

import (
	"context"

	"gitlab.com/judge-relay.net/internal/domain"
)

// EphemeralResultStore keeps run results for a bounded time. Get returns
// nil, nil once the entry has expired.
type EphemeralResultStore interface {
	Put(ctx context.Context, result *domain.EphemeralResult) error
	Get(ctx context.Context, jobID string) (*domain.EphemeralResult, error)
	// Conclude writes a terminal result unless the job already holds one, as
	// one atomic step. It returns the entry in effect afterwards and whether
	// this call wrote it.
	Conclude(ctx context.Context, result *domain.EphemeralResult) (*domain.EphemeralResult, bool, error)
}
