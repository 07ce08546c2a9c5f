package polling

import (
	"context"

	"gitlab.com/judge-relay.net/internal/domain"
)

// IPollingGateway reports the materialised status of a job. It never
// triggers work.
type IPollingGateway interface {
	GetStatus(ctx context.Context, jobID string) (*domain.StatusView, error)
}
