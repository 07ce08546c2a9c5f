package secondary

import (
	"context"

	"gitlab.com/judge-relay.net/internal/domain"
)

// TaskBackend hands an encoded task to the execution fleet.
type TaskBackend interface {
	Name() string
	Enqueue(ctx context.Context, class domain.TaskClass, payload domain.TaskPayload) error
}

// ResultPublisher fans a result event out to live subscribers and returns
// the number of deliveries.
type ResultPublisher interface {
	Publish(ev domain.ResultEvent) int
}
