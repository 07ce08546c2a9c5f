package dispatch

import (
	"context"

	"gitlab.com/judge-relay.net/internal/domain"
)

// IDispatcher hands tasks to the execution fleet. Dispatch never reports
// failure to the caller: the ledger row stays Pending and the failure is
// logged and counted.
type IDispatcher interface {
	Dispatch(ctx context.Context, class domain.TaskClass, payload domain.TaskPayload)
}
