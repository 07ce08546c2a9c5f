package callback

import (
	"context"

	"gitlab.com/judge-relay.net/internal/domain"
)

// Callback is a verdict report from the execution fleet.
type Callback struct {
	JobID       string
	Status      string
	Diagnostics domain.Diagnostics
}

// Result tells the caller what happened to the callback.
type Result struct {
	JobID     string
	Verdict   domain.Verdict
	Applied   bool
	Delivered int
}

// ICallbackService routes verdict callbacks by job id shape: ledger ids are
// reconciled, ephemeral ids are written to the short-lived result store.
type ICallbackService interface {
	HandleSubmit(ctx context.Context, cb Callback) (*Result, error)
	HandleRun(ctx context.Context, cb Callback) (*Result, error)
	HandleReference(ctx context.Context, cb Callback) (*Result, error)
	// Handle routes a callback whose class is implied by its job id alone.
	Handle(ctx context.Context, cb Callback) (*Result, error)
}
