package reconcile

import (
	"context"

	"gitlab.com/judge-relay.net/internal/domain"
)

// Outcome describes what a reconciliation changed.
type Outcome struct {
	// Applied is false when the submission already carried a terminal
	// verdict and nothing was written.
	Applied    bool
	Credited   bool
	Submission *domain.Submission
	Owner      *domain.OwnerAggregate
}

// IReconciler applies a worker verdict to the ledger and the owner aggregate
// in one transaction.
type IReconciler interface {
	Reconcile(ctx context.Context, submissionID int64, verdict domain.Verdict, diag domain.Diagnostics) (*Outcome, error)
}
