package secondary

import (
	"context"
	"time"

	"gitlab.com/judge-relay.net/internal/domain"
)

// SubmissionRepository reads and creates ledger rows. Lookups return nil, nil
// when the row does not exist.
type SubmissionRepository interface {
	// Create inserts s and fills in its ID
	Create(ctx context.Context, s *domain.Submission) error

	Get(ctx context.Context, id int64) (*domain.Submission, error)

	// ListByOwner returns the owner's submissions, newest first
	ListByOwner(ctx context.Context, kind domain.OwnerKind, ownerID int64, limit int) ([]*domain.Submission, error)

	// CountStalePending counts submissions still Pending that were submitted before the cutoff
	CountStalePending(ctx context.Context, before time.Time) (int, error)

	// ListSolved returns each distinct (owner, problem) pair with an Accepted
	// submission in the event
	ListSolved(ctx context.Context, kind domain.OwnerKind, eventID int64) ([]domain.SolvedProblem, error)
}

// LedgerStore runs verdict reconciliation atomically.
type LedgerStore interface {
	// WithinTx runs fn in one transaction. The transaction commits only when fn
	// returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// LedgerTx is the set of operations available inside WithinTx. Lock methods
// hold the row until the transaction ends and return nil, nil when absent.
type LedgerTx interface {
	LockSubmission(ctx context.Context, id int64) (*domain.Submission, error)
	LockOwner(ctx context.Context, kind domain.OwnerKind, id int64) (*domain.OwnerAggregate, error)
	// ProblemPoints returns the points of the problem, or ErrProblemNotFound
	ProblemPoints(ctx context.Context, problemID int64) (int, error)
	HasAcceptedExcluding(ctx context.Context, kind domain.OwnerKind, ownerID, problemID, excludeID int64) (bool, error)
	SaveOwner(ctx context.Context, owner *domain.OwnerAggregate) error
	SaveVerdict(ctx context.Context, s *domain.Submission) error
}
