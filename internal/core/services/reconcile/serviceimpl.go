package reconcile

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/metrics"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

var _ IReconciler = (*Reconciler)(nil)

type Reconciler struct {
	store   secondary.LedgerStore
	logger  primary.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewReconciler(store secondary.LedgerStore, logger primary.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		store:   store,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// WithClock replaces the reconciliation clock used for first-solve and
// judged-at stamps.
func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

func (r *Reconciler) Reconcile(ctx context.Context, submissionID int64, verdict domain.Verdict, diag domain.Diagnostics) (*Outcome, error) {
	if !verdict.IsJudged() {
		return nil, errs.Validation("verdict %q cannot conclude a submission", verdict)
	}

	var outcome *Outcome
	err := r.store.WithinTx(ctx, func(ctx context.Context, tx secondary.LedgerTx) error {
		submission, err := tx.LockSubmission(ctx, submissionID)
		if err != nil {
			return fmt.Errorf("failed to lock submission: %w", err)
		}
		if submission == nil {
			return fmt.Errorf("%w: %d", errs.ErrJobNotFound, submissionID)
		}

		if submission.Verdict.IsTerminal() {
			outcome = &Outcome{Applied: false, Submission: submission}
			return nil
		}

		owner, err := tx.LockOwner(ctx, submission.OwnerKind, submission.OwnerID)
		if err != nil {
			return fmt.Errorf("failed to lock owner: %w", err)
		}
		if owner == nil {
			return fmt.Errorf("owner %s/%d of submission %d does not exist", submission.OwnerKind, submission.OwnerID, submissionID)
		}
		owner.Kind = submission.OwnerKind

		points, err := tx.ProblemPoints(ctx, submission.ProblemID)
		if err != nil {
			return fmt.Errorf("failed to read problem points: %w", err)
		}

		// must be read before this submission's verdict is written
		alreadySolved, err := tx.HasAcceptedExcluding(ctx, submission.OwnerKind, submission.OwnerID, submission.ProblemID, submission.ID)
		if err != nil {
			return fmt.Errorf("failed to check prior accepted submission: %w", err)
		}

		now := r.now()
		credited := owner.ApplyVerdict(verdict, points, alreadySolved, now)
		submission.ApplyVerdict(verdict, diag, now)

		if err := tx.SaveOwner(ctx, owner); err != nil {
			return fmt.Errorf("failed to save owner: %w", err)
		}
		if err := tx.SaveVerdict(ctx, submission); err != nil {
			return fmt.Errorf("failed to save verdict: %w", err)
		}

		outcome = &Outcome{Applied: true, Credited: credited, Submission: submission, Owner: owner}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to reconcile verdict", "submissionId", submissionID, "verdict", verdict, "error", err)
		r.metrics.ReconcileTotal.WithLabelValues(failureLabel(err)).Inc()
		return nil, err
	}

	r.metrics.ReconcileTotal.WithLabelValues(outcomeLabel(outcome)).Inc()
	if !outcome.Applied {
		r.logger.Info("Duplicate verdict ignored", "submissionId", submissionID, "current", outcome.Submission.Verdict, "received", verdict)
		return outcome, nil
	}

	r.logger.Info("Verdict reconciled",
		"submissionId", submissionID,
		"verdict", verdict,
		"owner", outcome.Owner.ID,
		"credited", outcome.Credited,
		"score", outcome.Owner.Score)
	return outcome, nil
}

func outcomeLabel(o *Outcome) string {
	switch {
	case !o.Applied:
		return "duplicate"
	case o.Credited:
		return "credited"
	case o.Submission.Verdict.IsAccepted():
		return "accepted_repeat"
	default:
		return "wrong"
	}
}

func failureLabel(err error) string {
	if errs.IsNotFound(err) {
		return "not_found"
	}
	return "failed"
}
