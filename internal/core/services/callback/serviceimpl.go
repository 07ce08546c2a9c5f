package callback

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/core/services/reconcile"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

var _ ICallbackService = (*CallbackService)(nil)

type CallbackService struct {
	reconciler reconcile.IReconciler
	ephemeral  secondary.EphemeralResultStore
	publisher  secondary.ResultPublisher
	logger     primary.Logger
	now        func() time.Time
}

func NewCallbackService(
	reconciler reconcile.IReconciler,
	ephemeral secondary.EphemeralResultStore,
	publisher secondary.ResultPublisher,
	logger primary.Logger,
) *CallbackService {
	return &CallbackService{
		reconciler: reconciler,
		ephemeral:  ephemeral,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// HandleSubmit accepts ledger ids and, for ids that belong to a run job,
// falls through to the ephemeral store.
func (s *CallbackService) HandleSubmit(ctx context.Context, cb Callback) (*Result, error) {
	return s.route(ctx, domain.TaskClassSubmit, cb)
}

func (s *CallbackService) HandleRun(ctx context.Context, cb Callback) (*Result, error) {
	return s.route(ctx, domain.TaskClassRun, cb)
}

func (s *CallbackService) HandleReference(ctx context.Context, cb Callback) (*Result, error) {
	return s.route(ctx, domain.TaskClassReference, cb)
}

func (s *CallbackService) Handle(ctx context.Context, cb Callback) (*Result, error) {
	return s.route(ctx, "", cb)
}

func (s *CallbackService) route(ctx context.Context, endpoint domain.TaskClass, cb Callback) (*Result, error) {
	ref, err := domain.ParseJobRef(cb.JobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrJobNotFound, err)
	}

	verdict, err := domain.ParseVerdict(cb.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrValidation, err)
	}

	if ref.IsLedger() {
		if endpoint != "" && endpoint != domain.TaskClassSubmit {
			return nil, errs.Validation("%s callback carries submission id %s", endpoint, ref)
		}
		return s.reconcile(ctx, ref, verdict, cb.Diagnostics)
	}

	if endpoint != "" && endpoint != domain.TaskClassSubmit && endpoint != ref.Class() {
		return nil, errs.Validation("%s callback carries %s job id %s", endpoint, ref.Class(), ref)
	}
	return s.storeEphemeral(ctx, ref, verdict, cb.Diagnostics)
}

func (s *CallbackService) reconcile(ctx context.Context, ref domain.JobRef, verdict domain.Verdict, diag domain.Diagnostics) (*Result, error) {
	outcome, err := s.reconciler.Reconcile(ctx, ref.LedgerID(), verdict, diag)
	if err != nil {
		return nil, err
	}

	result := &Result{JobID: ref.String(), Verdict: outcome.Submission.Verdict, Applied: outcome.Applied}
	if outcome.Applied {
		result.Delivered = s.publisher.Publish(domain.NewSubmitEvent(outcome.Submission, diag))
	}
	return result, nil
}

func (s *CallbackService) storeEphemeral(ctx context.Context, ref domain.JobRef, verdict domain.Verdict, diag domain.Diagnostics) (*Result, error) {
	if verdict == domain.VerdictPending {
		return nil, errs.Validation("verdict %q cannot conclude a run", verdict)
	}

	entry := &domain.EphemeralResult{
		JobID:          ref.String(),
		Class:          ref.Class(),
		Verdict:        verdict,
		Message:        diag.Message,
		FailedTestCase: diag.FailedTestCase,
		Output:         diag.Output,
		ExpectedOutput: diag.ExpectedOutput,
		UpdatedAt:      s.now(),
	}
	current, written, err := s.ephemeral.Conclude(ctx, entry)
	if err != nil {
		s.logger.Error("Failed to store run result", "jobId", entry.JobID, "error", err)
		return nil, fmt.Errorf("failed to store run result: %w", err)
	}
	if !written {
		s.logger.Info("Duplicate run result ignored", "jobId", entry.JobID, "current", current.Verdict, "received", verdict)
		return &Result{JobID: entry.JobID, Verdict: current.Verdict}, nil
	}

	s.logger.Info("Run result stored", "jobId", entry.JobID, "class", entry.Class, "verdict", verdict)
	delivered := s.publisher.Publish(domain.NewEphemeralEvent(entry))
	return &Result{JobID: entry.JobID, Verdict: verdict, Applied: true, Delivered: delivered}, nil
}
