package callback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-relay.net/internal/adapter/logging"
	"gitlab.com/judge-relay.net/internal/adapter/memory"
	"gitlab.com/judge-relay.net/internal/core/services/polling"
	"gitlab.com/judge-relay.net/internal/core/services/reconcile"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/metrics"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []domain.ResultEvent
}

func (p *capturePublisher) Publish(ev domain.ResultEvent) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return 1
}

type fixture struct {
	svc       *CallbackService
	ledger    *memory.Ledger
	ephemeral *memory.EphemeralStore
	published *capturePublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := memory.NewLedger()
	ledger.PutProblem(domain.Problem{ID: 10, EventID: 1, Points: 100})
	ledger.PutOwner(domain.OwnerAggregate{Kind: domain.OwnerKindTeam, ID: 5, EventID: 1})
	ephemeral := memory.NewEphemeralStore(time.Minute, nil)
	pub := &capturePublisher{}
	rec := reconcile.NewReconciler(ledger, logging.NopLogger{}, metrics.NewUnregistered())

	return &fixture{
		svc:       NewCallbackService(rec, ephemeral, pub, logging.NopLogger{}),
		ledger:    ledger,
		ephemeral: ephemeral,
		published: pub,
	}
}

func (f *fixture) pending(t *testing.T) int64 {
	t.Helper()
	s := domain.NewPendingSubmission(domain.OwnerKindTeam, 5, &domain.Problem{ID: 10, EventID: 1}, "c", "cpp", time.Now())
	require.NoError(t, f.ledger.Create(context.Background(), s))
	return s.ID
}

func TestSubmitCallbackReconcilesAndPublishes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.pending(t)
	msg := "ok"

	res, err := f.svc.HandleSubmit(ctx, Callback{
		JobID:       domain.LedgerRef(id).String(),
		Status:      "accepted",
		Diagnostics: domain.Diagnostics{Message: &msg},
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, domain.VerdictAccepted, res.Verdict)

	require.Len(t, f.published.events, 1)
	ev := f.published.events[0]
	assert.Equal(t, "submit", ev.Type)
	assert.Equal(t, domain.LedgerRef(id).String(), ev.JobID)
	assert.Equal(t, "ok", *ev.Message)

	sub, _ := f.ledger.Get(ctx, id)
	assert.Equal(t, domain.VerdictAccepted, sub.Verdict)
}

func TestDuplicateSubmitCallbackPublishesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := domain.LedgerRef(f.pending(t)).String()

	_, err := f.svc.HandleSubmit(ctx, Callback{JobID: id, Status: "wrong_answer"})
	require.NoError(t, err)
	res, err := f.svc.HandleSubmit(ctx, Callback{JobID: id, Status: "wrong_answer"})
	require.NoError(t, err)

	assert.False(t, res.Applied)
	assert.Len(t, f.published.events, 1)
	owner, _ := f.ledger.GetOwner(ctx, domain.OwnerKindTeam, 5)
	assert.Equal(t, 1, owner.WrongSubmissions)
}

func TestSubmitCallbackWithEphemeralIDGoesToRunStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	out := "3\n"

	res, err := f.svc.HandleSubmit(ctx, Callback{JobID: "run_abc", Status: "executed_successfully", Diagnostics: domain.Diagnostics{Output: &out}})
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictExecuted, res.Verdict)

	stored, err := f.ephemeral.Get(ctx, "run_abc")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.TaskClassRun, stored.Class)
	assert.Equal(t, "3\n", *stored.Output)

	count, _ := f.ledger.CountStalePending(ctx, time.Now().Add(time.Hour))
	assert.Zero(t, count)
	require.Len(t, f.published.events, 1)
	assert.Equal(t, "run", f.published.events[0].Type)
}

func TestReferenceCallback(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.HandleReference(context.Background(), Callback{JobID: "ref_1", Status: "compilation_error"})
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictCompilationError, res.Verdict)
	assert.Equal(t, "reference", f.published.events[0].Type)
}

func TestRunCallbackRejectsLedgerID(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.HandleRun(context.Background(), Callback{JobID: domain.LedgerRef(f.pending(t)).String(), Status: "accepted"})
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Empty(t, f.published.events)
}

func TestRunCallbackRejectsReferenceID(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.HandleRun(context.Background(), Callback{JobID: "ref_1", Status: "accepted"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestCallbackErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.HandleSubmit(ctx, Callback{JobID: "999", Status: "accepted"})
	assert.ErrorIs(t, err, errs.ErrJobNotFound)

	_, err = f.svc.HandleSubmit(ctx, Callback{JobID: "garbage", Status: "accepted"})
	assert.ErrorIs(t, err, errs.ErrJobNotFound)

	_, err = f.svc.HandleSubmit(ctx, Callback{JobID: "1", Status: "maybe"})
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.ErrorIs(t, err, errs.ErrUnknownVerdict)

	assert.Empty(t, f.published.events)
}

func TestDuplicateRunCallbackIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.HandleRun(ctx, Callback{JobID: "run_a", Status: "failed"})
	require.NoError(t, err)
	res, err := f.svc.HandleRun(ctx, Callback{JobID: "run_a", Status: "executed_successfully"})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, domain.VerdictFailed, res.Verdict)
	assert.Len(t, f.published.events, 1)
}

func TestReferenceFailureKeepsFailedTestCase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	failed, expected := "3", "42\n"

	res, err := f.svc.HandleReference(ctx, Callback{
		JobID:  "ref_x",
		Status: "wrong answer",
		Diagnostics: domain.Diagnostics{
			FailedTestCase: &failed,
			ExpectedOutput: &expected,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictWrongAnswer, res.Verdict)

	require.Len(t, f.published.events, 1)
	ev := f.published.events[0]
	assert.Equal(t, "reference", ev.Type)
	require.NotNil(t, ev.FailedTestCase)
	assert.Equal(t, "3", *ev.FailedTestCase)

	view, err := polling.NewPollingGateway(f.ledger, f.ephemeral, logging.NopLogger{}).GetStatus(ctx, "ref_x")
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictWrongAnswer, view.Verdict)
	require.NotNil(t, view.FailedTestCase)
	assert.Equal(t, "3", *view.FailedTestCase)
	require.NotNil(t, view.ExpectedOutput)
	assert.Equal(t, expected, *view.ExpectedOutput)
}

func TestConcurrentRunCallbacksPublishOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.ephemeral.Put(ctx, &domain.EphemeralResult{JobID: "run_c", Class: domain.TaskClassRun, Verdict: domain.VerdictPending}))

	statuses := []string{"executed_successfully", "failed", "runtime error", "executed_successfully", "failed", "wrong answer"}
	var wg sync.WaitGroup
	for _, status := range statuses {
		wg.Add(1)
		go func(status string) {
			defer wg.Done()
			_, err := f.svc.HandleRun(ctx, Callback{JobID: "run_c", Status: status})
			assert.NoError(t, err)
		}(status)
	}
	wg.Wait()

	require.Len(t, f.published.events, 1)
	stored, err := f.ephemeral.Get(ctx, "run_c")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, f.published.events[0].Verdict, stored.Verdict)
}
