package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-relay.net/internal/adapter/logging"
	"gitlab.com/judge-relay.net/internal/adapter/memory"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/metrics"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

const teamID = 5

var (
	t0      = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	problem = domain.Problem{ID: 10, EventID: 1, Points: 100}
)

type fixture struct {
	ledger     *memory.Ledger
	reconciler *Reconciler
	metrics    *metrics.Metrics
	clock      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{ledger: memory.NewLedger(), metrics: metrics.NewUnregistered(), clock: t0}
	f.ledger.PutProblem(problem)
	f.ledger.PutProblem(domain.Problem{ID: 11, EventID: 1, Points: 250})
	f.ledger.PutOwner(domain.OwnerAggregate{Kind: domain.OwnerKindTeam, ID: teamID, EventID: 1})
	f.reconciler = NewReconciler(f.ledger, logging.NopLogger{}, f.metrics).
		WithClock(func() time.Time { return f.clock })
	return f
}

func (f *fixture) submit(t *testing.T, problemID int64) int64 {
	t.Helper()
	s := domain.NewPendingSubmission(domain.OwnerKindTeam, teamID, &domain.Problem{ID: problemID, EventID: 1}, "code", "python", t0)
	require.NoError(t, f.ledger.Create(context.Background(), s))
	return s.ID
}

func (f *fixture) owner(t *testing.T) *domain.OwnerAggregate {
	t.Helper()
	o, err := f.ledger.GetOwner(context.Background(), domain.OwnerKindTeam, teamID)
	require.NoError(t, err)
	return o
}

func strPtr(s string) *string { return &s }

func TestWrongThenAccepted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s1 := f.submit(t, 10)
	s2 := f.submit(t, 10)

	_, err := f.reconciler.Reconcile(ctx, s1, domain.VerdictWrongAnswer, domain.Diagnostics{FailedTestCase: strPtr("3")})
	require.NoError(t, err)

	f.clock = t0.Add(5 * time.Minute)
	out, err := f.reconciler.Reconcile(ctx, s2, domain.VerdictAccepted, domain.Diagnostics{})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.True(t, out.Credited)

	owner := f.owner(t)
	assert.Equal(t, 100, owner.Score)
	assert.Equal(t, 1, owner.CorrectSubmissions)
	assert.Equal(t, 1, owner.WrongSubmissions)
	require.NotNil(t, owner.FirstSolveAt)
	assert.Equal(t, t0.Add(5*time.Minute), *owner.FirstSolveAt)

	sub, _ := f.ledger.Get(ctx, s1)
	assert.Equal(t, domain.VerdictWrongAnswer, sub.Verdict)
	assert.Equal(t, "3", *sub.FailedTestCase)
	require.NotNil(t, sub.JudgedAt)
}

func TestDuplicateCallbackIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.submit(t, 10)

	_, err := f.reconciler.Reconcile(ctx, s, domain.VerdictAccepted, domain.Diagnostics{})
	require.NoError(t, err)
	out, err := f.reconciler.Reconcile(ctx, s, domain.VerdictAccepted, domain.Diagnostics{})
	require.NoError(t, err)
	assert.False(t, out.Applied)

	// a late contradictory verdict is also ignored
	_, err = f.reconciler.Reconcile(ctx, s, domain.VerdictWrongAnswer, domain.Diagnostics{})
	require.NoError(t, err)

	owner := f.owner(t)
	assert.Equal(t, 100, owner.Score)
	assert.Equal(t, 1, owner.CorrectSubmissions)
	assert.Equal(t, 0, owner.WrongSubmissions)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.ReconcileTotal.WithLabelValues("duplicate")))
}

func TestSecondAcceptedSubmissionDoesNotCredit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s1 := f.submit(t, 10)
	s2 := f.submit(t, 10)

	_, err := f.reconciler.Reconcile(ctx, s1, domain.VerdictAccepted, domain.Diagnostics{})
	require.NoError(t, err)
	f.clock = t0.Add(time.Hour)
	out, err := f.reconciler.Reconcile(ctx, s2, domain.VerdictAccepted, domain.Diagnostics{})
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.False(t, out.Credited)

	owner := f.owner(t)
	assert.Equal(t, 100, owner.Score)
	assert.Equal(t, 1, owner.CorrectSubmissions)
	assert.Equal(t, t0, *owner.FirstSolveAt)
}

func TestScoreIsSumOfDistinctSolvedProblems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, p := range []int64{10, 11, 10, 11} {
		_, err := f.reconciler.Reconcile(ctx, f.submit(t, p), domain.VerdictAccepted, domain.Diagnostics{})
		require.NoError(t, err)
	}

	owner := f.owner(t)
	assert.Equal(t, 350, owner.Score)
	assert.Equal(t, 2, owner.CorrectSubmissions)
}

func TestWrongAfterSolvedOnlyCountsWrong(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.reconciler.Reconcile(ctx, f.submit(t, 10), domain.VerdictAccepted, domain.Diagnostics{})
	require.NoError(t, err)
	_, err = f.reconciler.Reconcile(ctx, f.submit(t, 10), domain.VerdictRuntimeError, domain.Diagnostics{})
	require.NoError(t, err)

	owner := f.owner(t)
	assert.Equal(t, 100, owner.Score)
	assert.Equal(t, 1, owner.WrongSubmissions)
}

func TestUnknownSubmission(t *testing.T) {
	f := newFixture(t)
	_, err := f.reconciler.Reconcile(context.Background(), 999, domain.VerdictAccepted, domain.Diagnostics{})
	assert.ErrorIs(t, err, errs.ErrJobNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReconcileTotal.WithLabelValues("not_found")))
}

func TestPendingVerdictRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.reconciler.Reconcile(context.Background(), f.submit(t, 10), domain.VerdictPending, domain.Diagnostics{})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

type failingStore struct {
	inner secondary.LedgerStore
	err   error
}

func (s failingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx secondary.LedgerTx) error) error {
	return s.inner.WithinTx(ctx, func(ctx context.Context, tx secondary.LedgerTx) error {
		return fn(ctx, failingTx{LedgerTx: tx, err: s.err})
	})
}

type failingTx struct {
	secondary.LedgerTx
	err error
}

func (t failingTx) SaveVerdict(ctx context.Context, s *domain.Submission) error {
	return t.err
}

func TestFailureRollsBackOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.submit(t, 10)
	boom := errors.New("disk full")
	r := NewReconciler(failingStore{inner: f.ledger, err: boom}, logging.NopLogger{}, f.metrics)

	_, err := r.Reconcile(ctx, s, domain.VerdictAccepted, domain.Diagnostics{})
	require.ErrorIs(t, err, boom)

	owner := f.owner(t)
	assert.Equal(t, 0, owner.Score)
	assert.Nil(t, owner.FirstSolveAt)
	sub, _ := f.ledger.Get(ctx, s)
	assert.Equal(t, domain.VerdictPending, sub.Verdict)

	// the retried callback succeeds once the store recovers
	out, err := f.reconciler.Reconcile(ctx, s, domain.VerdictAccepted, domain.Diagnostics{})
	require.NoError(t, err)
	assert.True(t, out.Credited)
}

func TestConcurrentAcceptedSubmissionsCreditOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ids := make([]int64, 8)
	for i := range ids {
		ids[i] = f.submit(t, 10)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := f.reconciler.Reconcile(ctx, id, domain.VerdictAccepted, domain.Diagnostics{})
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	owner := f.owner(t)
	assert.Equal(t, 100, owner.Score)
	assert.Equal(t, 1, owner.CorrectSubmissions)
}
