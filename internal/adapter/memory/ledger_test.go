package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
)

func seed(t *testing.T) (*Ledger, *domain.Submission) {
	t.Helper()
	l := NewLedger()
	l.PutProblem(domain.Problem{ID: 10, EventID: 1, Points: 100})
	l.PutOwner(domain.OwnerAggregate{Kind: domain.OwnerKindTeam, ID: 5, EventID: 1})

	s := domain.NewPendingSubmission(domain.OwnerKindTeam, 5, &domain.Problem{ID: 10, EventID: 1}, "code", "python", time.Now())
	require.NoError(t, l.Create(context.Background(), s))
	return l, s
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	l, s := seed(t)

	err := l.WithinTx(ctx, func(ctx context.Context, tx secondary.LedgerTx) error {
		sub, err := tx.LockSubmission(ctx, s.ID)
		require.NoError(t, err)
		sub.Verdict = domain.VerdictAccepted
		require.NoError(t, tx.SaveVerdict(ctx, sub))

		owner, err := tx.LockOwner(ctx, domain.OwnerKindTeam, 5)
		require.NoError(t, err)
		owner.Score = 100
		return tx.SaveOwner(ctx, owner)
	})
	require.NoError(t, err)

	got, _ := l.Get(ctx, s.ID)
	assert.Equal(t, domain.VerdictAccepted, got.Verdict)
	owner, _ := l.GetOwner(ctx, domain.OwnerKindTeam, 5)
	assert.Equal(t, 100, owner.Score)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	l, s := seed(t)
	boom := errors.New("boom")

	err := l.WithinTx(ctx, func(ctx context.Context, tx secondary.LedgerTx) error {
		owner, _ := tx.LockOwner(ctx, domain.OwnerKindTeam, 5)
		owner.Score = 100
		require.NoError(t, tx.SaveOwner(ctx, owner))
		return boom
	})
	require.ErrorIs(t, err, boom)

	owner, _ := l.GetOwner(ctx, domain.OwnerKindTeam, 5)
	assert.Equal(t, 0, owner.Score)
	got, _ := l.Get(ctx, s.ID)
	assert.Equal(t, domain.VerdictPending, got.Verdict)
}

func TestListByOwnerNewestFirst(t *testing.T) {
	ctx := context.Background()
	l, first := seed(t)
	second := domain.NewPendingSubmission(domain.OwnerKindTeam, 5, &domain.Problem{ID: 10, EventID: 1}, "x", "cpp", time.Now())
	require.NoError(t, l.Create(ctx, second))

	list, err := l.ListByOwner(ctx, domain.OwnerKindTeam, 5, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	missing, err := l.Get(ctx, 999)
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEphemeralStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewEphemeralStore(time.Minute, func() time.Time { return now })

	require.NoError(t, store.Put(ctx, &domain.EphemeralResult{JobID: "run_1", Verdict: domain.VerdictPending}))
	got, err := store.Get(ctx, "run_1")
	require.NoError(t, err)
	require.NotNil(t, got)

	now = now.Add(time.Minute)
	got, err = store.Get(ctx, "run_1")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestEphemeralConcludeAfterExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewEphemeralStore(time.Minute, func() time.Time { return now })

	_, written, err := store.Conclude(ctx, &domain.EphemeralResult{JobID: "run_1", Verdict: domain.VerdictFailed})
	require.NoError(t, err)
	assert.True(t, written)

	current, written, err := store.Conclude(ctx, &domain.EphemeralResult{JobID: "run_1", Verdict: domain.VerdictExecuted})
	require.NoError(t, err)
	assert.False(t, written)
	assert.Equal(t, domain.VerdictFailed, current.Verdict)

	now = now.Add(2 * time.Minute)
	_, written, err = store.Conclude(ctx, &domain.EphemeralResult{JobID: "run_1", Verdict: domain.VerdictExecuted})
	require.NoError(t, err)
	assert.True(t, written)
}
