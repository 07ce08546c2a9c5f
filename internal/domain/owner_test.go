package domain

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyVerdictWrongThenAccepted(t *testing.T) {
	owner := &OwnerAggregate{Kind: OwnerKindTeam, ID: 1}
	t1 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	assert.False(t, owner.ApplyVerdict(VerdictWrongAnswer, 100, false, t1))
	assert.True(t, owner.ApplyVerdict(VerdictAccepted, 100, false, t2))

	assert.Equal(t, 100, owner.Score)
	assert.Equal(t, 1, owner.CorrectSubmissions)
	assert.Equal(t, 1, owner.WrongSubmissions)
	require.NotNil(t, owner.FirstSolveAt)
	assert.Equal(t, t2, *owner.FirstSolveAt)
}

func TestApplyVerdictRepeatAcceptDoesNotCredit(t *testing.T) {
	first := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	owner := &OwnerAggregate{Score: 100, CorrectSubmissions: 1, FirstSolveAt: &first}

	assert.False(t, owner.ApplyVerdict(VerdictAccepted, 100, true, first.Add(time.Hour)))
	assert.Equal(t, 100, owner.Score)
	assert.Equal(t, 1, owner.CorrectSubmissions)
	assert.Equal(t, first, *owner.FirstSolveAt)
}

func TestApplyVerdictWrongAfterSolved(t *testing.T) {
	owner := &OwnerAggregate{Score: 100, CorrectSubmissions: 1}
	owner.ApplyVerdict(VerdictTimeLimitExceeded, 100, true, time.Now())
	assert.Equal(t, 100, owner.Score)
	assert.Equal(t, 1, owner.WrongSubmissions)
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, "0.00", (&OwnerAggregate{}).Accuracy())
	assert.Equal(t, "66.67", (&OwnerAggregate{CorrectSubmissions: 2, WrongSubmissions: 1}).Accuracy())
}

func TestRanksBefore(t *testing.T) {
	early := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	owners := []*OwnerAggregate{
		{ID: 1, Score: 100, FirstSolveAt: &late},
		{ID: 2, Score: 200, FirstSolveAt: &late},
		{ID: 3, Score: 100, FirstSolveAt: &early, WrongSubmissions: 4},
		{ID: 4, Score: 0},
		{ID: 5, Score: 100, FirstSolveAt: &early, WrongSubmissions: 1},
	}
	sort.SliceStable(owners, func(i, j int) bool { return owners[i].RanksBefore(owners[j]) })

	var ids []int64
	for _, o := range owners {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []int64{2, 5, 3, 1, 4}, ids)
}
