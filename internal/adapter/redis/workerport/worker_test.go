package workerport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-relay.net/internal/adapter/logging"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

func newRepo(t *testing.T) (*WorkerRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWorkerRepository(client, logging.NopLogger{}), mr
}

func TestSaveAndQueryByLanguage(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerInfo{ID: "w1", Language: "python", Capacity: 4, LastHeartbeat: now}))
	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerInfo{ID: "w2", Language: "cpp", Capacity: 2, LastHeartbeat: now}))
	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerInfo{ID: "w3", Language: "python", Capacity: 1, LastHeartbeat: now}))

	python, err := repo.GetWorkersByLanguage(ctx, "python")
	require.NoError(t, err)
	require.Len(t, python, 2)
	assert.Equal(t, "w1", python[0].ID)
	assert.Equal(t, "w3", python[1].ID)

	all, err := repo.GetAllWorkers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	languages, err := repo.GetLanguages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cpp", "python"}, languages)

	none, err := repo.GetWorkersByLanguage(ctx, "java")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAdjustLoadNeverNegative(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRepo(t)
	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerInfo{ID: "w1", Language: "python", Capacity: 4}))

	require.NoError(t, repo.AdjustLoad(ctx, "w1", 1))
	require.NoError(t, repo.AdjustLoad(ctx, "w1", 1))
	w, err := repo.GetWorker(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 2, w.CurrentLoad)
	assert.Greater(t, mr.TTL(workerKey("w1")), time.Duration(0))

	require.NoError(t, repo.AdjustLoad(ctx, "w1", -5))
	w, _ = repo.GetWorker(ctx, "w1")
	assert.Equal(t, 0, w.CurrentLoad)

	assert.Error(t, repo.AdjustLoad(ctx, "ghost", 1))
}

func TestExpiredWorkersDropOut(t *testing.T) {
	ctx := context.Background()
	repo, mr := newRepo(t)
	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerInfo{ID: "w1", Language: "python", Capacity: 1, LastHeartbeat: time.Now()}))

	mr.FastForward(workerExpiration + time.Second)

	workers, err := repo.GetWorkersByLanguage(ctx, "python")
	require.NoError(t, err)
	assert.Empty(t, workers)

	require.NoError(t, repo.RemoveInactiveWorkers(ctx, time.Now()))
	members, err := mr.SMembers(languageKey("python"))
	if err == nil {
		assert.Empty(t, members)
	}
}

func TestRemoveInactiveWorkersByHeartbeat(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	now := time.Now()
	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerInfo{ID: "old", Language: "cpp", Capacity: 1, LastHeartbeat: now.Add(-10 * time.Minute)}))
	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerInfo{ID: "fresh", Language: "cpp", Capacity: 1, LastHeartbeat: now}))

	require.NoError(t, repo.RemoveInactiveWorkers(ctx, now.Add(-5*time.Minute)))

	workers, err := repo.GetWorkersByLanguage(ctx, "cpp")
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "fresh", workers[0].ID)
}

func TestRemoveWorker(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerInfo{ID: "w1", Language: "java", Capacity: 1}))

	require.NoError(t, repo.RemoveWorker(ctx, "w1"))
	w, err := repo.GetWorker(ctx, "w1")
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestReserveSlotStopsAtCapacity(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	require.NoError(t, repo.SaveWorker(ctx, &domain.WorkerInfo{ID: "w1", Language: "python", Capacity: 3, LastHeartbeat: time.Now()}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	reserved, full := 0, 0
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.ReserveSlot(ctx, "w1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				reserved++
			case errors.Is(err, errs.ErrWorkerFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, reserved)
	assert.Equal(t, 3, full)
	w, err := repo.GetWorker(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 3, w.CurrentLoad)

	require.NoError(t, repo.AdjustLoad(ctx, "w1", -1))
	assert.NoError(t, repo.ReserveSlot(ctx, "w1"))
}

func TestReserveSlotUnknownWorker(t *testing.T) {
	repo, _ := newRepo(t)
	err := repo.ReserveSlot(context.Background(), "ghost")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errs.ErrWorkerFull))
}
