package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-relay.net/internal/adapter/logging"
	"gitlab.com/judge-relay.net/internal/adapter/redis/workerport"
	"gitlab.com/judge-relay.net/internal/domain"
)

func newService(t *testing.T) *WorkerRegistrationService {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWorkerRegistrationService(workerport.NewWorkerRepository(client, logging.NopLogger{}), logging.NopLogger{})
}

func TestAvailableWorkersFilterCapacityAndHeartbeat(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	now := time.Now()

	require.NoError(t, svc.RegisterWorker(ctx, &domain.WorkerInfo{ID: "idle", Language: "Python", Capacity: 2}))
	require.NoError(t, svc.RegisterWorker(ctx, &domain.WorkerInfo{ID: "busy", Language: "python", Capacity: 1}))
	require.NoError(t, svc.AdjustLoad(ctx, "busy", 1))
	require.NoError(t, svc.RegisterWorker(ctx, &domain.WorkerInfo{ID: "stale", Language: "python", Capacity: 2}))

	svc.now = func() time.Time { return now.Add(3 * time.Minute) }
	require.NoError(t, svc.Heartbeat(ctx, "idle", 0))

	workers, err := svc.GetAvailableWorkers(ctx, "PYTHON")
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "idle", workers[0].ID)
}

func TestRegisterWorkerValidates(t *testing.T) {
	svc := newService(t)
	assert.Error(t, svc.RegisterWorker(context.Background(), &domain.WorkerInfo{ID: "w", Language: "cpp"}))
	assert.Error(t, svc.RegisterWorker(context.Background(), &domain.WorkerInfo{Language: "cpp", Capacity: 1}))
}

func TestHeartbeatUnknownWorker(t *testing.T) {
	svc := newService(t)
	assert.Error(t, svc.Heartbeat(context.Background(), "ghost", 0))
}

func TestDeregister(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	require.NoError(t, svc.RegisterWorker(ctx, &domain.WorkerInfo{ID: "w", Language: "cpp", Capacity: 1}))
	require.NoError(t, svc.Deregister(ctx, "w"))

	all, err := svc.GetAllWorkers(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
