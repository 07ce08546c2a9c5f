package schedulerengine

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-relay.net/internal/adapter/logging"
	"gitlab.com/judge-relay.net/internal/adapter/memory"
	"gitlab.com/judge-relay.net/internal/adapter/redis/workerport"
	"gitlab.com/judge-relay.net/internal/config"
	"gitlab.com/judge-relay.net/internal/core/services/worker"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/metrics"
)

func TestReportStalePending(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	ledger := memory.NewLedger()
	problem := &domain.Problem{ID: 1, EventID: 1}

	for _, age := range []time.Duration{time.Hour, 20 * time.Minute, time.Minute} {
		s := domain.NewPendingSubmission(domain.OwnerKindTeam, 1, problem, "x", "go", now.Add(-age))
		require.NoError(t, ledger.Create(ctx, s))
	}
	judged := domain.NewPendingSubmission(domain.OwnerKindTeam, 1, problem, "x", "go", now.Add(-2*time.Hour))
	judged.Verdict = domain.VerdictAccepted
	require.NoError(t, ledger.Create(ctx, judged))

	m := metrics.NewUnregistered()
	engine := NewSchedulerEngine(&config.MaintenanceCfg{StalePendingAfter: 10 * time.Minute}, ledger, nil, m, logging.NopLogger{})
	engine.now = func() time.Time { return now }

	count, err := engine.ReportStalePending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StalePending))
}

func TestCleanupWorkersAndLoops(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	workers := worker.NewWorkerRegistrationService(workerport.NewWorkerRepository(client, logging.NopLogger{}), logging.NopLogger{})
	require.NoError(t, workers.RegisterWorker(context.Background(), &domain.WorkerInfo{ID: "w1", Language: "go", Capacity: 1}))

	engine := NewSchedulerEngine(&config.MaintenanceCfg{
		WorkerCleanupInterval: 10 * time.Millisecond,
		StalePendingInterval:  10 * time.Millisecond,
		StalePendingAfter:     time.Minute,
	}, memory.NewLedger(), workers, metrics.NewUnregistered(), logging.NopLogger{})

	require.NoError(t, engine.CleanupWorkers(context.Background()))
	all, err := workers.GetAllWorkers(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1, "a fresh worker survives cleanup")

	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		engine.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loops did not stop")
	}
}
