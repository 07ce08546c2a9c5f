package dispatch

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
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/metrics"
)

type fakeBackend struct {
	mu       sync.Mutex
	err      error
	block    bool
	received []domain.TaskPayload
	classes  []domain.TaskClass
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Enqueue(ctx context.Context, class domain.TaskClass, payload domain.TaskPayload) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, payload)
	f.classes = append(f.classes, class)
	return f.err
}

func TestDispatchEnqueues(t *testing.T) {
	backend := &fakeBackend{}
	m := metrics.NewUnregistered()
	d := NewDispatcher(backend, time.Second, logging.NopLogger{}, m)

	d.Dispatch(context.Background(), domain.TaskClassSubmit, domain.TaskPayload{JobID: "1"})

	require.Len(t, backend.received, 1)
	assert.Equal(t, "1", backend.received[0].JobID)
	assert.Equal(t, domain.TaskClassSubmit, backend.classes[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchTotal.WithLabelValues("submit", "fake", "ok")))
}

func TestDispatchFailureIsSwallowedAndCounted(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection refused")}
	m := metrics.NewUnregistered()
	d := NewDispatcher(backend, time.Second, logging.NopLogger{}, m)

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), domain.TaskClassRun, domain.TaskPayload{JobID: "run_a"})
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchTotal.WithLabelValues("run", "fake", "failed")))
}

func TestDispatchIsBoundedByTimeout(t *testing.T) {
	backend := &fakeBackend{block: true}
	m := metrics.NewUnregistered()
	d := NewDispatcher(backend, 20*time.Millisecond, logging.NopLogger{}, m)

	start := time.Now()
	d.Dispatch(context.Background(), domain.TaskClassReference, domain.TaskPayload{JobID: "ref_a"})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchTotal.WithLabelValues("run-on-reference", "fake", "failed")))
}

func TestDispatchSurvivesCancelledRequestContext(t *testing.T) {
	backend := &fakeBackend{}
	d := NewDispatcher(backend, time.Second, logging.NopLogger{}, metrics.NewUnregistered())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, domain.TaskClassSubmit, domain.TaskPayload{JobID: "2"})

	assert.Len(t, backend.received, 1)
}

func TestDispatchRejectsUnknownClass(t *testing.T) {
	backend := &fakeBackend{}
	d := NewDispatcher(backend, time.Second, logging.NopLogger{}, metrics.NewUnregistered())

	d.Dispatch(context.Background(), domain.TaskClass("bogus"), domain.TaskPayload{JobID: "3"})
	assert.Empty(t, backend.received)
}
