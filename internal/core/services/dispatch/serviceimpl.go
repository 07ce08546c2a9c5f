package dispatch

import (
	"context"
	"time"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/metrics"
)

var _ IDispatcher = (*Dispatcher)(nil)

const defaultTimeout = 3 * time.Second

type Dispatcher struct {
	backend secondary.TaskBackend
	timeout time.Duration
	logger  primary.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(backend secondary.TaskBackend, timeout time.Duration, logger primary.Logger, m *metrics.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		backend: backend,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, class domain.TaskClass, payload domain.TaskPayload) {
	if !class.Valid() {
		d.logger.Error("Refusing to dispatch unknown task class", "class", class, "jobId", payload.JobID)
		d.count(class, "failed")
		return
	}

	// the hand-off must outlive a client that disconnects after the row was created
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	start := time.Now()
	if err := d.backend.Enqueue(ctx, class, payload); err != nil {
		d.logger.Error("Failed to dispatch task",
			"jobId", payload.JobID,
			"class", class,
			"backend", d.backend.Name(),
			"error", err)
		d.count(class, "failed")
		return
	}

	d.logger.Info("Task dispatched",
		"jobId", payload.JobID,
		"class", class,
		"backend", d.backend.Name(),
		"elapsed", time.Since(start))
	d.count(class, "ok")
}

func (d *Dispatcher) count(class domain.TaskClass, outcome string) {
	d.metrics.DispatchTotal.WithLabelValues(string(class), d.backend.Name(), outcome).Inc()
}
