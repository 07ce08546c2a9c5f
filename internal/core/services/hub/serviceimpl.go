package hub

import (
	"sync"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/metrics"
	"gitlab.com/judge-relay.net/internal/static/errs"
)

var (
	_ IHub                      = (*Hub)(nil)
	_ secondary.ResultPublisher = (*Hub)(nil)
)

type Hub struct {
	mu     sync.RWMutex
	byJob  map[string]map[string]Subscriber
	bySub  map[string]map[string]struct{}
	closed bool

	logger  primary.Logger
	metrics *metrics.Metrics
}

func NewHub(logger primary.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		byJob:   make(map[string]map[string]Subscriber),
		bySub:   make(map[string]map[string]struct{}),
		logger:  logger,
		metrics: m,
	}
}

// Subscribe is idempotent for the same (subscriber, job) pair.
func (h *Hub) Subscribe(sub Subscriber, jobID string) error {
	ref, err := domain.ParseJobRef(jobID)
	if err != nil {
		return err
	}
	key := ref.String()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errs.Validation("hub is shut down")
	}

	subs, ok := h.byJob[key]
	if !ok {
		subs = make(map[string]Subscriber)
		h.byJob[key] = subs
	}
	if _, exists := subs[sub.ID()]; exists {
		return nil
	}
	subs[sub.ID()] = sub

	jobs, ok := h.bySub[sub.ID()]
	if !ok {
		jobs = make(map[string]struct{})
		h.bySub[sub.ID()] = jobs
	}
	jobs[key] = struct{}{}

	h.metrics.HubSubscriptions.Inc()
	h.logger.Debug("Subscribed to job", "subscriber", sub.ID(), "jobId", key)
	return nil
}

func (h *Hub) Unsubscribe(subscriberID, jobID string) {
	ref, err := domain.ParseJobRef(jobID)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(subscriberID, ref.String())
}

func (h *Hub) Remove(subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for jobID := range h.bySub[subscriberID] {
		h.unsubscribeLocked(subscriberID, jobID)
	}
	delete(h.bySub, subscriberID)
}

func (h *Hub) unsubscribeLocked(subscriberID, jobID string) {
	subs, ok := h.byJob[jobID]
	if !ok {
		return
	}
	if _, ok := subs[subscriberID]; !ok {
		return
	}

	delete(subs, subscriberID)
	if len(subs) == 0 {
		delete(h.byJob, jobID)
	}
	if jobs, ok := h.bySub[subscriberID]; ok {
		delete(jobs, jobID)
		if len(jobs) == 0 {
			delete(h.bySub, subscriberID)
		}
	}
	h.metrics.HubSubscriptions.Dec()
}

// Publish delivers ev to a snapshot of the job's subscribers taken at call
// time. Delivery happens outside the lock.
func (h *Hub) Publish(ev domain.ResultEvent) int {
	h.mu.RLock()
	subs := h.byJob[ev.JobID]
	snapshot := make([]Subscriber, 0, len(subs))
	for _, sub := range subs {
		snapshot = append(snapshot, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range snapshot {
		if sub.Deliver(ev) {
			delivered++
			h.metrics.HubDeliveries.WithLabelValues("delivered").Inc()
			continue
		}
		h.metrics.HubDeliveries.WithLabelValues("dropped").Inc()
		h.logger.Warn("Dropped result event for slow subscriber", "subscriber", sub.ID(), "jobId", ev.JobID)
	}

	h.logger.Debug("Published result event", "jobId", ev.JobID, "type", ev.Type, "delivered", delivered)
	return delivered
}

func (h *Hub) SubscriberCount(jobID string) int {
	if ref, err := domain.ParseJobRef(jobID); err == nil {
		jobID = ref.String()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byJob[jobID])
}

// Close drops every subscription; later Subscribe calls fail.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.byJob = make(map[string]map[string]Subscriber)
	h.bySub = make(map[string]map[string]struct{})
	h.metrics.HubSubscriptions.Set(0)
}
