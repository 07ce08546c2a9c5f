package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/services/worker"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/tcp/connectionmanager"
	"gitlab.com/judge-relay.net/internal/tcp/defs"
)

// JobAssignPublisher books a slot on the chosen worker and pushes the task
type JobAssignPublisher struct {
	WorkerSvc worker.IWorkerRegistrationService
	Logger    primary.Logger
}

func NewJobAssignPublisher(workerSvc worker.IWorkerRegistrationService, logger primary.Logger) *JobAssignPublisher {
	return &JobAssignPublisher{
		WorkerSvc: workerSvc,
		Logger:    logger,
	}
}

// PublishMessage reserves a slot before sending so two assignments cannot
// both take a worker's last slot. The slot is released if the send fails.
// A full worker yields errs.ErrWorkerFull and nothing is sent.
func (j *JobAssignPublisher) PublishMessage(ctx context.Context, conn net.Conn, class domain.TaskClass, payload domain.TaskPayload, w *domain.WorkerInfo) error {
	body, err := json.Marshal(defs.JobAssignData{Class: class, Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal job assignment: %w", err)
	}

	if err := j.WorkerSvc.ReserveSlot(ctx, w.ID); err != nil {
		return err
	}

	if err := connectionmanager.SendMessage(conn, defs.MsgJobAssign, body); err != nil {
		j.Logger.Error("Failed to send job assignment", "workerID", w.ID, "error", err)
		if relErr := j.WorkerSvc.AdjustLoad(ctx, w.ID, -1); relErr != nil {
			j.Logger.Warn("Failed to release worker slot", "workerID", w.ID, "error", relErr)
		}
		return err
	}

	j.Logger.Debug("Job assigned", "jobId", payload.JobID, "workerID", w.ID, "class", class)
	return nil
}
