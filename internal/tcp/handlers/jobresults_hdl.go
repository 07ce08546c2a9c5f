package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/services/callback"
	"gitlab.com/judge-relay.net/internal/core/services/worker"
	"gitlab.com/judge-relay.net/internal/tcp/connectionmanager"
	"gitlab.com/judge-relay.net/internal/tcp/defs"
)

var _ primary.MessageHandler = (*JobResultHandler)(nil)

// JobResultHandler feeds verdicts reported over TCP into the callback
// pipeline and releases the worker's load slot.
type JobResultHandler struct {
	Callbacks     callback.ICallbackService
	WorkerService worker.IWorkerRegistrationService
	Logger        primary.Logger
}

// HandleMessage implements the MessageHandler interface. A rejected result
// is reported to the worker but keeps the connection open.
func (h *JobResultHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error {
	if *workerID == "" {
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeNotRegistered, "Worker not registered")
		return fmt.Errorf("worker not registered")
	}

	var resultData defs.JobResultData
	if err := json.Unmarshal(payload, &resultData); err != nil {
		h.Logger.Error("Failed to parse job result", "error", err)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeBadResult, "Invalid job result data")
		return err
	}

	if err := h.WorkerService.AdjustLoad(ctx, *workerID, -1); err != nil {
		h.Logger.Warn("Failed to release worker load", "workerID", *workerID, "error", err)
	}

	res, err := h.Callbacks.Handle(ctx, callback.Callback{
		JobID:       resultData.JobID,
		Status:      resultData.Status,
		Diagnostics: resultData.Diagnostics(),
	})
	if err != nil {
		h.Logger.Warn("Job result rejected", "jobId", resultData.JobID, "workerID", *workerID, "error", err)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeResultRejected, err.Error())
		return nil
	}

	h.Logger.Info("Job result received",
		"jobId", res.JobID,
		"workerID", *workerID,
		"verdict", res.Verdict,
		"applied", res.Applied,
	)
	return nil
}
