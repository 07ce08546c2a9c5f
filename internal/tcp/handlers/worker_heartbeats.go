package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/services/worker"
	"gitlab.com/judge-relay.net/internal/tcp/connectionmanager"
	"gitlab.com/judge-relay.net/internal/tcp/defs"
)

var _ primary.MessageHandler = (*WorkerHeartbeatHandler)(nil)

// WorkerHeartbeatHandler handles worker heartbeat messages
type WorkerHeartbeatHandler struct {
	WorkerService worker.IWorkerRegistrationService
	Logger        primary.Logger
}

// HandleMessage implements the MessageHandler interface
func (h *WorkerHeartbeatHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error {
	if *workerID == "" {
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeNotRegistered, "Worker not registered")
		return fmt.Errorf("worker not registered")
	}

	var heartbeatData defs.WorkerHeartbeatData
	if err := json.Unmarshal(payload, &heartbeatData); err != nil {
		h.Logger.Error("Failed to parse worker heartbeat", "error", err)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeBadHeartbeat, "Invalid heartbeat data")
		return err
	}

	if heartbeatData.WorkerID != *workerID {
		h.Logger.Error("Worker ID mismatch in heartbeat", "expected", *workerID, "actual", heartbeatData.WorkerID)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeWorkerMismatch, "Worker ID mismatch")
		return fmt.Errorf("worker ID mismatch")
	}

	if err := h.WorkerService.Heartbeat(ctx, *workerID, heartbeatData.Load); err != nil {
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeHeartbeat, "Failed to update heartbeat")
		return err
	}

	return nil
}
