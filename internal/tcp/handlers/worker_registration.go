package handlers

import (
	"context"
	"encoding/json"
	"net"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/services/worker"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/tcp/connectionmanager"
	"gitlab.com/judge-relay.net/internal/tcp/defs"
)

// Each handler deals with one specific message type

var _ primary.MessageHandler = (*WorkerRegistrationHandler)(nil)

// WorkerRegistrationHandler handles worker registration messages
type WorkerRegistrationHandler struct {
	WorkerService worker.IWorkerRegistrationService
	ConnectionMgr *connectionmanager.ConnectionManager
	Logger        primary.Logger
}

// HandleMessage implements the MessageHandler interface
func (h *WorkerRegistrationHandler) HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error {
	var registerData defs.WorkerRegistrationData
	if err := json.Unmarshal(payload, &registerData); err != nil {
		h.Logger.Error("Failed to parse worker registration", "error", err)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeBadRegistration, "Invalid registration data")
		return err
	}

	ip := registerData.Ip
	if ip == "" && conn.RemoteAddr() != nil {
		ip = conn.RemoteAddr().String()
	}

	workerInfo := &domain.WorkerInfo{
		ID:        registerData.WorkerID,
		Language:  registerData.Language,
		Capacity:  registerData.Capacity,
		IpAddress: ip,
		Version:   registerData.Version,
	}

	if err := h.WorkerService.RegisterWorker(ctx, workerInfo); err != nil {
		h.Logger.Error("Failed to register worker", "error", err)
		connectionmanager.SendErrorMessage(conn, defs.ErrCodeRegistration, "Failed to register worker")
		return err
	}

	// Store worker ID and connection
	*workerID = workerInfo.ID
	h.ConnectionMgr.RegisterWorker(workerInfo.ID, workerInfo.Language, conn)

	h.Logger.Info(
		"Worker registered",
		"workerID", workerInfo.ID,
		"language", workerInfo.Language,
		"capacity", workerInfo.Capacity,
		"ip", ip,
	)
	return nil
}
