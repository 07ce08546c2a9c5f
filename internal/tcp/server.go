// Package tcp is the push transport to execution workers: workers register
// over a framed TCP protocol, receive job assignments and report verdicts.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"sync"
	"time"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/ports/secondary"
	"gitlab.com/judge-relay.net/internal/core/services/callback"
	"gitlab.com/judge-relay.net/internal/core/services/worker"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/static/errs"
	"gitlab.com/judge-relay.net/internal/tcp/connectionmanager"
	"gitlab.com/judge-relay.net/internal/tcp/defs"
	"gitlab.com/judge-relay.net/internal/tcp/handlers"
	"gitlab.com/judge-relay.net/internal/tcp/publishers"
)

var _ secondary.TaskBackend = (*TCPServer)(nil)

// TCPServer handles TCP connections from workers
type TCPServer struct {
	address       string
	workerService worker.IWorkerRegistrationService
	callbacks     callback.ICallbackService
	logger        primary.Logger
	listener      net.Listener
	connectionMgr *connectionmanager.ConnectionManager
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
	handlers      map[byte]primary.MessageHandler
	publisher     *publishers.JobAssignPublisher
}

// TCPServerOption configures a TCPServer
type TCPServerOption func(*TCPServer)

// WithAddress sets the server address
func WithAddress(address string) TCPServerOption {
	return func(s *TCPServer) {
		s.address = address
	}
}

// NewTCPServer creates a new TCP server
func NewTCPServer(
	workerService worker.IWorkerRegistrationService,
	callbacks callback.ICallbackService,
	logger primary.Logger,
	options ...TCPServerOption,
) *TCPServer {
	server := &TCPServer{
		address:       ":9000", // Default address
		workerService: workerService,
		callbacks:     callbacks,
		logger:        logger,
		connectionMgr: connectionmanager.NewConnectionManager(logger),
		stopCh:        make(chan struct{}),
	}

	for _, option := range options {
		option(server)
	}

	server.setupMessageHandlers()

	return server
}

// setupMessageHandlers registers all message handlers
func (s *TCPServer) setupMessageHandlers() {
	s.handlers = map[byte]primary.MessageHandler{
		defs.MsgWorkerRegister:  &handlers.WorkerRegistrationHandler{WorkerService: s.workerService, ConnectionMgr: s.connectionMgr, Logger: s.logger},
		defs.MsgWorkerHeartbeat: &handlers.WorkerHeartbeatHandler{WorkerService: s.workerService, Logger: s.logger},
		defs.MsgJobResult:       &handlers.JobResultHandler{Callbacks: s.callbacks, WorkerService: s.workerService, Logger: s.logger},
	}
	s.publisher = publishers.NewJobAssignPublisher(s.workerService, s.logger)
}

// Start starts the TCP server
func (s *TCPServer) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}

	s.logger.Info("TCP server listening", "address", s.listener.Addr().String())

	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Addr is the bound listener address, valid after Start
func (s *TCPServer) Addr() string {
	if s.listener == nil {
		return s.address
	}
	return s.listener.Addr().String()
}

// Stop closes the listener and every worker connection, then waits for the
// connection goroutines or ctx, whichever comes first
func (s *TCPServer) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				s.logger.Error("Failed to close listener", "error", err)
			}
		}
		s.connectionMgr.CloseAll()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *TCPServer) Name() string {
	return "tcp"
}

// Enqueue assigns the task to the least loaded connected worker for its
// language, moving on to the next one when a worker fills up concurrently.
// It fails with ErrNoWorker when none can take it.
func (s *TCPServer) Enqueue(ctx context.Context, class domain.TaskClass, payload domain.TaskPayload) error {
	workers, err := s.workerService.GetAvailableWorkers(ctx, payload.Language)
	if err != nil {
		return err
	}

	for _, w := range RankWorkers(workers) {
		conn, ok := s.connectionMgr.GetConnection(w.ID)
		if !ok {
			continue
		}
		err := s.publisher.PublishMessage(ctx, conn, class, payload, w)
		if errors.Is(err, errs.ErrWorkerFull) {
			continue
		}
		return err
	}
	return fmt.Errorf("%w: language %s", errs.ErrNoWorker, payload.Language)
}

// acceptConnections accepts incoming connections
func (s *TCPServer) acceptConnections() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("Failed to accept connection", "error", err)
			time.Sleep(defs.ConnectionRetryDelay) // Avoid tight loop on error
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection handles a single worker connection
func (s *TCPServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	// Set initial timeout for registration
	_ = conn.SetDeadline(time.Now().Add(defs.InitialRegistrationTimeout))

	var workerID string
	defer func() {
		if workerID != "" && s.connectionMgr.RemoveWorker(workerID, conn) {
			s.logger.Info("Worker disconnected", "workerID", workerID)
			if err := s.workerService.Deregister(context.Background(), workerID); err != nil {
				s.logger.Warn("Failed to deregister worker", "workerID", workerID, "error", err)
			}
		}
	}()

	for {
		msgType, payload, err := connectionmanager.ReadMessage(conn)
		if err != nil {
			select {
			case <-s.stopCh:
			default:
				if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
					s.logger.Error("Failed to read message", "workerID", workerID, "error", err)
				}
			}
			return
		}

		handler, exists := s.handlers[msgType]
		if !exists {
			s.logger.Error("Unknown message type", "type", msgType)
			connectionmanager.SendErrorMessage(conn, defs.ErrCodeUnknownMessage, fmt.Sprintf("Unknown message type: %d", msgType))
			continue
		}

		if msgType != defs.MsgWorkerRegister && workerID == "" {
			connectionmanager.SendErrorMessage(conn, defs.ErrCodeNotRegistered, "Worker not registered")
			continue
		}

		if err := handler.HandleMessage(context.Background(), conn, payload, &workerID); err != nil {
			s.logger.Error("Error handling message", "type", msgType, "workerID", workerID, "error", err)
			return
		}

		// After successful registration, remove timeout
		if msgType == defs.MsgWorkerRegister {
			_ = conn.SetDeadline(time.Time{})
		}
	}
}

// RankWorkers returns the workers with spare capacity, lowest load ratio first
func RankWorkers(workers []*domain.WorkerInfo) []*domain.WorkerInfo {
	ranked := make([]*domain.WorkerInfo, 0, len(workers))
	for _, w := range workers {
		if w.HasCapacity() {
			ranked = append(ranked, w)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].LoadRatio() < ranked[b].LoadRatio()
	})
	return ranked
}
