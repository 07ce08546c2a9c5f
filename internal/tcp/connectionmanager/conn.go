package connectionmanager

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/tcp/defs"
)

// ConnectionManager tracks the live connection and language of each worker
type ConnectionManager struct {
	connections map[string]net.Conn
	languages   map[string]string // workerId -> language
	mu          sync.RWMutex
	Logger      primary.Logger
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(logger primary.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]net.Conn),
		languages:   make(map[string]string),
		Logger:      logger,
	}
}

// RegisterWorker registers a worker connection. A reconnecting worker
// replaces its previous connection, which is closed.
func (cm *ConnectionManager) RegisterWorker(workerID string, language string, conn net.Conn) {
	cm.mu.Lock()
	old, existed := cm.connections[workerID]
	cm.connections[workerID] = conn
	cm.languages[workerID] = language
	cm.mu.Unlock()

	if existed && old != conn {
		_ = old.Close()
	}
}

// RemoveWorker removes a worker when its connection is closed. It is a no-op
// when the worker has already re-registered on another connection.
func (cm *ConnectionManager) RemoveWorker(workerID string, conn net.Conn) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if current, ok := cm.connections[workerID]; !ok || current != conn {
		return false
	}
	delete(cm.connections, workerID)
	delete(cm.languages, workerID)
	return true
}

// GetWorkersOfLanguage returns connected workers registered for a language
func (cm *ConnectionManager) GetWorkersOfLanguage(language string) []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	matchingWorkers := make([]string, 0)
	for workerID, lang := range cm.languages {
		if lang == language {
			matchingWorkers = append(matchingWorkers, workerID)
		}
	}

	return matchingWorkers
}

// GetConnection returns the connection for a specific worker
func (cm *ConnectionManager) GetConnection(workerID string) (net.Conn, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	conn, exists := cm.connections[workerID]
	return conn, exists
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// CloseAll closes every worker connection
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for workerID, conn := range cm.connections {
		if err := conn.Close(); err != nil {
			cm.Logger.Debug("Failed to close connection", "workerID", workerID, "error", err)
		}
		delete(cm.connections, workerID)
		delete(cm.languages, workerID)
	}
}

// SendErrorMessage sends an error message to a worker
func SendErrorMessage(conn net.Conn, code int, message string) {
	errorBytes, err := json.Marshal(defs.ErrorData{Code: code, Message: message})
	if err != nil {
		return
	}

	// Ignore errors here as the connection might be closing
	_ = SendMessage(conn, defs.MsgError, errorBytes)
}

// SendMessage writes one frame. Header and payload go out in a single Write
// so frames from concurrent senders never interleave.
func SendMessage(conn net.Conn, msgType byte, payload []byte) error {
	if len(payload) > defs.MaxPayloadSize {
		return fmt.Errorf("payload too large: %d bytes", len(payload))
	}
	frame := make([]byte, defs.HeaderSize+len(payload))
	binary.BigEndian.PutUint16(frame[0:2], defs.MagicNumber)
	frame[2] = msgType
	frame[3] = 0 // Reserved
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(payload)))
	copy(frame[defs.HeaderSize:], payload)

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// ReadMessage reads one frame from r
func ReadMessage(r io.Reader) (byte, []byte, error) {
	header := make([]byte, defs.HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	magic := binary.BigEndian.Uint16(header[0:2])
	msgType := header[2]
	payloadLen := binary.BigEndian.Uint32(header[4:8])

	if magic != defs.MagicNumber {
		return 0, nil, fmt.Errorf("invalid magic number: %x", magic)
	}
	if payloadLen > defs.MaxPayloadSize {
		return 0, nil, fmt.Errorf("payload too large: %d bytes", payloadLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}

	return msgType, payload, nil
}
