package primary

import (
	"context"
	"net"
)

// MessageHandler defines an interface for handling different message types
type MessageHandler interface {
	HandleMessage(ctx context.Context, conn net.Conn, payload []byte, workerID *string) error
}
