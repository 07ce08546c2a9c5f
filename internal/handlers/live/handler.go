// Package live serves the websocket endpoint through which clients watch
// verdicts of the jobs they subscribe to.
package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"gitlab.com/judge-relay.net/internal/core/ports/primary"
	"gitlab.com/judge-relay.net/internal/core/services/hub"
)

const defaultSendBuffer = 16

type LiveHandler struct {
	hub        hub.IHub
	logger     primary.Logger
	upgrader   websocket.Upgrader
	sendBuffer int

	mu      sync.Mutex
	clients map[string]*client
}

func NewLiveHandler(h hub.IHub, logger primary.Logger) *LiveHandler {
	return &LiveHandler{
		hub:    h,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// job ids are the only capability; any origin may watch one
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer: defaultSendBuffer,
		clients:    make(map[string]*client),
	}
}

func (h *LiveHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.Serve)
}

// Serve upgrades the request and runs the connection until it closes
func (h *LiveHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Websocket upgrade failed", "error", err)
		return
	}

	c := newClient(uuid.NewString(), conn, h.sendBuffer)
	h.track(c)
	go c.writePump()

	h.readPump(c)

	h.hub.Remove(c.id)
	h.untrack(c)
	c.close()
}

func (h *LiveHandler) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("Websocket closed", "subscriber", c.id, "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.enqueue(serverMessage{Event: "error", Message: "invalid message"})
			continue
		}

		switch msg.Action {
		case "subscribe":
			if err := h.hub.Subscribe(c, msg.JobID); err != nil {
				c.enqueue(serverMessage{Event: "error", JobID: msg.JobID, Message: err.Error()})
				continue
			}
			c.enqueue(serverMessage{Event: "subscribed", JobID: msg.JobID})
		case "unsubscribe":
			h.hub.Unsubscribe(c.id, msg.JobID)
			c.enqueue(serverMessage{Event: "unsubscribed", JobID: msg.JobID})
		default:
			c.enqueue(serverMessage{Event: "error", Message: "unknown action: " + msg.Action})
		}
	}
}

func (h *LiveHandler) track(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

func (h *LiveHandler) untrack(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	h.mu.Unlock()
}

// CloseAll sends a close frame to every connected client
func (h *LiveHandler) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.close()
	}
}
