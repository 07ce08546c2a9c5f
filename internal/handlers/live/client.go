package live

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gitlab.com/judge-relay.net/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// clientMessage is what a browser sends
type clientMessage struct {
	Action string `json:"action"`
	JobID  string `json:"job_id"`
}

// serverMessage is what the server pushes
type serverMessage struct {
	Event   string              `json:"event"`
	JobID   string              `json:"job_id,omitempty"`
	Data    *domain.ResultEvent `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
}

// client is one websocket connection. It implements hub.Subscriber.
type client struct {
	id        string
	conn      *websocket.Conn
	send      chan serverMessage
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn, buffer int) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan serverMessage, buffer),
		done: make(chan struct{}),
	}
}

func (c *client) ID() string {
	return c.id
}

// Deliver queues the event without blocking. A full queue drops it.
func (c *client) Deliver(ev domain.ResultEvent) bool {
	return c.enqueue(serverMessage{Event: "result", JobID: ev.JobID, Data: &ev})
}

func (c *client) enqueue(msg serverMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump is the only writer on the connection
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			body, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
