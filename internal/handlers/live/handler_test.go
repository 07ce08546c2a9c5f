package live

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/judge-relay.net/internal/adapter/logging"
	"gitlab.com/judge-relay.net/internal/core/services/hub"
	"gitlab.com/judge-relay.net/internal/domain"
	"gitlab.com/judge-relay.net/internal/metrics"
)

func startLive(t *testing.T) (*hub.Hub, *websocket.Conn) {
	t.Helper()
	h := hub.NewHub(logging.NopLogger{}, metrics.NewUnregistered())
	r := mux.NewRouter()
	NewLiveHandler(h, logging.NopLogger{}).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return h, conn
}

func read(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg serverMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestSubscribeAndReceive(t *testing.T) {
	h, conn := startLive(t)

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "subscribe", JobID: "42"}))
	ack := read(t, conn)
	assert.Equal(t, "subscribed", ack.Event)
	assert.Equal(t, 1, h.SubscriberCount("42"))

	msg := "passed"
	assert.Equal(t, 1, h.Publish(domain.ResultEvent{Type: "submit", JobID: "42", Verdict: domain.VerdictAccepted, Message: &msg}))

	got := read(t, conn)
	assert.Equal(t, "result", got.Event)
	require.NotNil(t, got.Data)
	assert.Equal(t, domain.VerdictAccepted, got.Data.Verdict)
	assert.Equal(t, "42", got.Data.JobID)
}

func TestSubscribeRejectsMalformedID(t *testing.T) {
	h, conn := startLive(t)

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "subscribe", JobID: "not-a-job"}))
	got := read(t, conn)
	assert.Equal(t, "error", got.Event)
	assert.Equal(t, 0, h.SubscriberCount("not-a-job"))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, "error", read(t, conn).Event)

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "dance"}))
	assert.Equal(t, "error", read(t, conn).Event)
}

func TestUnsubscribeAndDisconnectCleanUp(t *testing.T) {
	h, conn := startLive(t)

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "subscribe", JobID: "run_a"}))
	read(t, conn)
	require.NoError(t, conn.WriteJSON(clientMessage{Action: "subscribe", JobID: "7"}))
	read(t, conn)

	require.NoError(t, conn.WriteJSON(clientMessage{Action: "unsubscribe", JobID: "run_a"}))
	assert.Equal(t, "unsubscribed", read(t, conn).Event)
	assert.Equal(t, 0, h.SubscriberCount("run_a"))
	assert.Equal(t, 1, h.SubscriberCount("7"))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.SubscriberCount("7") == 0 }, 2*time.Second, 10*time.Millisecond)
}
