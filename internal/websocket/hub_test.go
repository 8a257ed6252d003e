package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuesdata/internal/operations"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsOperationSnapshots(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	t.Cleanup(hub.Stop)

	conn := dialTestHub(t, hub)

	// give the register message time to land in the hub loop
	time.Sleep(50 * time.Millisecond)

	hub.BroadcastOperation(operations.Snapshot{
		ID:     "op-1",
		Status: operations.OperationStatusRunning,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, TypeOperationStatus, msg.Type)

	data, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var snap operations.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "op-1", snap.ID)
	assert.Equal(t, operations.OperationStatusRunning, snap.Status)
}

func TestHubStartIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	hub.Start()
	hub.Stop()
	hub.Stop()
}

func TestHubStopDisconnectsClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()

	conn := dialTestHub(t, hub)
	time.Sleep(50 * time.Millisecond)

	hub.Stop()

	// the client receives a close frame once the hub shuts down
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure) ||
		websocket.IsUnexpectedCloseError(err), "expected close, got %v", err)

	// closing the client side after shutdown must not wedge its pumps on the
	// stopped hub loop
	conn.Close()
	time.Sleep(50 * time.Millisecond)
}

func TestHubServeWSAfterStop(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	hub.Stop()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// a stopped hub refuses the client immediately instead of blocking
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	t.Cleanup(hub.Stop)

	// must not block or panic with no clients connected
	hub.Broadcast(TypeConnection, map[string]string{"status": "ready"})
}
