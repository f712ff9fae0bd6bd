package ws_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/vivahvows/internal/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// connect dials a real websocket pair through httptest and registers the
// server side with the hub.
func connect(t *testing.T, hub *ws.Hub, userID uint64, roomID uint64) *websocket.Conn {
	t.Helper()

	ready := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		client := ws.NewClient(userID, conn)
		hub.Register(client)
		if roomID > 0 {
			hub.JoinRoom(roomID, client)
		}
		close(ready)
		// hold the connection open for the test's lifetime
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Unregister(client)
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	<-ready
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestPushToUserReachesAllConnections(t *testing.T) {
	hub := ws.NewHub()
	first := connect(t, hub, 1, 0)
	second := connect(t, hub, 1, 0)
	other := connect(t, hub, 2, 0)

	hub.PushToUser(1, map[string]string{"event": "like"})

	assert.Contains(t, readFrame(t, first), "like")
	assert.Contains(t, readFrame(t, second), "like")

	// user 2 got nothing
	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestBroadcastRoom(t *testing.T) {
	hub := ws.NewHub()
	inRoom := connect(t, hub, 1, 7)
	alsoIn := connect(t, hub, 2, 7)
	outside := connect(t, hub, 3, 8)

	hub.BroadcastRoom(7, map[string]string{"content": "hello"})

	assert.Contains(t, readFrame(t, inRoom), "hello")
	assert.Contains(t, readFrame(t, alsoIn), "hello")

	require.NoError(t, outside.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := outside.ReadMessage()
	assert.Error(t, err)
}

func TestPushAfterUnregisterIsNoop(t *testing.T) {
	hub := ws.NewHub()
	conn := connect(t, hub, 1, 0)

	conn.Close()
	// give the server read loop a moment to unregister
	time.Sleep(50 * time.Millisecond)

	// must not panic on the closed client
	hub.PushToUser(1, map[string]string{"event": "like"})
}
