package live

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	return hub
}

// dialRoom connects a websocket client subscribed to the given room and
// returns the client-side connection.
func dialRoom(t *testing.T, hub *Hub, room string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		client := NewClient(hub, conn, room)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastToRoom(t *testing.T) {
	hub := newTestHub(t)
	conn := dialRoom(t, hub, "track-1")

	msg := Message{
		Type:    TypeLeaderboardUpdated,
		TrackID: "track-1",
		Payload: map[string]interface{}{"username": "alice", "time": 42.5},
	}

	// Registration races the broadcast, so retry until delivery.
	received := make(chan []byte, 1)
	go func() {
		_, data, err := conn.ReadMessage()
		if err == nil {
			received <- data
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		hub.BroadcastToRoom("track-1", msg)
		select {
		case data := <-received:
			var got Message
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, TypeLeaderboardUpdated, got.Type)
			assert.Equal(t, "track-1", got.TrackID)
			return
		case <-deadline:
			t.Fatal("broadcast never reached the subscriber")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHubRoomsAreIsolated(t *testing.T) {
	hub := newTestHub(t)
	other := dialRoom(t, hub, "track-2")

	// Give registration a moment to land before broadcasting elsewhere.
	time.Sleep(50 * time.Millisecond)
	hub.BroadcastToRoom("track-1", Message{Type: TypeLeaderboardUpdated, TrackID: "track-1"})

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "subscriber of another room must not receive the message")
}

func TestHubBroadcastToEmptyRoom(t *testing.T) {
	hub := newTestHub(t)

	// No subscribers; must not panic or block.
	hub.BroadcastToRoom("empty", Message{Type: TypeLeaderboardUpdated})
}
