package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ifcoins/quizroom/internal/models"
)

// wsClient dials a test server that reads snapshots off the socket, and returns
// a Client writing to that connection plus the snapshots the server received.
func wsClient(t *testing.T, userID string) (*Client, <-chan models.RoomSnapshot) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	received := make(chan models.RoomSnapshot, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var snap models.RoomSnapshot
			if err := conn.ReadJSON(&snap); err != nil {
				return
			}
			received <- snap
		}
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn, userID), received
}

func nextSnapshot(t *testing.T, received <-chan models.RoomSnapshot) models.RoomSnapshot {
	t.Helper()
	select {
	case snap := <-received:
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return models.RoomSnapshot{}
	}
}

func TestClientSendWithoutConnDoesNotPanic(t *testing.T) {
	client := NewClient(nil, "u1")
	assert.NoError(t, client.Send(models.RoomSnapshot{Type: "noop"}))
}

func TestClientSendWritesToConn(t *testing.T) {
	client, received := wsClient(t, "u1")
	require.NoError(t, client.Send(models.RoomSnapshot{Type: models.EventRoomStarted, Room: models.Room{ID: "r1"}}))

	snap := nextSnapshot(t, received)
	assert.Equal(t, models.EventRoomStarted, snap.Type)
	assert.Equal(t, "r1", snap.Room.ID)
}

func TestHubJoinLeave(t *testing.T) {
	hub := NewHub(nil)
	a := NewClient(nil, "a")
	b := NewClient(nil, "b")

	hub.Join("r1", a)
	hub.Join("r1", a)
	hub.Join("r1", b)
	assert.Equal(t, 2, hub.ClientCount("r1"))

	assert.Equal(t, 1, hub.Leave("r1", a))
	assert.Equal(t, 0, hub.Leave("r1", b))
	assert.Equal(t, 0, hub.Leave("unknown", b))
	assert.Equal(t, 0, hub.ClientCount("r1"))
}

func TestHubBroadcastOnlyReachesRoom(t *testing.T) {
	hub := NewHub(nil)
	inRoom, inReceived := wsClient(t, "a")
	elsewhere, elseReceived := wsClient(t, "b")
	hub.Join("r1", inRoom)
	hub.Join("r2", elsewhere)

	hub.Broadcast(models.RoomSnapshot{Type: models.EventPlayerJoined, Room: models.Room{ID: "r1"}})

	assert.Equal(t, models.EventPlayerJoined, nextSnapshot(t, inReceived).Type)
	select {
	case snap := <-elseReceived:
		t.Fatalf("unexpected snapshot for another room: %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubRunForwardsFeed(t *testing.T) {
	hub := NewHub(nil)
	client, received := wsClient(t, "a")
	hub.Join("r1", client)

	feed := make(chan models.RoomSnapshot, 2)
	feed <- models.RoomSnapshot{Type: models.EventRoomStarted, Room: models.Room{ID: "r1"}}
	feed <- models.RoomSnapshot{Type: models.EventQuestionAdvanced, Room: models.Room{ID: "r1"}}
	close(feed)

	done := make(chan struct{})
	go func() {
		hub.Run(context.Background(), feed)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after feed closed")
	}

	assert.Equal(t, models.EventRoomStarted, nextSnapshot(t, received).Type)
	assert.Equal(t, models.EventQuestionAdvanced, nextSnapshot(t, received).Type)
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx, make(chan models.RoomSnapshot))
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
