package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"dotted/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func attach(h *Hub, userID string, rooms ...string) *Client {
	c := newClient(h, nil, userID)
	h.register(c)
	for _, r := range rooms {
		h.Join(c, r)
	}
	return c
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case frame := <-c.send:
		var ev Event
		require.NoError(t, json.Unmarshal(frame, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return Event{}
	}
}

func TestCanJoin(t *testing.T) {
	cases := []struct {
		room string
		want bool
	}{
		{"zone:z1", true},
		{"cycle:c1", true},
		{"user:u1", true},
		{"user:u2", false},
		{"user:", false},
		{"admin:x", false},
		{"garbage", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanJoin("u1", tc.room), tc.room)
	}
}

func TestHubPublishReachesOnlyRoomMembers(t *testing.T) {
	h := NewHub(zap.NewNop())
	inRoom := attach(h, "u1", CycleRoom("c1"))
	other := attach(h, "u2", CycleRoom("c2"))

	require.NoError(t, h.Publish(context.Background(), CycleRoom("c1"), EventVoteUpdated, map[string]int{"votes": 3}))

	ev := receive(t, inRoom)
	assert.Equal(t, EventVoteUpdated, ev.Type)
	assert.Equal(t, "cycle:c1", ev.Room)
	assert.JSONEq(t, `{"votes":3}`, string(ev.Payload))

	assert.Len(t, other.send, 0)
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := attach(h, "u1", ZoneRoom("z1"))

	for i := 0; i < sendBuffer+10; i++ {
		require.NoError(t, h.Publish(context.Background(), ZoneRoom("z1"), EventCyclePhase, i))
	}
	assert.Len(t, c.send, sendBuffer, "publish must not block on a full queue")
}

func TestHubLeaveAndUnregister(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := attach(h, "u1", ZoneRoom("z1"), CycleRoom("c1"))
	assert.Equal(t, 1, h.RoomSize(ZoneRoom("z1")))

	h.Leave(c, ZoneRoom("z1"))
	assert.Equal(t, 0, h.RoomSize(ZoneRoom("z1")))

	h.unregister(c)
	assert.Equal(t, 0, h.RoomSize(CycleRoom("c1")))
	assert.Equal(t, 0, h.Clients())
	_, open := <-c.send
	assert.False(t, open)

	// Unregistering twice is harmless.
	h.unregister(c)
}

func TestWebsocketEndToEnd(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	gin.SetMode(gin.TestMode)
	tokens := auth.NewTokenIssuer("ws-secret", time.Hour)
	hub := NewHub(zap.NewNop())

	r := gin.New()
	r.GET("/ws", NewHandler(hub, tokens, nil).Connect)
	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
	resp.Body.Close()

	token, err := tokens.GenerateToken("u1", "u1@example.com", auth.RoleConsumer)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+token, nil)
	require.NoError(t, err)

	readJSON := func(v any) {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(v))
	}

	require.NoError(t, conn.WriteJSON(command{Action: "join", Room: "user:someone-else"}))
	var rep reply
	readJSON(&rep)
	assert.Equal(t, "error", rep.Type)

	require.NoError(t, conn.WriteJSON(command{Action: "join", Room: "cycle:c9"}))
	readJSON(&rep)
	assert.Equal(t, "joined", rep.Type)

	require.NoError(t, hub.Publish(context.Background(), "cycle:c9", EventBidPlaced, map[string]string{"bid_id": "b1"}))
	var ev Event
	readJSON(&ev)
	assert.Equal(t, EventBidPlaced, ev.Type)

	require.NoError(t, hub.Publish(context.Background(), UserRoom("u1"), EventOrderStatus, map[string]string{"status": "READY"}))
	readJSON(&ev)
	assert.Equal(t, EventOrderStatus, ev.Type)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestNATSBridge(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	hub := NewHub(zap.NewNop())
	c := attach(hub, "u1", ZoneRoom("z-nats"))

	bridge, err := NewNATSBridge(nc, hub, "dotted.test.rooms", zap.NewNop())
	require.NoError(t, err)
	defer bridge.Close()

	require.NoError(t, bridge.Publish(context.Background(), ZoneRoom("z-nats"), EventCyclePhase, map[string]string{"phase": "VOTING"}))
	require.NoError(t, nc.Flush())

	ev := receive(t, c)
	assert.Equal(t, EventCyclePhase, ev.Type)
}
