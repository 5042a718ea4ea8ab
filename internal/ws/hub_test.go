package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

type gaugeSpy struct {
	mu   sync.Mutex
	open int
}

func (g *gaugeSpy) WSConnections(delta int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open += delta
}

func (g *gaugeSpy) value() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// serve starts a websocket endpoint that binds every connection to userID.
func serve(t *testing.T, hub *Hub, userID uuid.UUID, handlers *sync.WaitGroup) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handlers.Add(1)
		defer handlers.Done()
		NewClient(conn, hub, userID).Run()
	}))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	return conn
}

func TestHubDeliversToEveryConnectionOfUser(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gauge := &gaugeSpy{}
	hub := NewHub(gauge)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	userID := uuid.New()
	var handlers sync.WaitGroup
	srv := serve(t, hub, userID, &handlers)
	defer srv.Close()

	first, second := dial(t, srv), dial(t, srv)
	defer first.Close()
	defer second.Close()

	require.Eventually(t, func() bool { return hub.Connections(userID) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, gauge.value())

	require.NoError(t, hub.BroadcastToUser(uuid.New(), "escrow.updated", map[string]string{"id": "other"}))
	require.NoError(t, hub.BroadcastToUser(userID, "escrow.updated", map[string]string{"status": "funded"}))

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var env struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.Equal(t, "escrow.updated", env.Type)
		assert.Equal(t, "funded", env.Data["status"])
	}

	cancel()
	<-hubDone

	// The hub closes every socket on shutdown.
	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, _, err := conn.ReadMessage()
		assert.Error(t, err)
	}
	handlers.Wait()
	assert.Equal(t, 0, gauge.value())

	assert.NoError(t, hub.BroadcastToUser(userID, "escrow.updated", nil), "broadcast after shutdown is a no-op")
}

func TestHubForgetsClosedConnections(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()
	defer func() {
		cancel()
		<-hubDone
	}()

	userID := uuid.New()
	var handlers sync.WaitGroup
	srv := serve(t, hub, userID, &handlers)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Connections(userID) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Connections(userID) == 0 }, 2*time.Second, 5*time.Millisecond)
	handlers.Wait()
}
