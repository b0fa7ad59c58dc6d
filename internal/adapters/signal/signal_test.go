package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/orch"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type wireEvent struct {
	Type   string   `json:"type"`
	Users  []string `json:"users,omitempty"`
	Name   string   `json:"name,omitempty"`
	From   string   `json:"from,omitempty"`
	Text   string   `json:"text,omitempty"`
	Time   string   `json:"time,omitempty"`
	Joined bool     `json:"joined,omitempty"`
	Error  string   `json:"error,omitempty"`
}

func newServer(t *testing.T) (*httptest.Server, *orch.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := app.NewRegistry(app.PolicyAllow)
	o := orch.New(reg, &app.Emitter{Policy: app.SimplePolicy{}}, orch.Options{MaxTextLen: 100})
	ctl := NewSignalWSController(o, Options{PingPeriod: 50 * time.Millisecond, PongWait: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, o
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
}

func next(t *testing.T, ws *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var ev wireEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestSignal_Alice_Bob_Exchange(t *testing.T) {
	req := require.New(t)
	srv, o := newServer(t)

	// Given alice is connected and joined
	alice := dial(t, srv)
	send(t, alice, map[string]string{"type": "join", "name": "alice"})
	req.Equal(wireEvent{Type: "onlineUsers", Users: []string{"alice"}}, next(t, alice))

	// When bob joins
	bob := dial(t, srv)
	send(t, bob, map[string]string{"type": "join", "name": "bob"})

	// Then both sides see each other
	req.Equal(wireEvent{Type: "userJoined", Name: "bob"}, next(t, alice))
	req.Equal(wireEvent{Type: "onlineUsers", Users: []string{"alice", "bob"}}, next(t, bob))

	// When alice writes to bob
	send(t, alice, map[string]string{"type": "sendMessage", "to": "bob", "message": "hi"})
	msg := next(t, bob)
	req.Equal("newMessage", msg.Type)
	req.Equal("alice", msg.From)
	req.Equal("hi", msg.Text)
	req.Regexp(`^\d{2}:\d{2}$`, msg.Time)

	// Then alice got no echo: the next frame on c1 answers its own ping
	send(t, alice, map[string]string{"type": "ping"})
	req.Equal(wireEvent{Type: "pong"}, next(t, alice))

	// When bob goes away
	req.NoError(bob.Close())
	req.Equal(wireEvent{Type: "userLeft", Name: "bob"}, next(t, alice))
	waitFor(t, func() bool { return o.Stats().Connections == 1 })
	req.Equal(1, o.Stats().Online)
}

func TestSignal_WhoAmI(t *testing.T) {
	req := require.New(t)
	srv, _ := newServer(t)
	ws := dial(t, srv)

	send(t, ws, map[string]string{"type": "whoami"})
	req.Equal(wireEvent{Type: "whoami"}, next(t, ws))

	send(t, ws, map[string]string{"type": "join", "name": "  carol  "})
	req.Equal(wireEvent{Type: "onlineUsers", Users: []string{"carol"}}, next(t, ws))

	send(t, ws, map[string]string{"type": "whoami"})
	req.Equal(wireEvent{Type: "whoami", Name: "carol", Joined: true}, next(t, ws))
}

func TestSignal_Join_Errors(t *testing.T) {
	req := require.New(t)
	srv, _ := newServer(t)
	ws := dial(t, srv)

	send(t, ws, map[string]string{"type": "join", "name": "   "})
	req.Equal(wireEvent{Type: "error", Error: "invalid_name"}, next(t, ws))

	send(t, ws, map[string]any{"type": "join", "name": 42})
	req.Equal(wireEvent{Type: "error", Error: "bad_payload"}, next(t, ws))

	send(t, ws, map[string]string{"type": "join", "name": "dave"})
	req.Equal("onlineUsers", next(t, ws).Type)

	send(t, ws, map[string]string{"type": "join", "name": "dave2"})
	req.Equal(wireEvent{Type: "error", Error: "already_joined"}, next(t, ws))
}

func TestSignal_Garbage_Keeps_Connection(t *testing.T) {
	req := require.New(t)
	srv, _ := newServer(t)
	ws := dial(t, srv)

	req.NoError(ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, ws, map[string]string{"type": "teleport"})
	send(t, ws, map[string]string{"type": "sendMessage", "to": "nobody", "message": "hi"})

	send(t, ws, map[string]string{"type": "ping"})
	req.Equal(wireEvent{Type: "pong"}, next(t, ws))
}

func TestSignal_Unjoined_Disconnect_Is_Silent(t *testing.T) {
	req := require.New(t)
	srv, o := newServer(t)

	watcher := dial(t, srv)
	send(t, watcher, map[string]string{"type": "join", "name": "eve"})
	req.Equal("onlineUsers", next(t, watcher).Type)

	lurker := dial(t, srv)
	waitFor(t, func() bool { return o.Stats().Connections == 2 })
	req.NoError(lurker.Close())
	waitFor(t, func() bool { return o.Stats().Connections == 1 })

	// Nothing about the lurker reached eve
	send(t, watcher, map[string]string{"type": "ping"})
	req.Equal(wireEvent{Type: "pong"}, next(t, watcher))
}
