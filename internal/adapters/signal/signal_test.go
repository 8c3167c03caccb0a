package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/fanout"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/core/coretest"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newGateway(t *testing.T) (*orch.Orchestrator, *httptest.Server) {
	t.Helper()
	return newGatewayWith(t, NewRoomRateLimiter(2, time.Minute))
}

func newGatewayWith(t *testing.T, limiter *RoomRateLimiter) (*orch.Orchestrator, *httptest.Server) {
	t.Helper()
	prov := coretest.NewProvider()
	reg := app.NewRegistry()
	o := &orch.Orchestrator{
		Registry:        reg,
		Rooms:           app.NewRoomManager(prov, app.RoomManagerOptions{Codecs: coretest.Codecs(), ProviderTimeout: time.Second}),
		Fanout:          fanout.NewRouter(reg, app.SimplePolicy{}),
		Provider:        prov,
		ProviderTimeout: time.Second,
	}
	ctl := NewSignalWSController(o, limiter, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c, coretest.User(c.Query("user")))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return o, srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?user=" + user
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, typ string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(frame{Type: typ, Data: raw}))
}

// expect reads frames until one of type typ arrives.
func expect(t *testing.T, ws *websocket.Conn, typ string) frame {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var f frame
		require.NoError(t, ws.ReadJSON(&f))
		if f.Type == typ {
			return f
		}
	}
}

func TestGatewayWelcomeAndPing(t *testing.T) {
	t.Parallel()
	_, srv := newGateway(t)
	ws := dial(t, srv, "alice")

	who := expect(t, ws, orch.EvWhoAmI)
	var p orch.WhoAmIPayload
	require.NoError(t, json.Unmarshal(who.Data, &p))
	require.EqualValues(t, "alice", p.UserID)
	require.NotEmpty(t, p.PeerID)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "ping"}))
	expect(t, ws, orch.EvPong)
}

func TestGatewayRejectsBadFrames(t *testing.T) {
	t.Parallel()
	_, srv := newGateway(t)
	ws := dial(t, srv, "alice")
	expect(t, ws, orch.EvWhoAmI)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{nope")))
	var e orch.ErrorPayload
	require.NoError(t, json.Unmarshal(expect(t, ws, orch.EvError).Data, &e))
	require.Equal(t, ErrBadPayload.Error(), e.Error)

	send(t, ws, "teleport", map[string]string{})
	require.NoError(t, json.Unmarshal(expect(t, ws, orch.EvError).Data, &e))
	require.Equal(t, "teleport", e.Op)

	send(t, ws, "join_room", map[string]string{"roomId": ""})
	require.NoError(t, json.Unmarshal(expect(t, ws, orch.EvError).Data, &e))
	require.Equal(t, "join_room", e.Op)
	require.Equal(t, domain.ErrRoomIDEmpty.Error(), e.Error)

	send(t, ws, "leave_room", map[string]string{"roomId": ""})
	require.NoError(t, json.Unmarshal(expect(t, ws, orch.EvError).Data, &e))
	require.Equal(t, "leave_room", e.Op)
	require.Equal(t, domain.ErrRoomIDEmpty.Error(), e.Error)

	send(t, ws, "leave_room", map[string]string{"roomId": strings.Repeat("x", domain.MaxRoomIDLen+1)})
	require.NoError(t, json.Unmarshal(expect(t, ws, orch.EvError).Data, &e))
	require.Equal(t, domain.ErrRoomIDTooLong.Error(), e.Error)
}

func TestGatewayRoomAndRelay(t *testing.T) {
	t.Parallel()
	_, srv := newGateway(t)
	alice := dial(t, srv, "alice")
	expect(t, alice, orch.EvWhoAmI)
	bob := dial(t, srv, "bob")
	expect(t, bob, orch.EvWhoAmI)

	send(t, alice, "join_room", map[string]string{"roomId": "r1"})
	expect(t, alice, orch.EvRoomJoined)
	send(t, bob, "join_room", map[string]string{"roomId": "r1"})
	expect(t, bob, orch.EvRoomJoined)
	expect(t, alice, orch.EvPeerJoined)

	send(t, alice, "webrtc:offer", map[string]any{"to": "bob", "payload": map[string]string{"sdp": "v=0"}})
	offer := expect(t, bob, "webrtc:offer")
	var relayed struct {
		From    string          `json:"from"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(offer.Data, &relayed))
	require.Equal(t, "alice", relayed.From)
	require.JSONEq(t, `{"sdp":"v=0"}`, string(relayed.Payload))
	expect(t, alice, orch.EvRelayDelivered)
}

func TestGatewayDisconnectCleansUp(t *testing.T) {
	t.Parallel()
	o, srv := newGateway(t)
	alice := dial(t, srv, "alice")
	expect(t, alice, orch.EvWhoAmI)
	bob := dial(t, srv, "bob")
	expect(t, bob, orch.EvWhoAmI)

	send(t, alice, "join_room", map[string]string{"roomId": "r1"})
	expect(t, alice, orch.EvRoomJoined)
	send(t, bob, "join_room", map[string]string{"roomId": "r1"})
	expect(t, bob, orch.EvRoomJoined)

	require.NoError(t, alice.Close())
	expect(t, bob, orch.EvPeerLeft)
	offline := expect(t, bob, orch.EvPresenceUpdate)
	var p orch.PresencePayload
	require.NoError(t, json.Unmarshal(offline.Data, &p))
	require.Equal(t, orch.PresenceOffline, p.Status)
	require.Eventually(t, func() bool { return !o.Registry.Online("alice") }, time.Second, 5*time.Millisecond)
}

func TestGatewayChatRateLimited(t *testing.T) {
	t.Parallel()
	_, srv := newGateway(t)
	ws := dial(t, srv, "alice")
	expect(t, ws, orch.EvWhoAmI)

	send(t, ws, "join_channel", map[string]string{"channel": "general"})
	for range 2 {
		send(t, ws, "message:send", map[string]string{"channel": "general", "content": "hi"})
		expect(t, ws, orch.EvMessageReceive)
	}
	send(t, ws, "message:send", map[string]string{"channel": "general", "content": "hi"})
	var e orch.ErrorPayload
	require.NoError(t, json.Unmarshal(expect(t, ws, orch.EvError).Data, &e))
	require.Equal(t, ErrRateLimited.Error(), e.Error)
}

func TestGatewayForgetsLimiterAfterLastConnection(t *testing.T) {
	t.Parallel()
	limiter := NewRoomRateLimiter(1, time.Minute)
	o, srv := newGatewayWith(t, limiter)
	phone := dial(t, srv, "alice")
	var who orch.WhoAmIPayload
	require.NoError(t, json.Unmarshal(expect(t, phone, orch.EvWhoAmI).Data, &who))
	laptop := dial(t, srv, "alice")
	expect(t, laptop, orch.EvWhoAmI)

	send(t, phone, "join_channel", map[string]string{"channel": "general"})
	send(t, phone, "message:send", map[string]string{"channel": "general", "content": "hi"})
	expect(t, phone, orch.EvMessageReceive)

	require.NoError(t, phone.Close())
	require.Eventually(t, func() bool {
		_, ok := o.Registry.GetSession(core.SessionID(who.PeerID))
		return !ok
	}, time.Second, 5*time.Millisecond)

	// The laptop is still online, so the window carries over.
	send(t, laptop, "message:send", map[string]string{"channel": "general", "content": "again"})
	var e orch.ErrorPayload
	require.NoError(t, json.Unmarshal(expect(t, laptop, orch.EvError).Data, &e))
	require.Equal(t, ErrRateLimited.Error(), e.Error)

	require.NoError(t, laptop.Close())
	require.Eventually(t, func() bool { return limiter.Allow("alice") }, time.Second, 5*time.Millisecond)
}
