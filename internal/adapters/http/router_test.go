package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/adapters/auth"
	"github.com/dkeye/Huddle/internal/adapters/chat"
	"github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/fanout"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/core/coretest"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type apiFixture struct {
	engine   *gin.Engine
	orch     *orch.Orchestrator
	verifier *auth.JWTVerifier
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	prov := coretest.NewProvider()
	reg := app.NewRegistry()
	o := &orch.Orchestrator{
		Registry:        reg,
		Rooms:           app.NewRoomManager(prov, app.RoomManagerOptions{Codecs: coretest.Codecs(), ProviderTimeout: time.Second}),
		Fanout:          fanout.NewRouter(reg, app.SimplePolicy{}),
		Provider:        prov,
		Chat:            chat.NewMemoryStore(10),
		ProviderTimeout: time.Second,
	}
	v, err := auth.NewJWTVerifier("jwt-secret", "huddle")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cfg := &config.Config{Mode: "test", Secret: "cookie-secret"}
	engine := SetupRouter(ctx, cfg, Deps{
		Orch:     o,
		Signal:   signal.NewSignalWSController(o, signal.NewRoomRateLimiter(10, time.Second), signal.DefaultOptions()),
		Verifier: v,
	})
	return &apiFixture{engine: engine, orch: o, verifier: v}
}

func (f *apiFixture) token(t *testing.T, user string) string {
	t.Helper()
	tok, err := f.verifier.Issue(domain.User{ID: domain.UserID(user)}, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	f := newAPI(t)
	w := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var h healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	require.Equal(t, "ok", h.Status)
	require.Zero(t, h.Rooms)
}

func TestAPIRequiresToken(t *testing.T) {
	t.Parallel()
	f := newAPI(t)
	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/rooms", "", nil).Code)
	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/rooms", "garbage", nil).Code)

	w := f.do(t, http.MethodGet, "/api/rooms", f.token(t, "alice"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"rooms":[]}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/rooms?token="+f.token(t, "alice"), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestSessionCookieAuthenticates(t *testing.T) {
	t.Parallel()
	f := newAPI(t)
	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/session", "", map[string]string{"token": "nope"}).Code)

	w := f.do(t, http.MethodPost, "/api/session", "", map[string]string{"token": f.token(t, "alice")})
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, sessionName, cookies[0].Name)

	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	f := newAPI(t)
	tok := f.token(t, "alice")

	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/rooms/r1/producers", tok, nil).Code)
	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/rooms/r1", tok, nil).Code)

	w := f.do(t, http.MethodGet, "/api/rooms/r1/rtp-capabilities", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var caps core.RouterCapabilities
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &caps))
	require.NotEmpty(t, caps.RTPCapabilities.Codecs)

	w = f.do(t, http.MethodGet, "/api/rooms", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"id":"r1"`)

	w = f.do(t, http.MethodGet, "/api/rooms/r1/producers", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"producers":[]}`, w.Body.String())

	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/rooms/r1", tok, nil).Code)
	require.Empty(t, f.orch.Rooms.List())
}

func TestTransportRequiresOwnPeer(t *testing.T) {
	t.Parallel()
	f := newAPI(t)
	sess, _ := coretest.Session("s-alice", coretest.User("alice"))
	require.True(t, f.orch.Registry.Bind("s-alice", sess, func() {}))
	bobSess, _ := coretest.Session("s-bob", coretest.User("bob"))
	require.True(t, f.orch.Registry.Bind("s-bob", bobSess, func() {}))
	tok := f.token(t, "alice")

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/rooms/r1/rtp-capabilities", tok, nil).Code)

	w := f.do(t, http.MethodPost, "/api/rooms/r1/transports", tok, map[string]string{"direction": "send"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/rooms/r1/transports", tok, map[string]string{"peerId": "s-bob", "direction": "send"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, http.MethodPost, "/api/rooms/r1/transports", tok, map[string]string{"peerId": "s-alice", "direction": "sideways"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/rooms/r1/transports", tok, map[string]string{"peerId": "s-alice", "direction": "send"})
	require.Equal(t, http.StatusCreated, w.Code)
	var params core.TransportParams
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &params))
	require.NotEmpty(t, params.ID)

	// An occupied room cannot be evicted.
	require.Equal(t, http.StatusConflict, f.do(t, http.MethodDelete, "/api/rooms/r1", tok, nil).Code)
}

func TestChannelHistory(t *testing.T) {
	t.Parallel()
	f := newAPI(t)
	tok := f.token(t, "alice")
	sess, _ := coretest.Session("s-alice", coretest.User("alice"))
	require.True(t, f.orch.Registry.Bind("s-alice", sess, func() {}))
	require.NoError(t, f.orch.Chat.Save(context.Background(), &domain.Message{
		ID:        "m1",
		Channel:   "general",
		Sender:    coretest.User("alice"),
		Content:   "hello",
		CreatedAt: time.Now(),
	}))

	// History is only readable from a connection that joined the channel.
	w := f.do(t, http.MethodGet, "/api/channels/general/messages?limit=5", tok, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	f.orch.JoinChannel(context.Background(), "s-alice", "general")

	w = f.do(t, http.MethodGet, "/api/channels/general/messages?limit=5", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Channel  string           `json:"channel"`
		Messages []domain.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Equal(t, "general", out.Channel)
	require.Len(t, out.Messages, 1)
	require.Equal(t, "hello", out.Messages[0].Content)

	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/channels/general/messages?limit=zero", tok, nil).Code)
	require.Equal(t, http.StatusForbidden, f.do(t, http.MethodGet, "/api/channels/general/messages", f.token(t, "bob"), nil).Code)
}
