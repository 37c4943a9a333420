package http

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/app/orch"
	"github.com/dkeye/Parley/internal/config"
	"github.com/dkeye/Parley/internal/protocol"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, tweak func(*config.Config)) (*httptest.Server, *orch.Orchestrator) {
	t.Helper()
	cfg := config.Default()
	cfg.Mode = "test"
	cfg.Secret = "test-secret"
	if tweak != nil {
		tweak(cfg)
	}
	o := orch.New(app.NewRegistry(), app.NewRoomStore(), cfg.Policy(), cfg.ClosurePolicy)

	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(SetupRouter(ctx, cfg, o))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, o
}

type peer struct {
	t  *testing.T
	ws *websocket.Conn
	id string
}

func dial(t *testing.T, srv *httptest.Server) *peer {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws/signal"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	p := &peer{t: t, ws: ws}
	p.send(protocol.TypeWhoAmI, nil)
	who := decode[protocol.WhoAmI](t, p.expect(protocol.TypeWhoAmI))
	require.NotEmpty(t, who.UserID)
	p.id = who.UserID
	return p
}

func (p *peer) send(typ string, v any) {
	p.t.Helper()
	b, err := protocol.Encode(typ, v)
	require.NoError(p.t, err)
	require.NoError(p.t, p.ws.WriteMessage(websocket.TextMessage, b))
}

// expect reads frames until one of type typ arrives.
func (p *peer) expect(typ string) protocol.Envelope {
	p.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(p.t, p.ws.SetReadDeadline(deadline))
		_, data, err := p.ws.ReadMessage()
		require.NoError(p.t, err, "waiting for %s", typ)
		env, err := protocol.Decode(data, 0)
		require.NoError(p.t, err)
		if env.Type == typ {
			return env
		}
	}
}

func decode[T any](t *testing.T, env protocol.Envelope) T {
	t.Helper()
	v, err := protocol.DecodeData[T](env)
	require.NoError(t, err)
	return v
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := nethttp.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out))
	}
	return resp.StatusCode
}

func TestOwnerLeavingClosesRoom(t *testing.T) {
	srv, _ := newServer(t, nil)
	a := dial(t, srv)
	b := dial(t, srv)

	a.send(protocol.TypeCreateRoom, protocol.RoomRequest{RoomID: "r1"})
	created := decode[protocol.RoomCreated](t, a.expect(protocol.TypeRoomCreated))
	assert.Equal(t, "r1", created.RoomID)

	b.send(protocol.TypeJoinRoom, protocol.RoomRequest{RoomID: "r1"})
	joined := decode[protocol.RoomJoined](t, b.expect(protocol.TypeRoomJoined))
	assert.Equal(t, a.id, joined.Owner)
	assert.ElementsMatch(t, []string{a.id, b.id}, joined.Members)

	user := decode[protocol.UserEvent](t, a.expect(protocol.TypeUserJoined))
	assert.Equal(t, b.id, user.UserID)

	a.send(protocol.TypeAudioStream, protocol.AudioRequest{RoomID: "r1", Audio: []byte(`"AAAA"`), Language: "sq-AL"})
	audio := decode[protocol.AudioEvent](t, b.expect(protocol.TypeAudioStream))
	assert.Equal(t, a.id, audio.UserID)
	assert.Equal(t, "sq-AL", audio.Language)
	assert.JSONEq(t, `"AAAA"`, string(audio.Audio))

	require.NoError(t, a.ws.Close())
	closed := decode[protocol.RoomClosed](t, b.expect(protocol.TypeRoomClosed))
	assert.Equal(t, "r1", closed.RoomID)

	require.Eventually(t, func() bool {
		return getJSON(t, srv.URL+"/api/rooms/r1", nil) == nethttp.StatusNotFound
	}, 2*time.Second, 20*time.Millisecond)
}

func TestEmptyPolicyKeepsRoomAfterOwnerLeaves(t *testing.T) {
	srv, _ := newServer(t, func(c *config.Config) { c.ClosurePolicy = app.CloseWhenEmpty })
	a := dial(t, srv)
	b := dial(t, srv)

	a.send(protocol.TypeCreateRoom, protocol.RoomRequest{RoomID: "r1"})
	a.expect(protocol.TypeRoomCreated)
	b.send(protocol.TypeJoinRoom, protocol.RoomRequest{RoomID: "r1"})
	b.expect(protocol.TypeRoomJoined)

	a.send(protocol.TypeLeaveRoom, protocol.RoomRequest{RoomID: "r1"})
	a.expect(protocol.TypeRoomLeft)
	left := decode[protocol.UserEvent](t, b.expect(protocol.TypeUserLeft))
	assert.Equal(t, a.id, left.UserID)

	var info struct {
		ID          string `json:"id"`
		MemberCount int    `json:"member_count"`
	}
	require.Equal(t, nethttp.StatusOK, getJSON(t, srv.URL+"/api/rooms/r1", &info))
	assert.Equal(t, 1, info.MemberCount)

	var list struct {
		Rooms []struct {
			ID string `json:"id"`
		} `json:"rooms"`
	}
	require.Equal(t, nethttp.StatusOK, getJSON(t, srv.URL+"/api/rooms", &list))
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, "r1", list.Rooms[0].ID)
}

func TestSignalToNamedPeer(t *testing.T) {
	srv, _ := newServer(t, nil)
	a := dial(t, srv)
	b := dial(t, srv)
	c := dial(t, srv)

	a.send(protocol.TypeCreateRoom, protocol.RoomRequest{RoomID: "r1"})
	a.expect(protocol.TypeRoomCreated)
	for _, p := range []*peer{b, c} {
		p.send(protocol.TypeJoinRoom, protocol.RoomRequest{RoomID: "r1"})
		p.expect(protocol.TypeRoomJoined)
	}
	b.expect(protocol.TypeUserJoined)

	a.send(protocol.TypeSignal, protocol.SignalRequest{RoomID: "r1", To: c.id, Payload: []byte(`{"sdp":"x"}`)})
	sig := decode[protocol.SignalEvent](t, c.expect(protocol.TypeSignal))
	assert.Equal(t, a.id, sig.UserID)
	assert.JSONEq(t, `{"sdp":"x"}`, string(sig.Payload))

	// b must not see it; the next thing b receives is its own pong.
	b.send(protocol.TypePing, nil)
	require.NoError(t, b.ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := b.ws.ReadMessage()
	require.NoError(t, err)
	env, err := protocol.Decode(data, 0)
	require.NoError(t, err)
	assert.Equal(t, protocol.TypePong, env.Type)
}

func TestOversizedPayloadIsRejected(t *testing.T) {
	srv, _ := newServer(t, func(c *config.Config) { c.MaxPayload = 128 })
	a := dial(t, srv)

	a.send(protocol.TypeAudioData, protocol.AudioRequest{RoomID: "r1", Audio: []byte(`"` + strings.Repeat("A", 512) + `"`)})
	ev := decode[protocol.ErrorEvent](t, a.expect(protocol.TypeError))
	assert.Equal(t, "payload_too_large", ev.Code)

	a.send(protocol.TypePing, nil)
	a.expect(protocol.TypePong)
}

func TestJoinUnknownRoom(t *testing.T) {
	srv, _ := newServer(t, nil)
	a := dial(t, srv)

	a.send(protocol.TypeJoinRoom, protocol.RoomRequest{RoomID: "nope"})
	ev := decode[protocol.ErrorEvent](t, a.expect(protocol.TypeError))
	assert.Equal(t, "room_not_found", ev.Code)
}

func TestRoomRateLimit(t *testing.T) {
	srv, _ := newServer(t, func(c *config.Config) {
		c.RoomRateLimit = 1
		c.RoomRateInterval = time.Minute
	})
	a := dial(t, srv)

	a.send(protocol.TypeCreateRoom, protocol.RoomRequest{RoomID: "r1"})
	a.expect(protocol.TypeRoomCreated)
	a.send(protocol.TypeLeaveRoom, protocol.RoomRequest{RoomID: "r1"})
	a.expect(protocol.TypeRoomLeft)

	a.send(protocol.TypeCreateRoom, protocol.RoomRequest{RoomID: "r2"})
	ev := decode[protocol.ErrorEvent](t, a.expect(protocol.TypeError))
	assert.Equal(t, "rate_limited", ev.Code)
}

func TestHealthz(t *testing.T) {
	srv, _ := newServer(t, nil)
	var body struct {
		Status string `json:"status"`
	}
	require.Equal(t, nethttp.StatusOK, getJSON(t, srv.URL+"/healthz", &body))
	assert.Equal(t, "ok", body.Status)
}

func TestRoomLookupRejectsBadID(t *testing.T) {
	srv, _ := newServer(t, nil)
	status := getJSON(t, srv.URL+"/api/rooms/"+strings.Repeat("x", 100), nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)
}

func TestOversizedTransportFrameDisconnects(t *testing.T) {
	srv, o := newServer(t, func(c *config.Config) {
		c.ReadLimit = 1024
		c.MaxPayload = 512
	})
	a := dial(t, srv)
	b := dial(t, srv)

	a.send(protocol.TypeCreateRoom, protocol.RoomRequest{RoomID: "r1"})
	a.expect(protocol.TypeRoomCreated)
	b.send(protocol.TypeJoinRoom, protocol.RoomRequest{RoomID: "r1"})
	b.expect(protocol.TypeRoomJoined)
	a.expect(protocol.TypeUserJoined)

	require.NoError(t, b.ws.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 4096))))

	left := decode[protocol.UserEvent](t, a.expect(protocol.TypeUserLeft))
	assert.Equal(t, b.id, left.UserID)
	members, err := o.Rooms.MembersOf("r1")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestSlowReaderIsKicked(t *testing.T) {
	srv, o := newServer(t, func(c *config.Config) {
		c.SendBuffer = 1
		c.WriteWait = 500 * time.Millisecond
	})
	a := dial(t, srv)
	b := dial(t, srv)

	a.send(protocol.TypeCreateRoom, protocol.RoomRequest{RoomID: "r1"})
	a.expect(protocol.TypeRoomCreated)
	b.send(protocol.TypeJoinRoom, protocol.RoomRequest{RoomID: "r1"})
	b.expect(protocol.TypeRoomJoined)
	a.expect(protocol.TypeUserJoined)

	// b stops reading; enough audio to fill the socket buffers and its queue.
	chunk := []byte(`"` + strings.Repeat("A", 200<<10) + `"`)
	for range 150 {
		a.send(protocol.TypeAudioData, protocol.AudioRequest{RoomID: "r1", Audio: chunk})
	}

	left := decode[protocol.UserEvent](t, a.expect(protocol.TypeUserLeft))
	assert.Equal(t, b.id, left.UserID)
	require.Eventually(t, func() bool {
		members, err := o.Rooms.MembersOf("r1")
		return err == nil && len(members) == 1
	}, 3*time.Second, 20*time.Millisecond)
}
