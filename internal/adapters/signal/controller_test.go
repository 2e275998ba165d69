package signal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/QuickRoom/internal/app"
	"github.com/dkeye/QuickRoom/internal/config"
	"github.com/dkeye/QuickRoom/internal/core"
	"github.com/dkeye/QuickRoom/internal/domain"
	"github.com/dkeye/QuickRoom/internal/mocks"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const room = domain.RoomCode("AB12C3")

var testWS = config.WSConfig{
	ReadLimit:        0,
	PingPeriod:       time.Minute,
	PongWait:         2 * time.Minute,
	WriteWait:        time.Second,
	SendBuffer:       16,
	RequireKnownRoom: true,
}

type harness struct {
	orch *app.Orchestrator
	ctl  *Controller
	url  string
}

func newHarness(t *testing.T, cfg config.WSConfig, rooms RoomChecker) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orch := app.NewOrchestrator(core.NewRegistry(), nil)
	ctl := NewController(t.Context(), orch, rooms, cfg)
	r := gin.New()
	r.GET("/ws/chat/*room", ctl.HandleChat)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		ctl.Shutdown()
		srv.Close()
	})
	return &harness{
		orch: orch,
		ctl:  ctl,
		url:  "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat/",
	}
}

func knownRoom(t *testing.T) RoomChecker {
	ctrl := gomock.NewController(t)
	rooms := mocks.NewMockRoomStore(ctrl)
	rooms.EXPECT().RoomExists(gomock.Any(), room).Return(true, nil).AnyTimes()
	return rooms
}

func (h *harness) dial(t *testing.T, code domain.RoomCode) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.url+string(code)+"/", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (h *harness) waitMembers(t *testing.T, code domain.RoomCode, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(h.orch.Roster(code)) == n
	}, 2*time.Second, 10*time.Millisecond)
}

func read(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]any
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func send(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func nicknames(t *testing.T, frame map[string]any) []string {
	t.Helper()
	require.Equal(t, "user_list", frame["type"])
	list, ok := frame["users"].([]any)
	require.True(t, ok)
	out := make([]string, 0, len(list))
	for _, u := range list {
		out = append(out, u.(map[string]any)["nickname"].(string))
	}
	return out
}

func TestWsSignalConn_TrySend_Backpressure(t *testing.T) {
	req := require.New(t)
	c := &WsSignalConn{send: make(chan core.Frame, 1)}

	req.NoError(c.TrySend(core.Frame("a")))
	req.ErrorIs(c.TrySend(core.Frame("b")), ErrBackpressure)

	c.Close()
	c.Close()
	req.ErrorIs(c.TrySend(core.Frame("c")), ErrConnClosed)
}

func TestHandleChat_Scenario_Three_Clients(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, testWS, knownRoom(t))

	// Given three connections to AB12C3, the third never joins
	a := h.dial(t, room)
	b := h.dial(t, room)
	c := h.dial(t, room)
	h.waitMembers(t, room, 3)

	// When A joins as alice
	send(t, a, `{"type":"join","nickname":"alice"}`)

	// Then everyone sees the system message then a roster with two empty nicknames
	for _, conn := range []*websocket.Conn{a, b, c} {
		msg := read(t, conn)
		req.Equal("system_message", msg["type"])
		req.Equal("alice joined the chat.", msg["message"])
		req.Equal([]string{"alice", "", ""}, nicknames(t, read(t, conn)))
	}

	// When B joins as bob and A chats
	send(t, b, `{"type":"join","nickname":"bob"}`)
	for _, conn := range []*websocket.Conn{a, b, c} {
		req.Equal("bob joined the chat.", read(t, conn)["message"])
		req.Equal([]string{"alice", "bob", ""}, nicknames(t, read(t, conn)))
	}
	send(t, a, `{"type":"chat_message","message":"hello"}`)

	// Then the chat reaches all three, sender included
	for _, conn := range []*websocket.Conn{a, b, c} {
		req.Equal(map[string]any{"type": "chat_message", "nickname": "alice", "message": "hello"}, read(t, conn))
	}

	// When C disconnects
	req.NoError(c.Close())

	// Then A and B only get the new roster
	for _, conn := range []*websocket.Conn{a, b} {
		req.Equal([]string{"alice", "bob"}, nicknames(t, read(t, conn)))
	}
	h.waitMembers(t, room, 2)
}

func TestHandleChat_Malformed_Frame_Keeps_Connection(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, testWS, knownRoom(t))
	a := h.dial(t, room)
	b := h.dial(t, room)
	h.waitMembers(t, room, 2)

	// When A sends frames without a type, with an unknown type and with bad JSON
	send(t, a, `{"nickname":"x"}`)
	send(t, a, `{"type":"leave"}`)
	send(t, a, `not json`)
	send(t, a, `{"type":"join","nickname":"alice"}`)

	// Then nothing was broadcast for them and A is still able to join
	req.Equal("alice joined the chat.", read(t, b)["message"])
	req.Equal("alice joined the chat.", read(t, a)["message"])
	req.Len(h.orch.Roster(room), 2)
}

func TestHandleChat_Long_Chat_Message_Keeps_Connection(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, testWS, knownRoom(t))
	a := h.dial(t, room)
	b := h.dial(t, room)
	h.waitMembers(t, room, 2)

	// When A sends a message larger than any websocket frame default
	text := strings.Repeat("x", 64*1024)
	send(t, a, `{"type":"chat_message","message":"`+text+`"}`)

	// Then it reaches both clients verbatim and A stays connected
	for _, conn := range []*websocket.Conn{a, b} {
		req.Equal(map[string]any{"type": "chat_message", "nickname": "", "message": text}, read(t, conn))
	}
	send(t, a, `{"type":"typing_indicator","is_typing":false}`)
	req.Equal("typing_indicator", read(t, b)["type"])
	req.Len(h.orch.Roster(room), 2)
}

func TestHandleChat_Typing_Before_Join(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, testWS, knownRoom(t))
	a := h.dial(t, room)
	h.waitMembers(t, room, 1)

	send(t, a, `{"type":"typing_indicator","is_typing":true}`)

	req.Equal(map[string]any{"type": "typing_indicator", "nickname": "", "is_typing": true}, read(t, a))
}

func TestHandleChat_Unknown_Room_Is_Rejected(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	rooms := mocks.NewMockRoomStore(ctrl)
	rooms.EXPECT().RoomExists(gomock.Any(), domain.RoomCode("ZZZZZZ")).Return(false, nil)
	h := newHarness(t, testWS, rooms)

	_, resp, err := websocket.DefaultDialer.Dial(h.url+"ZZZZZZ/", nil)

	req.ErrorIs(err, websocket.ErrBadHandshake)
	req.Equal(http.StatusNotFound, resp.StatusCode)
	req.Empty(h.orch.Rooms())
}

func TestHandleChat_Room_Check_Disabled(t *testing.T) {
	cfg := testWS
	cfg.RequireKnownRoom = false
	ctrl := gomock.NewController(t)
	h := newHarness(t, cfg, mocks.NewMockRoomStore(ctrl))

	// Without trailing slash; the store must not be asked
	conn, _, err := websocket.DefaultDialer.Dial(h.url+"NEW001", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	h.waitMembers(t, "NEW001", 1)
}

func TestController_Shutdown_Closes_Connections(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, testWS, knownRoom(t))
	a := h.dial(t, room)
	b := h.dial(t, room)
	h.waitMembers(t, room, 2)

	h.ctl.Shutdown()

	// Then every session was unregistered and the clients see the socket close
	req.Empty(h.orch.Rooms())
	for _, conn := range []*websocket.Conn{a, b} {
		req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
