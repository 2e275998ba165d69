package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/dkeye/QuickRoom/internal/app"
	"github.com/dkeye/QuickRoom/internal/config"
	"github.com/dkeye/QuickRoom/internal/core"
	"github.com/dkeye/QuickRoom/internal/domain"
	"github.com/dkeye/QuickRoom/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// ClientTokenKey is the gin context key holding the browser token.
const ClientTokenKey = "client_token"

// RoomChecker tells whether a room code was ever issued.
type RoomChecker interface {
	RoomExists(ctx context.Context, code domain.RoomCode) (bool, error)
}

// Controller accepts chat connections and runs their read and write pumps.
type Controller struct {
	ctx   context.Context
	Orch  *app.Orchestrator
	rooms RoomChecker
	cfg   config.WSConfig

	upgrader websocket.Upgrader

	mu      sync.Mutex
	conns   map[core.ConnID]*WsSignalConn
	pumps   conc.WaitGroup
	closing bool
}

func NewController(ctx context.Context, orch *app.Orchestrator, rooms RoomChecker, cfg config.WSConfig) *Controller {
	return &Controller{
		ctx:   ctx,
		Orch:  orch,
		rooms: rooms,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[core.ConnID]*WsSignalConn),
	}
}

// WsSignalConn is the outbound side of one websocket. Frames are queued by
// TrySend and written by the write pump.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

// Close stops the write pump and closes the socket, which ends the read pump.
func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), deadline(closeWait))
		_ = c.conn.Close()
	}
}

// HandleChat serves GET /ws/chat/<room_code>/.
func (ctl *Controller) HandleChat(c *gin.Context) {
	code := domain.ParseRoomCode(c.Param("room"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing room code"})
		return
	}

	if ctl.cfg.RequireKnownRoom {
		ok, err := ctl.rooms.RoomExists(c.Request.Context(), code)
		if err != nil {
			log.Error().Err(err).Str("module", "signal").Str("room", string(code)).Msg("room lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
			return
		}
		if !ok {
			log.Info().Str("module", "signal").Str("room", string(code)).Msg("ws rejected, unknown room")
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.cfg.ReadLimit)
	conn := newWsSignalConn(ws, ctl.cfg.SendBuffer)

	id := core.NewConnID()
	sess, err := ctl.Orch.Connect(code, id, conn)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("room", string(code)).Str("sid", string(id)).Msg("connect failed")
		conn.Close()
		return
	}

	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if ctl.closing {
		sess.Close()
		conn.Close()
		return
	}
	ctl.conns[id] = conn
	metrics.ConnectionsActive.Inc()
	log.Info().Str("module", "signal").Str("room", string(code)).Str("sid", string(id)).Str("client", c.GetString(ClientTokenKey)).Msg("new WS connection")

	ctl.pumps.Go(func() { ctl.writePump(id, conn) })
	ctl.pumps.Go(func() { ctl.readPump(sess, conn) })
}

func (ctl *Controller) untrack(id core.ConnID) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	if _, ok := ctl.conns[id]; ok {
		delete(ctl.conns, id)
		metrics.ConnectionsActive.Dec()
	}
}

// Shutdown closes every live connection and waits until their sessions
// have been cleaned up. New connections are refused afterwards.
func (ctl *Controller) Shutdown() {
	ctl.mu.Lock()
	ctl.closing = true
	conns := lo.Values(ctl.conns)
	ctl.mu.Unlock()

	log.Info().Str("module", "signal").Int("connections", len(conns)).Msg("closing connections")
	for _, c := range conns {
		c.Close()
	}
	ctl.pumps.Wait()
}
