package signal

import (
	"errors"
	"time"

	"github.com/dkeye/QuickRoom/internal/app"
	"github.com/dkeye/QuickRoom/internal/core"
	"github.com/dkeye/QuickRoom/internal/metrics"
	"github.com/dkeye/QuickRoom/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const closeWait = time.Second

func deadline(d time.Duration) time.Time { return time.Now().Add(d) }

func (ctl *Controller) writePump(id core.ConnID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctl.ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(deadline(ctl.cfg.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(id)).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(deadline(ctl.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(id)).Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(sess *app.Session, c *WsSignalConn) {
	sid := string(sess.ID())
	defer func() {
		sess.Close()
		c.Close()
		ctl.untrack(sess.ID())
		log.Info().Str("module", "signal").Str("sid", sid).Msg("readPump closed")
	}()

	_ = c.conn.SetReadDeadline(deadline(ctl.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(deadline(ctl.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", sid).Msg("readPump read error")
			}
			return
		}
		if !ctl.handleFrame(sess, data) {
			return
		}
	}
}

// handleFrame dispatches one inbound frame and reports whether the
// connection should stay open.
func (ctl *Controller) handleFrame(sess *app.Session, data []byte) bool {
	sid := string(sess.ID())
	ev, err := protocol.Decode(data)
	if err != nil {
		metrics.ProtocolErrors.Inc()
		log.Warn().Err(err).Str("module", "signal").Str("sid", sid).Msg("bad frame dropped")
		return true
	}

	err = sess.Handle(ev)
	switch {
	case err == nil:
		return true
	case errors.Is(err, protocol.ErrProtocol):
		metrics.ProtocolErrors.Inc()
		log.Warn().Err(err).Str("module", "signal").Str("sid", sid).Str("type", string(ev.Type())).Msg("event rejected")
		return true
	case errors.Is(err, app.ErrSessionClosed):
		log.Debug().Str("module", "signal").Str("sid", sid).Msg("event after close ignored")
		return false
	case errors.Is(err, core.ErrUnknownSession):
		log.Error().Err(err).Str("module", "signal").Str("sid", sid).Str("room", string(sess.Room())).Msg("session lost its registry entry")
		return false
	default:
		log.Error().Err(err).Str("module", "signal").Str("sid", sid).Msg("handle event")
		return true
	}
}
