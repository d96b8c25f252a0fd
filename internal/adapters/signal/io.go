package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// session is what the pumps drive: a room or channel protocol instance.
type session interface {
	ID() core.SubscriberID
	Run(ctx context.Context)
	HandleFrame(ctx context.Context, data []byte)
	Leave(ctx context.Context)
}

// serve runs one accepted connection until either side gives up.
func (ctl *SignalWSController) serve(ctx context.Context, sess session, c *WsSignalConn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	wg.Go(func() {
		defer cancel()
		ctl.writePump(ctx, sess.ID(), c)
	})
	wg.Go(func() { sess.Run(ctx) })
	wg.Go(func() {
		defer cancel()
		ctl.readPump(ctx, sess, c)
	})
	if r := wg.WaitAndRecover(); r != nil {
		log.Error().Str("module", "signal").Str("sid", string(sess.ID())).Str("panic", r.String()).Msg("connection panicked")
	}
	sess.Leave(context.WithoutCancel(ctx))
	c.Close(websocket.CloseNormalClosure, "")
	ctl.Limiter.Forget(sess.ID())
}

func (ctl *SignalWSController) writePump(ctx context.Context, sid core.SubscriberID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close(websocket.CloseGoingAway, "")
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Cfg.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Cfg.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, sess session, c *WsSignalConn) {
	sid := sess.ID()
	defer log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")

	c.conn.SetReadLimit(ctl.Cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !c.isClosed() {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		if !ctl.Limiter.Allow(sid) {
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("rate limited")
			ctl.sendJSON(c, domain.NewEvent(domain.EventError).With(domain.FieldError, "rate limited"))
			continue
		}
		sess.HandleFrame(ctx, data)
	}
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
