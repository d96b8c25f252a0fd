package signal

import (
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func newConnID() core.SubscriberID { return core.SubscriberID(uuid.NewString()) }

// HandleRoom serves /ws/room/:title[?key=]. Refusals before the upgrade
// answer with 403 or 404; nothing is registered or published for them.
func (ctl *SignalWSController) HandleRoom(c *gin.Context) {
	ctx := c.Request.Context()
	title := c.Param("title")
	sess := ctl.Orch.NewRoomSession(newConnID())
	logger := log.With().Str("module", "signal").Str("sid", string(sess.ID())).Str("room", title).Logger()

	if err := sess.Open(ctx, title, ctl.credential(c), c.Query("key")); err != nil {
		status, msg := refuse(err)
		logger.Info().Err(err).Int("status", status).Msg("room connection refused")
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		sess.Abort(ctx)
		return
	}
	conn := newWsSignalConn(ws, ctl.Cfg.SendBuffer, ctl.Cfg.WriteWait)
	if err := sess.Activate(ctx, conn); err != nil {
		logger.Info().Err(err).Msg("activation refused")
		conn.Close(domain.WSCloseCode(domain.CloseCode(err)), "forbidden")
		return
	}
	logger.Info().Int64("user", int64(sess.UserID())).Msg("room connection accepted")
	ctl.serve(ctl.ctx, sess, conn)
}
