package signal

import (
	"github.com/dkeye/Lounge/internal/app/orch"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) HandleRoomList(c *gin.Context) {
	ctl.handleChannel(c, orch.RoomListChannel, 0)
}

// HandleNotificationList serves /ws/notification-list/:user_id.
func (ctl *SignalWSController) HandleNotificationList(c *gin.Context) {
	ctl.handleUserChannel(c, orch.NotificationChannel)
}

// HandleProfile serves /ws/profile/:user_id.
func (ctl *SignalWSController) HandleProfile(c *gin.Context) {
	ctl.handleUserChannel(c, orch.ProfileChannel)
}

func (ctl *SignalWSController) handleUserChannel(c *gin.Context, kind orch.ChannelKind) {
	target, err := domain.ParseUserID(c.Param("user_id"))
	if err != nil {
		status, msg := refuse(err)
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}
	ctl.handleChannel(c, kind, target)
}

func (ctl *SignalWSController) handleChannel(c *gin.Context, kind orch.ChannelKind, target domain.UserID) {
	ctx := c.Request.Context()
	sess := ctl.Orch.NewChannelSession(newConnID(), kind)
	logger := log.With().Str("module", "signal").Str("sid", string(sess.ID())).Str("channel", kind.String()).Logger()

	if err := sess.Open(ctx, ctl.credential(c), target); err != nil {
		status, msg := refuse(err)
		logger.Info().Err(err).Int("status", status).Msg("channel connection refused")
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		sess.Leave(ctx)
		return
	}
	conn := newWsSignalConn(ws, ctl.Cfg.SendBuffer, ctl.Cfg.WriteWait)
	if err := sess.Activate(conn); err != nil {
		conn.Close(domain.WSCloseCode(domain.CloseCode(err)), "forbidden")
		return
	}
	logger.Debug().Int64("user", int64(sess.UserID())).Msg("channel connection accepted")
	ctl.serve(ctl.ctx, sess, conn)
}
