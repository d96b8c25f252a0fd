package http

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dkeye/Lounge/internal/app/orch"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const internalTokenHeader = "X-Internal-Token"

// InternalTokenMiddleware guards the trigger API. An empty token disables it.
func InternalTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(internalTokenHeader)
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

type messageBody struct {
	Message json.RawMessage `json:"message" binding:"required"`
}

type roomBody struct {
	Title string         `json:"title" binding:"required"`
	Extra map[string]any `json:"extra"`
}

// triggers adapts the CRUD layer's post-commit callbacks to the orchestrator.
type triggers struct {
	orch *orch.Orchestrator
}

func registerTriggers(g *gin.RouterGroup, o *orch.Orchestrator) {
	t := &triggers{orch: o}
	g.POST("/rooms/:room_id/messages", t.messageSent)
	g.PUT("/rooms/:room_id/messages/:message_id", t.messageEdited)
	g.DELETE("/rooms/:room_id/messages/:message_id", t.messageDeleted)
	g.PUT("/rooms/:room_id", t.roomUpdated)
	g.DELETE("/rooms/:room_id", t.roomDeleted)
	g.POST("/room-list", t.roomListChanged)
	g.POST("/users/:user_id/ban", t.userBanned)
	g.POST("/users/:user_id/notifications", t.notificationsChanged)
}

func accepted(c *gin.Context, trigger string) {
	log.Debug().Str("module", "adapters.http").Str("trigger", trigger).Str("request_id", c.GetString("request_id")).Msg("trigger fired")
	c.Status(http.StatusAccepted)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func roomParam(c *gin.Context) (domain.RoomID, bool) {
	id, err := domain.ParseRoomID(c.Param("room_id"))
	if err != nil {
		badRequest(c, err)
		return 0, false
	}
	return id, true
}

func messageParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("message_id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad message id"})
		return 0, false
	}
	return id, true
}

func userParam(c *gin.Context) (domain.UserID, bool) {
	id, err := domain.ParseUserID(c.Param("user_id"))
	if err != nil {
		badRequest(c, err)
		return 0, false
	}
	return id, true
}

func (t *triggers) messageSent(c *gin.Context) {
	room, ok := roomParam(c)
	if !ok {
		return
	}
	var body messageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	t.orch.NotifyMessageSent(room, body.Message)
	accepted(c, "message_send")
}

func (t *triggers) messageEdited(c *gin.Context) {
	room, ok := roomParam(c)
	if !ok {
		return
	}
	msg, ok := messageParam(c)
	if !ok {
		return
	}
	var body messageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	t.orch.NotifyMessageEdited(room, msg, body.Message)
	accepted(c, "message_edit")
}

func (t *triggers) messageDeleted(c *gin.Context) {
	room, ok := roomParam(c)
	if !ok {
		return
	}
	msg, ok := messageParam(c)
	if !ok {
		return
	}
	t.orch.NotifyMessageDeleted(room, msg)
	accepted(c, "message_delete")
}

func (t *triggers) roomUpdated(c *gin.Context) {
	room, ok := roomParam(c)
	if !ok {
		return
	}
	var body roomBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	t.orch.NotifyRoomUpdated(room, body.Title, body.Extra)
	accepted(c, "room_update")
}

func (t *triggers) roomDeleted(c *gin.Context) {
	room, ok := roomParam(c)
	if !ok {
		return
	}
	t.orch.NotifyRoomDeleted(room)
	accepted(c, "room_delete")
}

func (t *triggers) roomListChanged(c *gin.Context) {
	t.orch.NotifyRoomListChanged()
	accepted(c, "room_list_update")
}

func (t *triggers) userBanned(c *gin.Context) {
	uid, ok := userParam(c)
	if !ok {
		return
	}
	t.orch.NotifyUserBanned(uid)
	accepted(c, "ban")
}

func (t *triggers) notificationsChanged(c *gin.Context) {
	uid, ok := userParam(c)
	if !ok {
		return
	}
	t.orch.NotifyNotificationListChanged(uid)
	accepted(c, "notification_list_update")
}
