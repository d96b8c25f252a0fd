package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Lounge/internal/adapters/rtc"
	"github.com/dkeye/Lounge/internal/adapters/signal"
	"github.com/dkeye/Lounge/internal/app/orch"
	"github.com/dkeye/Lounge/internal/config"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every request with an id, reusing the caller's.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LoungeSessions", store))
	r.Use(RequestIDMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctrl := signal.NewSignalWSController(ctx, o, cfg)
	ws := r.Group("/ws")
	ws.GET("/room-list", ctrl.HandleRoomList)
	ws.GET("/room/:title", ctrl.HandleRoom)
	ws.GET("/notification-list/:user_id", ctrl.HandleNotificationList)
	ws.GET("/profile/:user_id", ctrl.HandleProfile)

	ice := rtc.ICEConfig(cfg.ICEServers)
	api := r.Group("/api")
	api.GET("/ice-servers", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ice_servers": ice.ICEServers})
	})
	api.GET("/rooms/:room_id/voice", func(c *gin.Context) {
		id, err := domain.ParseRoomID(c.Param("room_id"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"voice_chat_users": o.VoiceRoster(c.Request.Context(), id)})
	})

	registerTriggers(r.Group("/internal", InternalTokenMiddleware(cfg.InternalToken)), o)
	return r
}
