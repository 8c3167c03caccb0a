package http

import (
	"context"

	"github.com/dkeye/Huddle/internal/adapters/signal"
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const sessionName = "HuddleSessions"

// Deps are the application objects the HTTP surface drives.
type Deps struct {
	Orch     *orch.Orchestrator
	Signal   *signal.SignalWSController
	Verifier core.Verifier
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	health := newHealthHandler(deps.Orch)
	r.GET("/healthz", health.get)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")
	api.POST("/session", createSession(deps.Verifier))

	authed := api.Group("", Authenticate(deps.Verifier))
	authed.GET("/ws/signal", func(c *gin.Context) {
		user := CurrentUser(c)
		log.Info().Str("module", "adapters.http").Str("user", string(user.ID)).Msg("ws signal endpoint hit")
		deps.Signal.HandleSignal(ctx, c, user)
	})

	m := &mediaHandler{orch: deps.Orch}
	authed.GET("/rooms", m.listRooms)
	authed.DELETE("/rooms/:roomId", m.evictRoom)
	authed.GET("/rooms/:roomId/rtp-capabilities", m.capabilities)
	authed.POST("/rooms/:roomId/transports", m.createTransport)
	authed.POST("/rooms/:roomId/transports/:transportId/connect", m.connectTransport)
	authed.POST("/rooms/:roomId/producers", m.createProducer)
	authed.GET("/rooms/:roomId/producers", m.listProducers)
	authed.DELETE("/rooms/:roomId/producers/:producerId", m.closeProducer)
	authed.POST("/rooms/:roomId/consumers", m.createConsumer)
	authed.DELETE("/rooms/:roomId/peers/:peerId", m.closePeer)
	authed.GET("/channels/:channelId/messages", m.channelHistory)

	return r
}
