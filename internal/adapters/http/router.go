package http

import (
	"net/http"

	"github.com/dkeye/QuickRoom/internal/adapters/signal"
	"github.com/dkeye/QuickRoom/internal/app"
	"github.com/dkeye/QuickRoom/internal/config"
	"github.com/dkeye/QuickRoom/internal/metrics"
	"github.com/dkeye/QuickRoom/internal/store"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

const (
	sessionName    = "QuickRoomSessions"
	clientCookie   = "ct"
	clientTokenKey = signal.ClientTokenKey
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every browser a stable anonymous token so its
// REST joins and its sockets share one "client" log field.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(clientCookie)
		if token == "" {
			token = genClientToken()
			c.SetCookie(clientCookie, token, 3600*24*7, "/", "", false, true)
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

// SetupRouter wires HTTP routes (REST + WS).
//   - REST is under /api/*
//   - WebSocket upgrade lives at /ws/chat/<room_code>/
func SetupRouter(cfg *config.Config, orch *app.Orchestrator, rooms store.RoomStore, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	cookies := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions(sessionName, cookies))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := NewRoomsAPI(rooms, orch)
	g := r.Group("/api")
	g.POST("/create-room/", api.CreateRoom)
	g.POST("/join-room/", api.JoinRoom)
	g.GET("/me", api.Me)
	g.GET("/rooms", api.ListRooms)
	g.GET("/rooms/:code/members", api.Members)
	g.GET("/rooms/:code/participants", api.Participants)

	r.GET("/ws/chat/*room", ctl.HandleChat)

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")
	return r
}

// NewHandler puts the CORS allow-list in front of the router.
func NewHandler(cfg *config.Config, r *gin.Engine) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllow,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler(r)
}
