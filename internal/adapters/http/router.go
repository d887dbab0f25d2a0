package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/safequest/lobby/internal/adapters/signal"
	"github.com/safequest/lobby/internal/app"
	"github.com/safequest/lobby/internal/catalog"
	"github.com/safequest/lobby/internal/config"
	"github.com/safequest/lobby/internal/core"
	"github.com/safequest/lobby/internal/domain"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware pins an opaque per-client token in a cookie; the
// lobby WebSocket uses it as the session id.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

type profileRequest struct {
	Name            string `json:"name" binding:"required,max=24"`
	Skin            string `json:"skin" binding:"max=36"`
	TitleName       string `json:"titleName" binding:"max=36"`
	CustomCharacter string `json:"customCharacter" binding:"max=64"`
}

func SetupRouter(ctx context.Context, cfg *config.Config, coord *app.Coordinator, stages catalog.Catalog, ctl *signal.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("SafeQuestSessions", store))
	r.Use(ClientTokenMiddleware())

	// Static game bundle
	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// GET /api/rooms returns the lobby listing, same shape as the roomsUpdated push.
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": coord.Rooms.Snapshots()})
	})

	// GET /api/rooms/:id returns one room snapshot.
	api.GET("/rooms/:id", func(c *gin.Context) {
		room, ok := coord.Rooms.Get(domain.RoomID(c.Param("id")))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, room.Snapshot())
	})

	// GET /api/stages lists the training scenario catalog.
	api.GET("/stages", func(c *gin.Context) {
		list, err := stages.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "catalog unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"stages": list})
	})

	// POST /api/profile sets display name and cosmetics for this session.
	// Strict validation lives here; the WS path stays lenient.
	api.POST("/profile", func(c *gin.Context) {
		var req profileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sid := core.SessionID(c.GetString("client_token"))
		coord.Registry.GetOrCreatePlayer(sid)
		coord.Registry.UpdateProfile(sid, req.Name, domain.Cosmetics{
			Skin:            req.Skin,
			TitleName:       req.TitleName,
			CustomCharacter: req.CustomCharacter,
		})
		c.Status(http.StatusNoContent)
	})

	api.GET("/ws/lobby", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws lobby endpoint hit")
		ctl.HandleLobby(ctx, c)
	})

	return r
}
