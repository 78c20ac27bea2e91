package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/docsync/config"
	"github.com/mossy-p/docsync/internal/middleware"
	"github.com/mossy-p/docsync/internal/models"
	"github.com/mossy-p/docsync/internal/rooms"
	"github.com/rs/zerolog"
)

// RoomStore is the shared room directory. It is optional; without it the
// relay still works and only the directory endpoints are unavailable.
type RoomStore interface {
	CreateRoom(ctx context.Context, creatorID, roomID string) (*models.RoomMetadata, error)
	GetRoom(ctx context.Context, identifier string) (*models.RoomMetadata, error)
	DeleteRoom(ctx context.Context, room *models.RoomMetadata) error
	AddPeer(ctx context.Context, roomID, connID string) error
	RemovePeer(ctx context.Context, roomID, connID string) error
}

// Handlers serves the relay WebSocket and the room directory API.
type Handlers struct {
	cfg      *config.Config
	rooms    *rooms.Broadcaster
	store    RoomStore
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// New wires the HTTP surface. store may be nil.
func New(cfg *config.Config, b *rooms.Broadcaster, store RoomStore, logger zerolog.Logger) *Handlers {
	return &Handlers{
		cfg:   cfg,
		rooms: b,
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.Socket.ReadBufferSize,
			WriteBufferSize: cfg.Socket.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				// Origin checking is handled by middleware
				return true
			},
		},
		logger: logger.With().Str("component", "handlers").Logger(),
	}
}

// Router builds the gin engine with every route of the relay.
func (h *Handlers) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(h.logger))

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(h.cfg.AllowedOrigins, h.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"rooms":  h.rooms.RoomCount(),
		})
	})

	apiGroup := router.Group("/api")
	{
		// Login endpoint (public)
		apiGroup.POST("/auth/login", Login(h.cfg.JWTSecret))

		// Directory entries (JWT for writes, public reads)
		apiGroup.POST("/rooms", middleware.JWTAuth(h.cfg.JWTSecret), h.CreateRoom)
		apiGroup.GET("/rooms/:roomId", h.GetRoom)
		apiGroup.DELETE("/rooms/:roomId", middleware.JWTAuth(h.cfg.JWTSecret), h.DeleteRoom)
	}

	// Event relay; rooms are joined with a JOIN envelope, not by path.
	router.GET(h.cfg.RelayPath, h.HandleRelay)

	return router
}
