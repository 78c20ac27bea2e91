package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/docsync/internal/models"
	"github.com/rs/zerolog"
)

const storeTimeout = 2 * time.Second

// Client is one relay connection. roomID is owned by the read pump.
type Client struct {
	id     string
	roomID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger zerolog.Logger
}

// ID implements rooms.Peer.
func (c *Client) ID() string { return c.id }

// Deliver implements rooms.Peer. Frames for a closed or saturated client
// are dropped.
func (c *Client) Deliver(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// HandleRelay upgrades the request and starts the connection pumps.
func (h *Handlers) HandleRelay(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	connID := uuid.New().String()
	client := &Client{
		id:     connID,
		conn:   conn,
		send:   make(chan []byte, h.cfg.Socket.SendBuffer),
		done:   make(chan struct{}),
		logger: h.logger.With().Str("conn_id", connID).Logger(),
	}
	client.logger.Info().Str("remote", c.Request.RemoteAddr).Msg("connection opened")

	go h.writePump(client)
	go h.readPump(client)
}

func (h *Handlers) readPump(c *Client) {
	defer func() {
		h.rooms.Disconnect(c.id)
		if c.roomID != "" {
			h.untrackPeer(c.roomID, c.id)
		}
		c.close()
		c.logger.Info().Str("room_id", c.roomID).Msg("connection closed")
	}()

	c.conn.SetReadLimit(h.cfg.Socket.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(h.cfg.Socket.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(h.cfg.Socket.PongWait))
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket error")
			}
			return
		}

		env, err := models.DecodeEnvelope(frame)
		if err != nil {
			c.logger.Warn().Err(err).Msg("dropping frame")
			continue
		}

		switch env.Action {
		case models.ActionJoin:
			previous := h.rooms.Join(c, env.RoomID)
			if previous == env.RoomID {
				continue
			}
			if previous != "" {
				h.untrackPeer(previous, c.id)
			}
			c.roomID = env.RoomID
			h.trackPeer(env.RoomID, c.id)
		case models.ActionMessage:
			// Forwarded unmodified; payloads are validated by receivers.
			h.rooms.Message(c.id, env.RoomID, frame)
		}
	}
}

func (h *Handlers) writePump(c *Client) {
	ticker := time.NewTicker(h.cfg.Socket.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.Socket.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				// The peer is gone; membership is cleaned up by the read pump.
				c.logger.Debug().Err(err).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.Socket.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

func (h *Handlers) trackPeer(roomID, connID string) {
	if h.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := h.store.AddPeer(ctx, roomID, connID); err != nil {
		h.logger.Warn().Err(err).Str("room_id", roomID).Msg("failed to record peer")
	}
}

func (h *Handlers) untrackPeer(roomID, connID string) {
	if h.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := h.store.RemovePeer(ctx, roomID, connID); err != nil {
		h.logger.Warn().Err(err).Str("room_id", roomID).Msg("failed to remove peer")
	}
}
