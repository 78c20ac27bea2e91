package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/docsync/internal/middleware"
	"github.com/mossy-p/docsync/internal/models"
	"github.com/mossy-p/docsync/internal/redis"
)

// CreateRoom creates a directory entry (requires authentication)
func (h *Handlers) CreateRoom(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Room directory unavailable"})
		return
	}

	var req models.CreateRoomRequest
	// An empty body asks for a generated room id.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.store.CreateRoom(c.Request.Context(), userID.(string), req.RoomID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	h.logger.Info().
		Str("room_id", room.ID).
		Str("code", room.Code).
		Str("user_id", room.CreatorID).
		Msg("room created")

	c.JSON(http.StatusCreated, models.CreateRoomResponse{
		RoomID: room.ID,
		Code:   room.Code,
	})
}

// GetRoom gets room information by code or ID (public). Without a directory
// only rooms with live members on this instance are reported.
func (h *Handlers) GetRoom(c *gin.Context) {
	roomIdentifier := c.Param("roomId")

	if h.store == nil {
		members := h.rooms.Members(roomIdentifier)
		if len(members) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		c.JSON(http.StatusOK, models.RoomMetadata{
			ID:               roomIdentifier,
			ParticipantCount: len(members),
		})
		return
	}

	room, err := h.store.GetRoom(c.Request.Context(), roomIdentifier)
	if errors.Is(err, redis.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("room", roomIdentifier).Msg("failed to load room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load room"})
		return
	}

	c.JSON(http.StatusOK, room)
}

// DeleteRoom deletes a directory entry (requires authentication and creator)
func (h *Handlers) DeleteRoom(c *gin.Context) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Room directory unavailable"})
		return
	}

	roomID := c.Param("roomId")
	room, err := h.store.GetRoom(c.Request.Context(), roomID)
	if errors.Is(err, redis.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load room"})
		return
	}

	// Verify user is the creator
	if room.CreatorID != userID.(string) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the room creator can delete the room"})
		return
	}

	if err := h.store.DeleteRoom(c.Request.Context(), room); err != nil {
		h.logger.Error().Err(err).Str("room_id", room.ID).Msg("failed to delete room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete room"})
		return
	}

	h.logger.Info().Str("room_id", room.ID).Str("user_id", room.CreatorID).Msg("room deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted"})
}
