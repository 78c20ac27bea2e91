package redis

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/mossy-p/docsync/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	roomCodeLength = 6
	codeChars      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // Removed ambiguous chars
)

// ErrRoomNotFound is returned when neither a room id nor a code matches.
var ErrRoomNotFound = errors.New("room not found")

// CreateRoom stores a directory entry for roomID (a new id when empty) with
// a fresh share code.
func (s *Store) CreateRoom(ctx context.Context, creatorID, roomID string) (*models.RoomMetadata, error) {
	if roomID == "" {
		roomID = uuid.New().String()
	}
	room := models.RoomMetadata{
		ID:        roomID,
		Code:      generateRoomCode(),
		CreatorID: creatorID,
		CreatedAt: time.Now(),
	}

	roomData, err := json.Marshal(room)
	if err != nil {
		return nil, err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.roomKey(roomID), roomData, s.ttl)
	// Store code-to-ID mapping for easy lookup
	pipe.Set(ctx, s.codeKey(room.Code), roomID, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store room %s: %w", roomID, err)
	}
	return &room, nil
}

// GetRoom looks a room up by code or id and fills in the live peer count.
func (s *Store) GetRoom(ctx context.Context, identifier string) (*models.RoomMetadata, error) {
	roomID := identifier
	if len(identifier) == roomCodeLength {
		id, err := s.client.Get(ctx, s.codeKey(identifier)).Result()
		if err == nil {
			roomID = id
		} else if !errors.Is(err, redis.Nil) {
			return nil, err
		}
	}

	roomData, err := s.client.Get(ctx, s.roomKey(roomID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}

	var room models.RoomMetadata
	if err := json.Unmarshal([]byte(roomData), &room); err != nil {
		return nil, fmt.Errorf("failed to parse room data: %w", err)
	}

	count, err := s.PeerCount(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.ParticipantCount = count
	return &room, nil
}

// DeleteRoom removes a directory entry together with its code and peer set.
func (s *Store) DeleteRoom(ctx context.Context, room *models.RoomMetadata) error {
	return s.client.Del(ctx, s.roomKey(room.ID), s.codeKey(room.Code), s.peersKey(room.ID)).Err()
}

// AddPeer records a live connection in roomID's peer set.
func (s *Store) AddPeer(ctx context.Context, roomID, connID string) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.peersKey(roomID), connID)
	pipe.Expire(ctx, s.peersKey(roomID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// RemovePeer drops a connection from roomID's peer set.
func (s *Store) RemovePeer(ctx context.Context, roomID, connID string) error {
	return s.client.SRem(ctx, s.peersKey(roomID), connID).Err()
}

// PeerCount returns the number of live connections across all instances.
func (s *Store) PeerCount(ctx context.Context, roomID string) (int, error) {
	n, err := s.client.SCard(ctx, s.peersKey(roomID)).Result()
	return int(n), err
}

// generateRoomCode generates a random room code
func generateRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}
