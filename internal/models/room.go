package models

import "time"

// RoomMetadata is a room directory entry. Rooms exist without one; an entry
// only gives a room a shareable code and an owner.
type RoomMetadata struct {
	ID               string    `json:"id"`
	Code             string    `json:"code"`      // Short, shareable room code (e.g., "K7QM2P")
	CreatorID        string    `json:"creatorId"` // Subject of the JWT that created the entry
	CreatedAt        time.Time `json:"createdAt"`
	ParticipantCount int       `json:"participantCount"`
}

// CreateRoomRequest is the request body for creating a room entry.
type CreateRoomRequest struct {
	RoomID string `json:"roomId,omitempty" binding:"omitempty,max=64"`
}

// CreateRoomResponse is the response for creating a room entry.
type CreateRoomResponse struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
}
