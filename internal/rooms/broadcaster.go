package rooms

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Peer is one connection the broadcaster can deliver frames to.
type Peer interface {
	ID() string
	// Deliver queues a frame without blocking. It reports false when the
	// frame was dropped.
	Deliver(frame []byte) bool
}

// Bridge forwards frames to other relay instances.
type Bridge interface {
	Publish(roomID, senderID string, frame []byte) error
	Available() bool
}

// Room is the membership set of one room. Its mutex is the only lock taken
// while fanning out, so traffic in different rooms never contends.
type Room struct {
	ID    string
	peers map[string]Peer
	mu    sync.RWMutex
}

func (r *Room) snapshot(exclude string) []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Peer, 0, len(r.peers))
	for id, p := range r.peers {
		if id != exclude {
			out = append(out, p)
		}
	}
	return out
}

// Broadcaster re-emits MESSAGE frames to every other member of the sender's
// room. A connection belongs to at most one room.
type Broadcaster struct {
	rooms      map[string]*Room
	membership map[string]*Room // connection id -> room
	mu         sync.RWMutex

	bridge Bridge
	logger zerolog.Logger
}

// New creates an empty broadcaster.
func New(logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		rooms:      make(map[string]*Room),
		membership: make(map[string]*Room),
		logger:     logger.With().Str("component", "broadcaster").Logger(),
	}
}

// SetBridge attaches a cross-instance bridge. Frames handled by Message are
// then also published to other instances.
func (b *Broadcaster) SetBridge(br Bridge) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bridge = br
}

// Join records that peer is a member of roomID. A peer that was in another
// room leaves it first. It returns the previous room id, if any.
func (b *Broadcaster) Join(peer Peer, roomID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	previous := ""
	if old, ok := b.membership[peer.ID()]; ok {
		if old.ID == roomID {
			return roomID
		}
		previous = old.ID
		b.removeLocked(peer.ID(), old)
	}

	room, ok := b.rooms[roomID]
	if !ok {
		room = &Room{ID: roomID, peers: make(map[string]Peer)}
		b.rooms[roomID] = room
		b.logger.Info().Str("room_id", roomID).Msg("room created")
	}
	room.mu.Lock()
	room.peers[peer.ID()] = peer
	size := len(room.peers)
	room.mu.Unlock()
	b.membership[peer.ID()] = room

	b.logger.Info().
		Str("room_id", roomID).
		Str("conn_id", peer.ID()).
		Int("members", size).
		Msg("peer joined")
	return previous
}

// Leave removes connID from its room. No notification is sent to the
// remaining members.
func (b *Broadcaster) Leave(connID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room, ok := b.membership[connID]; ok {
		b.removeLocked(connID, room)
	}
}

// Disconnect is Leave for a closed connection.
func (b *Broadcaster) Disconnect(connID string) {
	b.Leave(connID)
}

func (b *Broadcaster) removeLocked(connID string, room *Room) {
	delete(b.membership, connID)

	room.mu.Lock()
	delete(room.peers, connID)
	empty := len(room.peers) == 0
	room.mu.Unlock()

	if empty {
		delete(b.rooms, room.ID)
		b.logger.Info().Str("room_id", room.ID).Msg("removed empty room")
	}
	b.logger.Info().Str("room_id", room.ID).Str("conn_id", connID).Msg("peer left")
}

// RoomOf returns the room connID currently belongs to.
func (b *Broadcaster) RoomOf(connID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	room, ok := b.membership[connID]
	if !ok {
		return "", false
	}
	return room.ID, true
}

// Message forwards frame to every member of roomID except the sender. The
// frame is dropped silently when roomID is not the sender's current room,
// which covers messages racing a leave. It returns the number of peers the
// frame was queued for.
func (b *Broadcaster) Message(senderID, roomID string, frame []byte) int {
	b.mu.RLock()
	room, ok := b.membership[senderID]
	br := b.bridge
	b.mu.RUnlock()

	if !ok || room.ID != roomID {
		b.logger.Debug().
			Str("conn_id", senderID).
			Str("room_id", roomID).
			Msg("dropping message outside sender's room")
		return 0
	}

	n := b.fanOut(room, senderID, frame)

	if br != nil && br.Available() {
		if err := br.Publish(roomID, senderID, frame); err != nil {
			b.logger.Error().Err(err).Str("room_id", roomID).Msg("bridge publish failed")
		}
	}
	return n
}

// DeliverLocal hands a frame that arrived from another instance to local
// members of roomID. It is never re-published to the bridge.
func (b *Broadcaster) DeliverLocal(roomID, senderID string, frame []byte) int {
	b.mu.RLock()
	room, ok := b.rooms[roomID]
	b.mu.RUnlock()
	if !ok {
		return 0
	}
	return b.fanOut(room, senderID, frame)
}

func (b *Broadcaster) fanOut(room *Room, exclude string, frame []byte) int {
	n := 0
	for _, p := range room.snapshot(exclude) {
		if p.Deliver(frame) {
			n++
			continue
		}
		// The peer may be gone already; its pumps clean up membership.
		b.logger.Warn().
			Str("room_id", room.ID).
			Str("conn_id", p.ID()).
			Msg("send buffer full, dropping")
	}
	return n
}

// Members returns the connection ids in roomID, sorted.
func (b *Broadcaster) Members(roomID string) []string {
	b.mu.RLock()
	room, ok := b.rooms[roomID]
	b.mu.RUnlock()
	if !ok {
		return nil
	}
	peers := room.snapshot("")
	ids := make([]string, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.ID())
	}
	sort.Strings(ids)
	return ids
}

// RoomCount returns the number of non-empty rooms.
func (b *Broadcaster) RoomCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms)
}
