// Package relay is the participant side of the room relay: one WebSocket
// connection scoped to one room at a time.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mossy-p/docsync/internal/models"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyInRoom is returned by Join while a connection is being
	// established or is open.
	ErrAlreadyInRoom = errors.New("already in room")
	// ErrTransport covers dial failures, failed handshakes and lost
	// connections.
	ErrTransport = errors.New("relay transport error")
)

// State is the connection state of a Session.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds session tuning.
type Config struct {
	URL              string
	SendBuffer       int
	InboxSize        int
	HandshakeTimeout time.Duration
	WriteWait        time.Duration
	PongWait         time.Duration
	PingInterval     time.Duration
}

// DefaultConfig returns the settings used by cmd/cosign.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		SendBuffer:       256,
		InboxSize:        256,
		HandshakeTimeout: 10 * time.Second,
		WriteWait:        10 * time.Second,
		PongWait:         60 * time.Second,
		PingInterval:     54 * time.Second,
	}
}

// Session is a participant's connection to the relay.
type Session struct {
	cfg    Config
	dialer *websocket.Dialer
	sender string
	logger zerolog.Logger

	mu      sync.Mutex
	state   State
	roomID  string
	attempt uint64 // bumped by every Join and by Leave while connecting
	conn    *websocket.Conn
	send    chan []byte
	done    chan struct{} // closed when the current connection ends

	readers sync.WaitGroup

	events      chan models.Event
	disconnects chan error
}

// New creates a disconnected session with a fresh participant id.
func New(cfg Config, logger zerolog.Logger) *Session {
	sender := uuid.New().String()
	return &Session{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		sender:      sender,
		logger:      logger.With().Str("component", "relay").Str("sender", sender).Logger(),
		events:      make(chan models.Event, cfg.InboxSize),
		disconnects: make(chan error, 1),
	}
}

// Sender is the participant id stamped on outgoing envelopes.
func (s *Session) Sender() string { return s.sender }

// Events delivers events from other members of the current room in arrival
// order. The channel is shared by every connection of the session; Join
// discards whatever a previous connection left queued.
func (s *Session) Events() <-chan models.Event { return s.events }

// Disconnects reports connections lost without a Leave.
func (s *Session) Disconnects() <-chan error { return s.disconnects }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Join connects to the relay and announces membership of roomID.
func (s *Session) Join(ctx context.Context, roomID string) error {
	s.mu.Lock()
	if s.state == Connecting || s.state == Open {
		current := s.roomID
		s.mu.Unlock()
		return fmt.Errorf("%w %q", ErrAlreadyInRoom, current)
	}
	s.state = Connecting
	s.roomID = roomID
	s.attempt++
	attempt := s.attempt
	s.mu.Unlock()

	s.readers.Wait()
	s.drainEvents()

	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		s.abortConnecting(attempt)
		return fmt.Errorf("%w: dial %s: %v", ErrTransport, s.cfg.URL, err)
	}

	frame, err := models.NewJoinEnvelope(s.sender, roomID).Encode()
	if err == nil {
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
		err = conn.WriteMessage(websocket.TextMessage, frame)
	}
	if err != nil {
		conn.Close()
		s.abortConnecting(attempt)
		return fmt.Errorf("%w: join %s: %v", ErrTransport, roomID, err)
	}

	s.mu.Lock()
	if s.attempt != attempt || s.state != Connecting {
		// Leave ran while dialing, possibly followed by another Join that
		// now owns the session.
		s.mu.Unlock()
		conn.Close()
		return fmt.Errorf("%w: left while connecting", ErrTransport)
	}
	send := make(chan []byte, s.cfg.SendBuffer)
	done := make(chan struct{})
	s.conn, s.send, s.done = conn, send, done
	s.state = Open
	s.readers.Add(1)
	s.mu.Unlock()

	go s.readPump(conn, roomID, done)
	go s.writePump(conn, send, done)

	s.logger.Info().Str("room_id", roomID).Msg("joined room")
	return nil
}

// abortConnecting closes a failed attempt unless a newer one has started.
func (s *Session) abortConnecting(attempt uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt != attempt || s.state != Connecting {
		return
	}
	s.state = Closed
	s.roomID = ""
}

func (s *Session) drainEvents() {
	for {
		select {
		case <-s.events:
		default:
			return
		}
	}
}

// Leave closes the connection with a normal closure. Calling it when not
// connected does nothing.
func (s *Session) Leave() {
	s.mu.Lock()
	switch s.state {
	case Connecting:
		s.state = Closed
		s.roomID = ""
		s.attempt++
		s.mu.Unlock()
		return
	case Open:
	default:
		s.mu.Unlock()
		return
	}
	conn, done, roomID := s.conn, s.done, s.roomID
	close(done)
	s.state = Closed
	s.roomID = ""
	s.conn = nil
	s.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.cfg.WriteWait)); err != nil {
		s.logger.Debug().Err(err).Msg("close frame not sent")
	}
	conn.Close()
	s.logger.Info().Str("room_id", roomID).Msg("left room")
}

// Publish sends ev to the other members of the current room. Events are
// dropped, not queued, while the session is not open.
func (s *Session) Publish(ev models.Event) bool {
	s.mu.Lock()
	if s.state != Open {
		state := s.state
		s.mu.Unlock()
		s.logger.Debug().Stringer("state", state).Str("kind", string(ev.Kind)).Msg("not connected, dropping event")
		return false
	}
	send, done, roomID := s.send, s.done, s.roomID
	s.mu.Unlock()

	env, err := models.NewMessageEnvelope(s.sender, roomID, ev)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode event")
		return false
	}
	frame, err := env.Encode()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode envelope")
		return false
	}

	select {
	case <-done:
		return false
	default:
	}
	select {
	case send <- frame:
		return true
	default:
		s.logger.Warn().Str("kind", string(ev.Kind)).Msg("send buffer full, dropping event")
		return false
	}
}

func (s *Session) readPump(conn *websocket.Conn, roomID string, done chan struct{}) {
	defer s.readers.Done()
	conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.connectionLost(conn, done, err)
			return
		}

		env, err := models.DecodeEnvelope(data)
		if err != nil {
			s.logger.Warn().Err(err).Msg("dropping frame")
			continue
		}
		if env.Action != models.ActionMessage || env.RoomID != roomID {
			s.logger.Debug().Str("action", string(env.Action)).Str("room_id", env.RoomID).Msg("dropping envelope for another room")
			continue
		}
		ev, err := env.Event()
		if err != nil {
			s.logger.Warn().Err(err).Str("from", env.Sender).Msg("dropping malformed event")
			continue
		}

		select {
		case s.events <- ev:
		case <-done:
			return
		}
	}
}

func (s *Session) writePump(conn *websocket.Conn, send <-chan []byte, done chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.connectionLost(conn, done, err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.connectionLost(conn, done, err)
				return
			}
		case <-done:
			return
		}
	}
}

// connectionLost moves the session to Closed once per connection and
// notifies Disconnects. It is a no-op after Leave.
func (s *Session) connectionLost(conn *websocket.Conn, done chan struct{}, cause error) {
	s.mu.Lock()
	select {
	case <-done:
		s.mu.Unlock()
		return
	default:
	}
	close(done)
	s.state = Closed
	s.roomID = ""
	s.conn = nil
	s.mu.Unlock()

	conn.Close()
	s.logger.Warn().Err(cause).Msg("disconnected")

	select {
	case s.disconnects <- fmt.Errorf("%w: disconnected: %v", ErrTransport, cause):
	default:
	}
}
