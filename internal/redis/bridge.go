package redis

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// LocalTarget receives frames relayed from other instances.
type LocalTarget interface {
	DeliverLocal(roomID, senderID string, frame []byte) int
}

// bridgeEnvelope tags a relayed frame with the originating instance so a
// node can skip its own publications.
type bridgeEnvelope struct {
	InstanceID string          `json:"instance_id"`
	RoomID     string          `json:"room_id"`
	SenderID   string          `json:"sender_id"`
	Frame      json.RawMessage `json:"frame"`
}

// Bridge relays MESSAGE frames between relay instances over Redis pub/sub.
type Bridge struct {
	client     *redis.Client
	channel    string
	instanceID string
	target     LocalTarget
	logger     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	active bool
}

// NewBridge creates a bridge sharing the store's client.
func NewBridge(s *Store, target LocalTarget, logger zerolog.Logger) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		client:     s.client,
		channel:    s.prefix + "broadcast",
		instanceID: uuid.New().String(),
		target:     target,
		logger:     logger.With().Str("component", "redis-bridge").Logger(),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start subscribes to the broadcast channel and begins relaying.
func (b *Bridge) Start() error {
	sub := b.client.Subscribe(b.ctx, b.channel)

	// Wait for subscription confirmation.
	if _, err := sub.Receive(b.ctx); err != nil {
		_ = sub.Close()
		return err
	}

	b.mu.Lock()
	b.active = true
	b.mu.Unlock()

	b.wg.Add(1)
	go b.listen(sub)

	b.logger.Info().
		Str("instance_id", b.instanceID).
		Str("channel", b.channel).
		Msg("redis bridge started")
	return nil
}

// Publish sends a frame to the other instances.
func (b *Bridge) Publish(roomID, senderID string, frame []byte) error {
	data, err := encodeBridgeEnvelope(b.instanceID, roomID, senderID, frame)
	if err != nil {
		return err
	}
	return b.client.Publish(b.ctx, b.channel, data).Err()
}

// Stop unsubscribes. The client is owned by the store and stays open.
func (b *Bridge) Stop() {
	b.mu.Lock()
	b.active = false
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
}

// Available reports whether the bridge is subscribed.
func (b *Bridge) Available() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active
}

func (b *Bridge) listen(sub *redis.PubSub) {
	defer b.wg.Done()
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.handle([]byte(msg.Payload))
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *Bridge) handle(payload []byte) {
	var env bridgeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		b.logger.Error().Err(err).Msg("failed to decode bridge message")
		return
	}
	if env.InstanceID == b.instanceID {
		return
	}
	n := b.target.DeliverLocal(env.RoomID, env.SenderID, env.Frame)
	b.logger.Debug().
		Str("from_instance", env.InstanceID).
		Str("room_id", env.RoomID).
		Int("delivered", n).
		Msg("relayed frame from redis")
}

func encodeBridgeEnvelope(instanceID, roomID, senderID string, frame []byte) ([]byte, error) {
	return json.Marshal(bridgeEnvelope{
		InstanceID: instanceID,
		RoomID:     roomID,
		SenderID:   senderID,
		Frame:      json.RawMessage(frame),
	})
}
