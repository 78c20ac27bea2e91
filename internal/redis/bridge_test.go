package redis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delivery struct {
	roomID, senderID string
	frame            string
}

type mockTarget struct {
	received []delivery
}

func (m *mockTarget) DeliverLocal(roomID, senderID string, frame []byte) int {
	m.received = append(m.received, delivery{roomID, senderID, string(frame)})
	return 1
}

func newTestStore() *Store {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	return NewStore(client, "test:", time.Hour)
}

func TestBridgeEnvelopeRoundTrip(t *testing.T) {
	frame := []byte(`{"action":"MESSAGE","sender":"p1","roomId":"r1","payload":""}`)
	data, err := encodeBridgeEnvelope("node-1", "r1", "conn-1", frame)
	require.NoError(t, err)

	var env bridgeEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "node-1", env.InstanceID)
	assert.Equal(t, "r1", env.RoomID)
	assert.Equal(t, "conn-1", env.SenderID)
	assert.JSONEq(t, string(frame), string(env.Frame))
}

func TestBridgeSkipsOwnMessages(t *testing.T) {
	target := &mockTarget{}
	b := NewBridge(newTestStore(), target, zerolog.Nop())

	own, err := encodeBridgeEnvelope(b.instanceID, "r1", "c1", []byte(`{}`))
	require.NoError(t, err)
	b.handle(own)
	assert.Empty(t, target.received)

	other, err := encodeBridgeEnvelope("other-node", "r1", "c2", []byte(`{"a":1}`))
	require.NoError(t, err)
	b.handle(other)
	require.Len(t, target.received, 1)
	assert.Equal(t, delivery{"r1", "c2", `{"a":1}`}, target.received[0])
}

func TestBridgeIgnoresGarbage(t *testing.T) {
	target := &mockTarget{}
	b := NewBridge(newTestStore(), target, zerolog.Nop())
	b.handle([]byte("not json"))
	assert.Empty(t, target.received)
}

func TestBridgeAvailableFalseBeforeStart(t *testing.T) {
	b := NewBridge(newTestStore(), &mockTarget{}, zerolog.Nop())
	assert.False(t, b.Available())
}

func TestBridgeInstanceIDUnique(t *testing.T) {
	s := newTestStore()
	b1 := NewBridge(s, &mockTarget{}, zerolog.Nop())
	b2 := NewBridge(s, &mockTarget{}, zerolog.Nop())
	assert.NotEqual(t, b1.instanceID, b2.instanceID)
	assert.Equal(t, "test:broadcast", b1.channel)
}

func TestStoreKeys(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, "test:room:r1", s.roomKey("r1"))
	assert.Equal(t, "test:code:ABC234", s.codeKey("ABC234"))
	assert.Equal(t, "test:room:r1:peers", s.peersKey("r1"))
}

func TestGenerateRoomCode(t *testing.T) {
	code := generateRoomCode()
	assert.Len(t, code, roomCodeLength)
	for _, c := range code {
		assert.Contains(t, codeChars, string(c))
	}
}
