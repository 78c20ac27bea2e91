package models

import (
	"encoding/json"
	"fmt"
)

// Action is the envelope-level verb.
type Action string

const (
	ActionJoin    Action = "JOIN"
	ActionMessage Action = "MESSAGE"
)

// Envelope is the unit of wire exchange between a participant and the relay.
// Payload is an Event for MESSAGE and an empty JSON string for JOIN.
type Envelope struct {
	Action  Action          `json:"action"`
	Sender  string          `json:"sender"`
	RoomID  string          `json:"roomId"`
	Payload json.RawMessage `json:"payload"`
}

var emptyPayload = json.RawMessage(`""`)

// NewJoinEnvelope builds the JOIN handshake for roomID.
func NewJoinEnvelope(sender, roomID string) Envelope {
	return Envelope{Action: ActionJoin, Sender: sender, RoomID: roomID, Payload: emptyPayload}
}

// NewMessageEnvelope wraps ev for broadcast to roomID.
func NewMessageEnvelope(sender, roomID string, ev Event) (Envelope, error) {
	payload, err := Serialize(ev)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Action: ActionMessage, Sender: sender, RoomID: roomID, Payload: payload}, nil
}

// Encode marshals the envelope into a text frame.
func (e Envelope) Encode() ([]byte, error) {
	if len(e.Payload) == 0 {
		e.Payload = emptyPayload
	}
	return json.Marshal(e)
}

// DecodeEnvelope parses a frame and checks the action. The payload is left
// undecoded so the relay can forward frames it does not interpret.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	switch env.Action {
	case ActionJoin, ActionMessage:
	default:
		return Envelope{}, fmt.Errorf("%w: unknown action %q", ErrMalformedEnvelope, env.Action)
	}
	if env.RoomID == "" {
		return Envelope{}, fmt.Errorf("%w: missing roomId", ErrMalformedEnvelope)
	}
	return env, nil
}

// Event decodes the payload of a MESSAGE envelope.
func (e Envelope) Event() (Event, error) {
	if e.Action != ActionMessage {
		return Event{}, fmt.Errorf("%w: %s envelope carries no event", ErrMalformedEnvelope, e.Action)
	}
	return Deserialize(e.Payload)
}
