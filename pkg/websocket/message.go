// Package websocket defines the wire protocol spoken over the /ws gateway:
// clients send actions, the server answers with results or errors and pushes
// store-change events.
package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message types.
const (
	TypeAction = "action" // client -> server: invoke an action
	TypeResult = "result" // server -> client: successful action response
	TypeError  = "error"  // server -> client: failed action response
	TypeEvent  = "event"  // server -> client: pushed state change
	TypePing   = "ping"   // client -> server: liveness probe
	TypePong   = "pong"   // server -> client: liveness reply
)

// Message is the single envelope for every frame in both directions.
//
// Actions carry an optional client-chosen ID which the server echoes on the
// matching result or error so callers can correlate responses.
type Message struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Action    string          `json:"action,omitempty"`
	Event     string          `json:"event,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Code      string          `json:"code,omitempty"`    // error code, TypeError only
	Message   string          `json:"message,omitempty"` // error text, TypeError only
	Timestamp time.Time       `json:"timestamp"`
}

// ParseMessage decodes an incoming frame.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("message type is required")
	}
	return &msg, nil
}

// Encode serializes a frame for the wire.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// NewResult builds a success response for an action.
func NewResult(id, action string, data interface{}) (*Message, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result payload: %w", err)
	}
	return &Message{
		Type:      TypeResult,
		ID:        id,
		Action:    action,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}, nil
}

// NewError builds a failure response for an action.
func NewError(id, action, code, message string) *Message {
	return &Message{
		Type:      TypeError,
		ID:        id,
		Action:    action,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewEvent builds a pushed state-change frame.
func NewEvent(event string, data interface{}) (*Message, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return &Message{
		Type:      TypeEvent,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}, nil
}

// NewPong builds the reply to a ping frame.
func NewPong(id string) *Message {
	return &Message{
		Type:      TypePong,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}
