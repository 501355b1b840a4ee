// Package protocol defines the wire protocol between the browser client and
// a live form session.
package protocol

import (
	"time"
)

// Events understood by the server. Component events travel inside
// EventUser with the component event name in the "event" payload key.
const (
	EventJoin      = "join"
	EventLeave     = "leave"
	EventHeartbeat = "heartbeat"
	EventUser      = "event"

	// Server to client.
	EventReply  = "reply"
	EventRender = "render"
)

// Reply statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Message is one frame exchanged between client and server.
type Message struct {
	// Ref correlates a reply with its request.
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`

	// Topic is the session channel ("lv:<session id>").
	Topic string `json:"topic" msgpack:"topic"`

	Event string `json:"event" msgpack:"event"`

	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`

	// Timestamp in Unix milliseconds.
	Timestamp int64 `json:"ts,omitempty" msgpack:"ts,omitempty"`
}

// NewMessage creates a timestamped message.
func NewMessage(topic, event string, payload map[string]any) *Message {
	if payload == nil {
		payload = make(map[string]any)
	}
	return &Message{
		Topic:     topic,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Topic returns the channel name for a session.
func Topic(sessionID string) string {
	return "lv:" + sessionID
}

// PayloadString returns a string value from the payload.
func (m *Message) PayloadString(key string) string {
	if v, ok := m.Payload[key].(string); ok {
		return v
	}
	return ""
}

// PayloadMap returns a nested object from the payload.
func (m *Message) PayloadMap(key string) map[string]any {
	if v, ok := m.Payload[key].(map[string]any); ok {
		return v
	}
	return nil
}

// UserEvent returns the component event name and value of an EventUser
// message.
func (m *Message) UserEvent() (string, map[string]any) {
	value := m.PayloadMap("value")
	if value == nil {
		value = make(map[string]any)
	}
	return m.PayloadString("event"), value
}

// ReplyMessage creates a reply correlated to ref.
func ReplyMessage(ref, topic, status string, response map[string]any) *Message {
	msg := NewMessage(topic, EventReply, map[string]any{
		"status":   status,
		"response": response,
	})
	msg.Ref = ref
	return msg
}

// OkReply creates a successful reply.
func OkReply(ref, topic string, response map[string]any) *Message {
	return ReplyMessage(ref, topic, StatusOK, response)
}

// ErrorReply creates an error reply.
func ErrorReply(ref, topic, reason string) *Message {
	return ReplyMessage(ref, topic, StatusError, map[string]any{"reason": reason})
}

// RenderMessage carries freshly rendered component HTML.
func RenderMessage(ref, topic, html string) *Message {
	msg := NewMessage(topic, EventRender, map[string]any{"html": html})
	msg.Ref = ref
	return msg
}

// UserEventMessage builds the frame a client sends for a component event.
func UserEventMessage(ref, topic, event string, value map[string]any) *Message {
	msg := NewMessage(topic, EventUser, map[string]any{
		"event": event,
		"value": value,
	})
	msg.Ref = ref
	return msg
}
