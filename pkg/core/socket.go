package core

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gabrielmiguelok/stepform/pkg/protocol"
)

var (
	ErrSocketClosed = errors.New("core: socket closed")
	ErrSendFailed   = errors.New("core: send failed")
)

// Transport is the connection a Socket writes to.
type Transport interface {
	Send(msg *protocol.Message) error
	Close() error
	IsConnected() bool
}

// Socket binds a live session id to its connection. Components reach it
// through BaseComponent.Socket to push server-initiated messages.
type Socket struct {
	id    string
	topic string
	conn  Transport

	seen atomic.Int64 // unix nanos of the last inbound or outbound frame
}

// NewSocket creates a socket for session id over conn.
func NewSocket(id string, conn Transport) *Socket {
	s := &Socket{id: id, topic: protocol.Topic(id), conn: conn}
	s.Touch()
	return s
}

func (s *Socket) ID() string    { return s.id }
func (s *Socket) Topic() string { return s.topic }

// IsConnected reports whether frames can still be sent.
func (s *Socket) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

// Touch records activity on the connection.
func (s *Socket) Touch() {
	s.seen.Store(time.Now().UnixNano())
}

// Idle is the time since the last Touch.
func (s *Socket) Idle() time.Duration {
	return time.Since(time.Unix(0, s.seen.Load()))
}

// Send writes msg. A transport that went away while sending yields
// ErrSocketClosed; any other failure wraps ErrSendFailed.
func (s *Socket) Send(msg *protocol.Message) error {
	if !s.IsConnected() {
		return ErrSocketClosed
	}
	s.Touch()

	err := s.conn.Send(msg)
	switch {
	case err == nil:
		return nil
	case !s.conn.IsConnected():
		return ErrSocketClosed
	default:
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
}

// Push sends a server-initiated event on the session topic.
func (s *Socket) Push(event string, payload map[string]any) error {
	return s.Send(protocol.NewMessage(s.topic, event, payload))
}

// Close closes the connection.
func (s *Socket) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
