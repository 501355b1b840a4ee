// Package transport carries protocol messages between a browser and a live
// session over WebSocket.
package transport

import (
	"errors"
	"time"

	"github.com/gabrielmiguelok/stepform/pkg/protocol"
)

// Common transport errors.
var (
	ErrNotConnected     = errors.New("transport not connected")
	ErrSendTimeout      = errors.New("send timeout")
	ErrOriginNotAllowed = errors.New("origin not allowed")
)

// Transport is a bidirectional message channel to one client.
type Transport interface {
	// Send queues a message for the client.
	Send(msg *protocol.Message) error

	// Receive returns the channel of decoded client messages. It is closed
	// when the connection ends.
	Receive() <-chan *protocol.Message

	// Close terminates the connection. Safe to call more than once.
	Close() error

	// IsConnected returns true until Close or a read/write failure.
	IsConnected() bool

	// Done is closed when the connection ends.
	Done() <-chan struct{}
}

// Config holds transport settings.
type Config struct {
	// ReadTimeout is the longest a connection may stay silent. Clients
	// send heartbeats well inside it.
	ReadTimeout time.Duration

	// WriteTimeout bounds each frame write and each Send enqueue.
	WriteTimeout time.Duration

	// PingInterval is how often to send protocol-level pings.
	PingInterval time.Duration

	// MaxMessageSize is the maximum inbound frame size in bytes.
	MaxMessageSize int64

	SendBufferSize    int
	ReceiveBufferSize int

	// AllowedOrigins extends same-origin with explicit origins; "*"
	// allows any.
	AllowedOrigins []string

	// InsecureDevMode disables origin validation. Development only.
	InsecureDevMode bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		MaxMessageSize:    64 * 1024,
		SendBufferSize:    64,
		ReceiveBufferSize: 16,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = d.SendBufferSize
	}
	if c.ReceiveBufferSize <= 0 {
		c.ReceiveBufferSize = d.ReceiveBufferSize
	}
	return c
}
