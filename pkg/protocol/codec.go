package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrInvalidMessage = errors.New("protocol: invalid message")
	ErrUnknownCodec   = errors.New("protocol: unknown codec")
)

// Codec turns messages into frames and back. Binary codecs are framed as
// WebSocket binary messages, the others as text.
type Codec interface {
	Encode(msg *Message) ([]byte, error)
	Decode(data []byte) (*Message, error)
	Name() string
	Binary() bool
}

// decode unmarshals with fn and rejects frames without an event.
func decode(data []byte, fn func([]byte, any) error) (*Message, error) {
	msg := new(Message)
	if err := fn(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrInvalidMessage)
	}
	return msg, nil
}

// JSONCodec is what the bundled browser client speaks.
type JSONCodec struct{}

func (JSONCodec) Encode(msg *Message) ([]byte, error)  { return json.Marshal(msg) }
func (JSONCodec) Decode(data []byte) (*Message, error) { return decode(data, json.Unmarshal) }
func (JSONCodec) Name() string                         { return "json" }
func (JSONCodec) Binary() bool                         { return false }

// MsgPackCodec is a compact binary alternative for non-browser clients.
// Nested payload maps decode as map[string]any, as with JSON.
type MsgPackCodec struct{}

func (MsgPackCodec) Encode(msg *Message) ([]byte, error)  { return msgpack.Marshal(msg) }
func (MsgPackCodec) Decode(data []byte) (*Message, error) { return decode(data, msgpack.Unmarshal) }
func (MsgPackCodec) Name() string                         { return "msgpack" }
func (MsgPackCodec) Binary() bool                         { return true }

// CodecFor looks a codec up by name. The empty name selects JSON.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgPackCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}
