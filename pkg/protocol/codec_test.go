package protocol

import (
	"errors"
	"testing"
)

func TestCodecFor(t *testing.T) {
	tests := []struct {
		name     string
		wantName string
		binary   bool
		wantErr  bool
	}{
		{"", "json", false, false},
		{"json", "json", false, false},
		{"msgpack", "msgpack", true, false},
		{"phoenix", "", false, true},
	}

	for _, tt := range tests {
		c, err := CodecFor(tt.name)
		if tt.wantErr {
			if !errors.Is(err, ErrUnknownCodec) {
				t.Errorf("CodecFor(%q) error = %v, want ErrUnknownCodec", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("CodecFor(%q) unexpected error: %v", tt.name, err)
		}
		if c.Name() != tt.wantName || c.Binary() != tt.binary {
			t.Errorf("CodecFor(%q) = %s/%v", tt.name, c.Name(), c.Binary())
		}
	}
}

func TestCodecs_UserEvent(t *testing.T) {
	for _, codec := range []Codec{JSONCodec{}, MsgPackCodec{}} {
		t.Run(codec.Name(), func(t *testing.T) {
			in := UserEventMessage("7", Topic("abc"), "next", map[string]any{"email": "john@x.com"})

			data, err := codec.Encode(in)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			out, err := codec.Decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}

			if out.Ref != "7" || out.Topic != "lv:abc" || out.Event != EventUser {
				t.Errorf("header mismatch: %+v", out)
			}
			event, value := out.UserEvent()
			if event != "next" {
				t.Errorf("event = %q, want next", event)
			}
			if value["email"] != "john@x.com" {
				t.Errorf("value = %v", value)
			}
		})
	}
}

func TestDecode_MissingEvent(t *testing.T) {
	_, err := JSONCodec{}.Decode([]byte(`{"topic":"lv:x"}`))
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("error = %v, want ErrInvalidMessage", err)
	}
}

func TestUserEvent_NoValue(t *testing.T) {
	msg := NewMessage("lv:x", EventUser, map[string]any{"event": "previous"})
	event, value := msg.UserEvent()
	if event != "previous" || value == nil || len(value) != 0 {
		t.Errorf("UserEvent() = %q, %v", event, value)
	}
}

func TestReplies(t *testing.T) {
	msg := ErrorReply("3", "lv:x", "busy")
	if msg.Event != EventReply || msg.Ref != "3" {
		t.Errorf("unexpected reply header: %+v", msg)
	}
	if msg.PayloadString("status") != StatusError {
		t.Errorf("status = %q", msg.PayloadString("status"))
	}
	if msg.PayloadMap("response")["reason"] != "busy" {
		t.Errorf("response = %v", msg.Payload["response"])
	}

	render := RenderMessage("4", "lv:x", "<p>hi</p>")
	if render.PayloadString("html") != "<p>hi</p>" {
		t.Errorf("html = %q", render.PayloadString("html"))
	}
}

// FuzzJSONDecode checks that arbitrary client frames never panic and that
// anything accepted survives a re-encode.
func FuzzJSONDecode(f *testing.F) {
	f.Add([]byte(`{"ref":"1","topic":"lv:abc","event":"event","payload":{"event":"next","value":{}}}`))
	f.Add([]byte(`{"ref":"","topic":"","event":"","payload":null}`))
	f.Add([]byte(`{"event":"join","payload":{"value":"not-a-map"}}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`null`))
	f.Add([]byte(`{malformed`))
	f.Add([]byte(`{"ref": 123}`))

	codec := JSONCodec{}

	f.Fuzz(func(t *testing.T, data []byte) {
		msg, err := codec.Decode(data)
		if err != nil {
			return
		}
		msg.UserEvent()

		out, err := codec.Encode(msg)
		if err != nil {
			return
		}
		msg2, err := codec.Decode(out)
		if err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		if msg2.Event != msg.Event || msg2.Topic != msg.Topic || msg2.Ref != msg.Ref {
			t.Errorf("header changed after round trip: %+v vs %+v", msg, msg2)
		}
	})
}
