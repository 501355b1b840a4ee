package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabrielmiguelok/stepform/pkg/core"
	"github.com/gabrielmiguelok/stepform/pkg/protocol"
)

type greeter struct {
	core.BaseComponent
}

func (g *greeter) Name() string { return "greeter" }

func (g *greeter) Mount(ctx context.Context, params core.Params, session core.Session) error {
	g.Assigns().Set("name", params.GetDefault("name", "world"))
	return nil
}

func (g *greeter) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case "change":
		g.Assigns().Set("name", fmt.Sprint(payload["value"]))
	case "flash":
		return g.Socket().Push("flash", map[string]any{"text": "hi"})
	default:
		return errors.New("unknown event")
	}
	return nil
}

func (g *greeter) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<p class="greeting" data-name=%q>Hello, %s</p>`, g.Assigns().GetString("name"), g.Assigns().GetString("name"))
		return err
	})
}

func TestMountAndEvents(t *testing.T) {
	lv := Mount(t, &greeter{}, WithParams(core.Params{"name": "Ada"}))
	lv.AssertText("Hello, Ada").AssertAssign("name", "Ada")

	lv.Change("name", "Grace").AssertNoError().AssertText("Hello, Grace")
	assert.Len(t, lv.Events(), 1)

	lv.Click("bogus")
	assert.Error(t, lv.Err())
	lv.AssertText("Hello, Grace")
}

func TestPushReachesTransport(t *testing.T) {
	lv := Mount(t, &greeter{})
	lv.Click("flash").AssertNoError()

	require.Equal(t, 1, lv.Transport().SentCount())
	assert.True(t, lv.Transport().SentEvent("flash"))
	assert.Equal(t, "lv:"+lv.Transport().ID, lv.Transport().LastSent().Topic)
}

func TestHTMLAssert(t *testing.T) {
	lv := Mount(t, &greeter{})
	h := lv.HTML()

	p := h.HasElement("p", "class", "greeting", "data-name", "")
	name, ok := Attr(p, "data-name")
	assert.True(t, ok)
	assert.Equal(t, "world", name)
	assert.Equal(t, "Hello, world", Text(p))
	assert.Equal(t, 1, h.Count("p"))
	h.NoElement("input")
	h.HasText("Hello")
}

func TestFaultInjector(t *testing.T) {
	fi := NewFaultInjector(1)
	fi.Register("send", Fault{})
	assert.NoError(t, fi.Check("send"), "inactive fault")
	assert.NoError(t, fi.Check("missing"))

	fi.Activate("send")
	assert.ErrorIs(t, fi.Check("send"), ErrFaultInjected)

	fi.Deactivate("send")
	assert.NoError(t, fi.Check("send"))
}

func TestFaultInjector_Latency(t *testing.T) {
	fi := NewFaultInjector(1)
	boom := errors.New("boom")
	fi.Register("slow", Fault{Latency: 20 * time.Millisecond, Error: boom})
	fi.Activate("slow")

	start := time.Now()
	assert.ErrorIs(t, fi.Check("slow"), boom)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestFaultyTransport(t *testing.T) {
	fi := NewFaultInjector(7)
	fi.Register("send", Fault{})
	mock := NewMockTransport()
	socket := core.NewSocket("s1", NewFaultyTransport(mock, fi))

	require.NoError(t, socket.Push("ok", nil))
	fi.Activate("send")
	assert.ErrorIs(t, socket.Send(protocol.NewMessage("lv:s1", "x", nil)), core.ErrSendFailed)
	assert.Equal(t, 1, mock.SentCount())

	socket.Close()
	assert.False(t, mock.IsConnected())
}
