// Package core is the component model live form sessions are built on: a
// Component per session, its Assigns and the Socket to its client.
package core

import (
	"context"
	"io"
)

// Component is the server-side state of one live view. The router mounts
// it once, delivers client events to HandleEvent one at a time and renders
// it after each event that changed its assigns.
type Component interface {
	Name() string
	Mount(ctx context.Context, params Params, session Session) error
	Render(ctx context.Context) Renderer
	HandleEvent(ctx context.Context, event string, payload map[string]any) error
	Terminate(ctx context.Context, reason TerminateReason) error
}

// Factory returns a new component for each session.
type Factory func() Component

// Renderer writes a component's HTML.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, w io.Writer) error { return f(ctx, w) }

// Params are the query parameters of the page URL.
type Params map[string]string

func (p Params) Get(key string) string { return p[key] }

// GetDefault returns def when key is absent. A present empty value is
// returned as is.
func (p Params) GetDefault(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Session holds per-request data gathered by the HTTP layer: the request
// id and cookies.
type Session map[string]any

// GetString returns the value for key if it is a string.
func (s Session) GetString(key string) string {
	v, _ := s[key].(string)
	return v
}

// TerminateReason says why a session ended.
type TerminateReason int

const (
	TerminateNormal     TerminateReason = iota // client sent leave, or the HTTP render finished
	TerminateShutdown                          // server shutting down
	TerminateDisconnect                        // connection lost
)

var terminateReasons = [...]string{"normal", "shutdown", "disconnect"}

func (r TerminateReason) String() string {
	if r < 0 || int(r) >= len(terminateReasons) {
		return "unknown"
	}
	return terminateReasons[r]
}

// BaseComponent supplies no-op lifecycle methods, lazily created Assigns
// and the socket set by the router. Embed it and override what you need.
type BaseComponent struct {
	socket  *Socket
	assigns *Assigns
}

// SetSocket is called by the router before Mount on live sessions.
func (bc *BaseComponent) SetSocket(s *Socket) { bc.socket = s }

// Socket is nil during the initial HTTP render.
func (bc *BaseComponent) Socket() *Socket { return bc.socket }

func (bc *BaseComponent) Assigns() *Assigns {
	if bc.assigns == nil {
		bc.assigns = NewAssigns()
	}
	return bc.assigns
}

func (bc *BaseComponent) Mount(context.Context, Params, Session) error { return nil }

func (bc *BaseComponent) HandleEvent(context.Context, string, map[string]any) error { return nil }

func (bc *BaseComponent) Terminate(context.Context, TerminateReason) error { return nil }
