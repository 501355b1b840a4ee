// Package testing drives live components without a browser or a WebSocket
// connection.
//
// Mount a component, send it events and assert on the rendered HTML:
//
//	lv := livetest.Mount(t, signup.New())
//	lv.Change("email", "bad-email").Event("next", nil)
//	lv.AssertText("Invalid email address")
package testing

import (
	"bytes"
	"context"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/gabrielmiguelok/stepform/pkg/core"
)

// EventRecord is one event sent through the harness.
type EventRecord struct {
	Name    string
	Payload map[string]any
	Err     error
}

// LiveViewTest is a test harness around one mounted component.
type LiveViewTest struct {
	t         testing.TB
	component core.Component
	transport *MockTransport
	socket    *core.Socket
	ctx       context.Context
	params    core.Params
	session   core.Session
	rendered  string
	events    []EventRecord
}

// MountOption configures Mount.
type MountOption func(*LiveViewTest)

// WithParams sets the mount parameters.
func WithParams(params core.Params) MountOption {
	return func(lv *LiveViewTest) {
		lv.params = params
	}
}

// WithSession sets the mount session.
func WithSession(session core.Session) MountOption {
	return func(lv *LiveViewTest) {
		lv.session = session
	}
}

// WithContext sets the base context for every callback.
func WithContext(ctx context.Context) MountOption {
	return func(lv *LiveViewTest) {
		lv.ctx = ctx
	}
}

// Mount attaches a mock socket to comp, mounts it and renders it once.
func Mount(t testing.TB, comp core.Component, opts ...MountOption) *LiveViewTest {
	t.Helper()

	lv := &LiveViewTest{
		t:         t,
		component: comp,
		transport: NewMockTransport(),
		ctx:       context.Background(),
		params:    core.Params{},
		session:   core.Session{},
	}
	for _, opt := range opts {
		opt(lv)
	}

	lv.socket = core.NewSocket(lv.transport.ID, lv.transport)
	if setter, ok := comp.(interface{ SetSocket(*core.Socket) }); ok {
		setter.SetSocket(lv.socket)
	}
	lv.ctx = core.BuildContext(lv.ctx, lv.socket, lv.session, lv.params)

	if err := comp.Mount(lv.ctx, lv.params, lv.session); err != nil {
		t.Fatalf("mount failed: %v", err)
	}
	lv.render()

	t.Cleanup(func() {
		comp.Terminate(context.Background(), core.TerminateNormal)
	})
	return lv
}

// Event dispatches a named event and re-renders. A handler error is
// recorded, not fatal; read it with Err.
func (lv *LiveViewTest) Event(name string, payload map[string]any) *LiveViewTest {
	lv.t.Helper()

	err := lv.component.HandleEvent(lv.ctx, name, payload)
	lv.events = append(lv.events, EventRecord{Name: name, Payload: payload, Err: err})
	lv.render()
	return lv
}

// Change sends a "change" event for one field.
func (lv *LiveViewTest) Change(field, value string) *LiveViewTest {
	lv.t.Helper()
	return lv.Event("change", map[string]any{"field": field, "value": value})
}

// Fill sends one "change" event per field, in key order.
func (lv *LiveViewTest) Fill(values map[string]string) *LiveViewTest {
	lv.t.Helper()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		lv.Change(k, values[k])
	}
	return lv
}

// Click sends a payload-less event, the way a button press does.
func (lv *LiveViewTest) Click(event string) *LiveViewTest {
	lv.t.Helper()
	return lv.Event(event, nil)
}

// Err returns the error of the last event.
func (lv *LiveViewTest) Err() error {
	if len(lv.events) == 0 {
		return nil
	}
	return lv.events[len(lv.events)-1].Err
}

func (lv *LiveViewTest) render() {
	lv.t.Helper()

	renderer := lv.component.Render(lv.ctx)
	if renderer == nil {
		lv.t.Fatalf("component %s returned a nil renderer", lv.component.Name())
		return
	}

	var buf bytes.Buffer
	if err := renderer.Render(lv.ctx, &buf); err != nil {
		lv.t.Fatalf("render failed: %v", err)
	}
	lv.rendered = buf.String()
}

// Rendered returns the latest rendered HTML.
func (lv *LiveViewTest) Rendered() string {
	return lv.rendered
}

// HTML returns an HTML assertion helper over the latest render.
func (lv *LiveViewTest) HTML() *HTMLAssert {
	lv.t.Helper()
	return NewHTMLAssert(lv.t, lv.rendered)
}

// AssertText checks that the rendered HTML contains text.
func (lv *LiveViewTest) AssertText(text string) *LiveViewTest {
	lv.t.Helper()
	if !strings.Contains(lv.rendered, text) {
		lv.t.Errorf("text not found: %q\nrendered:\n%s", text, lv.rendered)
	}
	return lv
}

// AssertNoText checks that the rendered HTML does not contain text.
func (lv *LiveViewTest) AssertNoText(text string) *LiveViewTest {
	lv.t.Helper()
	if strings.Contains(lv.rendered, text) {
		lv.t.Errorf("unexpected text: %q", text)
	}
	return lv
}

// AssertAssign compares an assign of a component that exposes Assigns.
func (lv *LiveViewTest) AssertAssign(key string, expected any) *LiveViewTest {
	lv.t.Helper()

	getter, ok := lv.component.(interface{ Assigns() *core.Assigns })
	if !ok {
		lv.t.Errorf("component %s has no assigns", lv.component.Name())
		return lv
	}
	if actual := getter.Assigns().Get(key); !reflect.DeepEqual(actual, expected) {
		lv.t.Errorf("assign %s:\n  expected: %v (%T)\n  actual:   %v (%T)", key, expected, expected, actual, actual)
	}
	return lv
}

// AssertNoError fails if the last event returned an error.
func (lv *LiveViewTest) AssertNoError() *LiveViewTest {
	lv.t.Helper()
	if err := lv.Err(); err != nil {
		lv.t.Errorf("unexpected event error: %v", err)
	}
	return lv
}

// Component returns the component under test.
func (lv *LiveViewTest) Component() core.Component {
	return lv.component
}

// Transport returns the mock transport behind the socket.
func (lv *LiveViewTest) Transport() *MockTransport {
	return lv.transport
}

// Socket returns the socket handed to the component.
func (lv *LiveViewTest) Socket() *core.Socket {
	return lv.socket
}

// Events returns every event dispatched so far.
func (lv *LiveViewTest) Events() []EventRecord {
	return append([]EventRecord(nil), lv.events...)
}
