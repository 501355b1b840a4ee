// Package router serves live components over HTTP and WebSocket.
//
// A GET on a live route mounts a fresh component and returns its first
// render inside a Layout. The browser client then opens a WebSocket on the
// same path; that connection gets its own component instance, mounted on
// "join", and every client event is dispatched to it and answered with a
// new render. Events of one session are handled strictly in order.
package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/gabrielmiguelok/stepform/pkg/core"
	"github.com/gabrielmiguelok/stepform/pkg/logging"
	"github.com/gabrielmiguelok/stepform/pkg/protocol"
	"github.com/gabrielmiguelok/stepform/pkg/transport"
)

// Router errors.
var (
	ErrNilRenderer  = errors.New("component returned nil renderer")
	ErrNotJoined    = errors.New("event before join")
	ErrUnknownEvent = errors.New("unknown event")
)

// Timeouts bound component callbacks.
type Timeouts struct {
	Mount time.Duration
	Event time.Duration
}

// DefaultTimeouts returns the default callback timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Mount: 5 * time.Second,
		Event: 3 * time.Second,
	}
}

// Router is an http.Handler built on chi.
type Router struct {
	mux       chi.Router
	codec     protocol.Codec
	transport transport.Config
	timeouts  Timeouts
	layout    Layout
	logger    logging.Logger
	sessions  *SessionManager
	onSession func(active int)
	onEvent   func(event string, d time.Duration, err error)
}

// Option configures a Router.
type Option func(*Router)

// WithCodec sets the WebSocket wire codec. Defaults to JSON.
func WithCodec(c protocol.Codec) Option {
	return func(r *Router) {
		r.codec = c
	}
}

// WithTransportConfig sets WebSocket settings.
func WithTransportConfig(cfg transport.Config) Option {
	return func(r *Router) {
		r.transport = cfg
	}
}

// WithTimeouts sets component callback timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(r *Router) {
		r.timeouts = t
	}
}

// WithLayout replaces DefaultLayout.
func WithLayout(l Layout) Option {
	return func(r *Router) {
		r.layout = l
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// WithSessionObserver receives the active session count after each
// change.
func WithSessionObserver(fn func(active int)) Option {
	return func(r *Router) {
		r.onSession = fn
	}
}

// WithEventObserver is called after every component event with its
// handling time and result. The name is one the component declares via
// Events() []string, or UnknownEvent.
func WithEventObserver(fn func(event string, d time.Duration, err error)) Option {
	return func(r *Router) {
		r.onEvent = fn
	}
}

// New creates a router with panic recovery and request logging installed.
func New(opts ...Option) *Router {
	r := &Router{
		mux:       chi.NewRouter(),
		codec:     protocol.JSONCodec{},
		transport: transport.DefaultConfig(),
		timeouts:  DefaultTimeouts(),
		layout:    DefaultLayout,
		logger:    logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.sessions = NewSessionManager(r.onSession)

	r.mux.Use(middleware.Recoverer)
	r.mux.Use(logging.RequestLogger(r.logger))
	return r
}

// Use appends middleware. Like chi, it must be called before any route is
// registered.
func (r *Router) Use(mw ...func(http.Handler) http.Handler) {
	r.mux.Use(mw...)
}

// Live registers a live component at path.
func (r *Router) Live(path string, factory core.Factory) {
	r.mux.Get(path, func(w http.ResponseWriter, req *http.Request) {
		if isWebSocketRequest(req) {
			r.serveWebSocket(w, req, path, factory)
			return
		}
		r.renderPage(w, req, path, factory)
	})
}

// Handle registers a plain handler.
func (r *Router) Handle(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

// HandleFunc registers a plain handler function.
func (r *Router) HandleFunc(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// Sessions returns the live session manager.
func (r *Router) Sessions() *SessionManager {
	return r.sessions
}

// Shutdown closes every live session and waits for them to terminate.
func (r *Router) Shutdown(ctx context.Context) error {
	return r.sessions.CloseAll(ctx)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) renderPage(w http.ResponseWriter, req *http.Request, path string, factory core.Factory) {
	comp := factory()
	params := extractParams(req)
	session := extractSession(req)
	ctx := core.BuildContext(req.Context(), nil, session, params)

	mountCtx, cancel := context.WithTimeout(ctx, r.timeouts.Mount)
	err := comp.Mount(mountCtx, params, session)
	cancel()
	if err != nil {
		logging.L(req.Context()).Error("mount failed", logging.String("component", comp.Name()), logging.Err(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer comp.Terminate(context.Background(), core.TerminateNormal)

	body, err := render(ctx, comp)
	if err != nil {
		logging.L(req.Context()).Error("render failed", logging.String("component", comp.Name()), logging.Err(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var page bytes.Buffer
	if err := r.layout(&page, Page{Title: comp.Name(), Path: path, Body: safeHTML(body)}); err != nil {
		logging.L(req.Context()).Error("layout failed", logging.Err(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page.Bytes())
}

// serveWebSocket runs one live session for the lifetime of the connection.
func (r *Router) serveWebSocket(w http.ResponseWriter, req *http.Request, path string, factory core.Factory) {
	id := uuid.NewString()
	logger := logging.L(req.Context()).With(logging.String("session", id))

	tr, err := transport.Accept(w, req, r.codec, r.transport, logger)
	if err != nil {
		logger.Warn("websocket rejected", logging.Err(err))
		return
	}

	comp := factory()
	socket := core.NewSocket(id, tr)
	if bc, ok := comp.(interface{ SetSocket(*core.Socket) }); ok {
		bc.SetSocket(socket)
	}

	sess := &LiveSession{
		ID:        id,
		Path:      path,
		Component: comp,
		Socket:    socket,
		Transport: tr,
		Params:    extractParams(req),
		Session:   extractSession(req),
		CreatedAt: time.Now(),
		logger:    logger,
	}
	r.sessions.Add(sess)
	logger.Debug("session opened", logging.String("path", path))

	// The hijacked connection keeps the request context alive until this
	// handler returns.
	ctx := core.BuildContext(req.Context(), socket, sess.Session, sess.Params)
	reason := r.messageLoop(ctx, sess)

	comp.Terminate(context.Background(), reason)
	tr.Close()
	r.sessions.Remove(id)
	logger.Debug("session closed", logging.String("reason", reason.String()))
}

func (r *Router) messageLoop(ctx context.Context, sess *LiveSession) core.TerminateReason {
	recv := sess.Transport.Receive()

	for {
		select {
		case msg, ok := <-recv:
			if !ok {
				return core.TerminateDisconnect
			}
			sess.Socket.Touch()

			switch msg.Event {
			case protocol.EventHeartbeat:
				r.send(sess, protocol.OkReply(msg.Ref, msg.Topic, nil))

			case protocol.EventJoin:
				r.handleJoin(ctx, sess, msg)

			case protocol.EventLeave:
				r.send(sess, protocol.OkReply(msg.Ref, msg.Topic, nil))
				return core.TerminateNormal

			case protocol.EventUser:
				r.handleEvent(ctx, sess, msg)

			default:
				r.send(sess, protocol.ErrorReply(msg.Ref, msg.Topic, fmt.Sprintf("%v: %q", ErrUnknownEvent, msg.Event)))
			}

		case <-ctx.Done():
			return core.TerminateShutdown
		}
	}
}

func (r *Router) handleJoin(ctx context.Context, sess *LiveSession, msg *protocol.Message) {
	topic := sess.Socket.Topic()

	if !sess.Mounted() {
		mountCtx, cancel := context.WithTimeout(ctx, r.timeouts.Mount)
		err := sess.Component.Mount(mountCtx, sess.Params, sess.Session)
		cancel()
		if err != nil {
			sess.logger.Error("mount failed", logging.Err(err))
			r.send(sess, protocol.ErrorReply(msg.Ref, topic, "mount failed"))
			return
		}
		sess.mounted.Store(true)
	}

	html, err := render(ctx, sess.Component)
	if err != nil {
		sess.logger.Error("render failed", logging.Err(err))
		r.send(sess, protocol.ErrorReply(msg.Ref, topic, "render failed"))
		return
	}
	clearChanges(sess.Component)

	r.send(sess, protocol.OkReply(msg.Ref, topic, map[string]any{
		"session": sess.ID,
		"html":    html,
	}))
}

func (r *Router) handleEvent(ctx context.Context, sess *LiveSession, msg *protocol.Message) {
	topic := sess.Socket.Topic()
	if !sess.Mounted() {
		r.send(sess, protocol.ErrorReply(msg.Ref, topic, ErrNotJoined.Error()))
		return
	}

	event, value := msg.UserEvent()
	evCtx, cancel := context.WithTimeout(ctx, r.timeouts.Event)
	start := time.Now()
	err := sess.Component.HandleEvent(evCtx, event, value)
	cancel()
	if r.onEvent != nil {
		r.onEvent(eventLabel(sess.Component, event), time.Since(start), err)
	}
	if err != nil {
		sess.logger.Debug("event failed", logging.String("event", event), logging.Err(err))
	}

	if !hasChanges(sess.Component) {
		if err != nil {
			r.send(sess, protocol.ErrorReply(msg.Ref, topic, err.Error()))
		} else {
			r.send(sess, protocol.OkReply(msg.Ref, topic, nil))
		}
		return
	}

	html, rerr := render(ctx, sess.Component)
	if rerr != nil {
		sess.logger.Error("render failed", logging.Err(rerr))
		if err == nil {
			err = errors.New("render failed")
		}
		r.send(sess, protocol.ErrorReply(msg.Ref, topic, err.Error()))
		return
	}
	clearChanges(sess.Component)

	// One reply per ref: a failed event that still changed state carries
	// the new HTML on its error reply.
	if err != nil {
		reply := protocol.ErrorReply(msg.Ref, topic, err.Error())
		reply.PayloadMap("response")["html"] = html
		r.send(sess, reply)
		return
	}
	r.send(sess, protocol.RenderMessage(msg.Ref, topic, html))
}

// UnknownEvent is the observer label for events a component does not
// declare.
const UnknownEvent = "unknown"

// eventLabel bounds the names passed to the event observer to those the
// component lists in Events. Components without the method report every
// event as UnknownEvent.
func eventLabel(comp core.Component, event string) string {
	if d, ok := comp.(interface{ Events() []string }); ok {
		if slices.Contains(d.Events(), event) {
			return event
		}
	}
	return UnknownEvent
}

func (r *Router) send(sess *LiveSession, msg *protocol.Message) {
	if err := sess.Socket.Send(msg); err != nil && !errors.Is(err, core.ErrSocketClosed) {
		sess.logger.Warn("send failed", logging.String("event", msg.Event), logging.Err(err))
	}
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func render(ctx context.Context, comp core.Component) (string, error) {
	renderer := comp.Render(ctx)
	if renderer == nil {
		return "", ErrNilRenderer
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	if err := renderer.Render(ctx, buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type assignsOwner interface {
	Assigns() *core.Assigns
}

// hasChanges is true for components without assigns, which are always
// re-rendered.
func hasChanges(comp core.Component) bool {
	if o, ok := comp.(assignsOwner); ok {
		return o.Assigns().Changed()
	}
	return true
}

func clearChanges(comp core.Component) {
	if o, ok := comp.(assignsOwner); ok {
		o.Assigns().Flush()
	}
}

func extractParams(req *http.Request) core.Params {
	params := make(core.Params)
	for key, values := range req.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

func extractSession(req *http.Request) core.Session {
	session := make(core.Session)
	if id := req.Header.Get("X-Request-ID"); id != "" {
		session["request_id"] = id
	}
	for _, cookie := range req.Cookies() {
		session["cookie:"+cookie.Name] = cookie.Value
	}
	return session
}

func isWebSocketRequest(req *http.Request) bool {
	return strings.Contains(strings.ToLower(req.Header.Get("Upgrade")), "websocket")
}
