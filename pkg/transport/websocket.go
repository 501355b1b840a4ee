package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/gabrielmiguelok/stepform/pkg/logging"
	"github.com/gabrielmiguelok/stepform/pkg/protocol"
)

// WebSocketTransport implements Transport over a coder/websocket
// connection. One goroutine reads, one writes and one pings.
type WebSocketTransport struct {
	cfg    Config
	codec  protocol.Codec
	conn   *websocket.Conn
	logger logging.Logger

	sendCh  chan *protocol.Message
	recvCh  chan *protocol.Message
	closeCh chan struct{}

	connected atomic.Bool
	closeOnce sync.Once
	loops     sync.WaitGroup
}

func newWebSocketTransport(conn *websocket.Conn, codec protocol.Codec, cfg Config, logger logging.Logger) *WebSocketTransport {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	t := &WebSocketTransport{
		cfg:     cfg,
		codec:   codec,
		conn:    conn,
		logger:  logger,
		sendCh:  make(chan *protocol.Message, cfg.SendBufferSize),
		recvCh:  make(chan *protocol.Message, cfg.ReceiveBufferSize),
		closeCh: make(chan struct{}),
	}
	t.connected.Store(true)
	conn.SetReadLimit(cfg.MaxMessageSize)

	t.loops.Add(3)
	go t.readLoop()
	go t.writeLoop()
	go t.pingLoop()
	return t
}

// Accept validates the request origin and upgrades it (server side). On
// failure a response has already been written.
func Accept(w http.ResponseWriter, r *http.Request, codec protocol.Codec, cfg Config, logger logging.Logger) (*WebSocketTransport, error) {
	cfg = cfg.withDefaults()

	origin := r.Header.Get("Origin")
	if !OriginAllowed(cfg, origin, r.Host) {
		http.Error(w, "Forbidden: Origin not allowed", http.StatusForbidden)
		return nil, fmt.Errorf("%w: %q", ErrOriginNotAllowed, origin)
	}

	// The origin has been checked above against a wider policy than the
	// library's same-origin default.
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return nil, fmt.Errorf("accept websocket: %w", err)
	}
	return newWebSocketTransport(conn, codec, cfg, logger), nil
}

// Dial connects to a live endpoint (client side).
func Dial(ctx context.Context, rawURL string, codec protocol.Codec, cfg Config, logger logging.Logger) (*WebSocketTransport, error) {
	cfg = cfg.withDefaults()
	conn, _, err := websocket.Dial(ctx, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial websocket: %w", err)
	}
	return newWebSocketTransport(conn, codec, cfg, logger), nil
}

// OriginAllowed reports whether a WebSocket handshake from origin may be
// accepted by a server reachable at requestHost.
func OriginAllowed(cfg Config, origin, requestHost string) bool {
	if cfg.InsecureDevMode {
		return true
	}

	// No Origin header: not a browser cross-site request.
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil || originURL.Host == "" {
		return false
	}

	if originURL.Host == requestHost {
		return true
	}

	for _, allowed := range cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
		if allowedURL, err := url.Parse(allowed); err == nil && allowedURL.Host == originURL.Host {
			return true
		}
	}

	return false
}

// Send queues a message for the write loop.
func (t *WebSocketTransport) Send(msg *protocol.Message) error {
	if !t.IsConnected() {
		return ErrNotConnected
	}

	timer := time.NewTimer(t.cfg.WriteTimeout)
	defer timer.Stop()

	select {
	case t.sendCh <- msg:
		return nil
	case <-t.closeCh:
		return ErrNotConnected
	case <-timer.C:
		return ErrSendTimeout
	}
}

// Receive returns the inbound message channel.
func (t *WebSocketTransport) Receive() <-chan *protocol.Message {
	return t.recvCh
}

// Done is closed when the connection ends.
func (t *WebSocketTransport) Done() <-chan struct{} {
	return t.closeCh
}

// IsConnected reports whether the connection is open.
func (t *WebSocketTransport) IsConnected() bool {
	return t.connected.Load()
}

// Close closes the connection and stops the loops.
func (t *WebSocketTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.connected.Store(false)
		close(t.closeCh)
		err = t.conn.Close(websocket.StatusNormalClosure, "closing")
	})
	return err
}

// Wait blocks until the read, write and ping loops have exited.
func (t *WebSocketTransport) Wait() {
	t.loops.Wait()
}

func (t *WebSocketTransport) readLoop() {
	defer t.loops.Done()
	defer close(t.recvCh)
	defer t.Close()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.ReadTimeout)
		_, data, err := t.conn.Read(ctx)
		cancel()

		if err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && t.IsConnected() {
				t.logger.Debug("websocket read ended", logging.Err(err))
			}
			return
		}

		msg, err := t.codec.Decode(data)
		if err != nil {
			t.logger.Debug("dropping undecodable frame", logging.Err(err), logging.Int("bytes", len(data)))
			continue
		}

		select {
		case t.recvCh <- msg:
		case <-t.closeCh:
			return
		}
	}
}

func (t *WebSocketTransport) writeLoop() {
	defer t.loops.Done()

	typ := websocket.MessageText
	if t.codec.Binary() {
		typ = websocket.MessageBinary
	}

	for {
		select {
		case msg := <-t.sendCh:
			data, err := t.codec.Encode(msg)
			if err != nil {
				t.logger.Warn("encode failed", logging.Err(err), logging.String("event", msg.Event))
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), t.cfg.WriteTimeout)
			err = t.conn.Write(ctx, typ, data)
			cancel()

			if err != nil {
				t.logger.Debug("websocket write failed", logging.Err(err))
				t.Close()
				return
			}

		case <-t.closeCh:
			return
		}
	}
}

func (t *WebSocketTransport) pingLoop() {
	defer t.loops.Done()

	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), t.cfg.WriteTimeout)
			err := t.conn.Ping(ctx)
			cancel()
			if err != nil && t.IsConnected() {
				t.logger.Debug("websocket ping failed", logging.Err(err))
			}
		case <-t.closeCh:
			return
		}
	}
}
