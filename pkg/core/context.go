package core

import "context"

type liveKey struct{}

// live is what a session contributes to the contexts passed to its
// component.
type live struct {
	socket  *Socket
	session Session
	params  Params
}

// BuildContext creates the context a live session runs in. socket may be
// nil for the initial HTTP render.
func BuildContext(ctx context.Context, socket *Socket, session Session, params Params) context.Context {
	return context.WithValue(ctx, liveKey{}, live{socket: socket, session: session, params: params})
}

func liveFrom(ctx context.Context) live {
	l, _ := ctx.Value(liveKey{}).(live)
	return l
}

// SocketFromContext returns the session socket, or nil outside a live
// session.
func SocketFromContext(ctx context.Context) *Socket {
	return liveFrom(ctx).socket
}

// SessionFromContext returns the session data.
func SessionFromContext(ctx context.Context) Session {
	return liveFrom(ctx).session
}

// ParamsFromContext returns the connection's query parameters.
func ParamsFromContext(ctx context.Context) Params {
	return liveFrom(ctx).params
}
