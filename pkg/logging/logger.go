// Package logging is the structured logger used across stepform: a small
// Logger interface over log/slog, context plumbing and request logging.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Logger is implemented by SlogLogger and NopLogger.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

// Field is a key/value pair attached to a log record.
type Field = slog.Attr

func String(key, value string) Field                 { return slog.String(key, value) }
func Strings(key string, value []string) Field       { return slog.Any(key, value) }
func Int(key string, value int) Field                { return slog.Int(key, value) }
func Bool(key string, value bool) Field              { return slog.Bool(key, value) }
func Duration(key string, value time.Duration) Field { return slog.Duration(key, value) }
func Any(key string, value any) Field                { return slog.Any(key, value) }

// Err attaches err under the "error" key.
func Err(err error) Field { return slog.Any("error", err) }

// SlogLogger writes through a slog.Handler.
type SlogLogger struct {
	logger *slog.Logger
	ctx    context.Context
}

type options struct {
	level     slog.Level
	out       io.Writer
	json      bool
	addSource bool
}

// LoggerOption configures NewSlogLogger.
type LoggerOption func(*options)

// WithLevel sets the minimum level. The default is info.
func WithLevel(level slog.Level) LoggerOption {
	return func(o *options) { o.level = level }
}

// WithOutput sets the destination. The default is stderr.
func WithOutput(w io.Writer) LoggerOption {
	return func(o *options) { o.out = w }
}

// WithJSON switches from text to JSON records.
func WithJSON(enabled bool) LoggerOption {
	return func(o *options) { o.json = enabled }
}

// WithSource adds the caller's file and line.
func WithSource() LoggerOption {
	return func(o *options) { o.addSource = true }
}

// NewSlogLogger builds a text (or JSON) logger.
func NewSlogLogger(opts ...LoggerOption) *SlogLogger {
	o := options{level: slog.LevelInfo, out: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	ho := &slog.HandlerOptions{Level: o.level, AddSource: o.addSource}
	var h slog.Handler = slog.NewTextHandler(o.out, ho)
	if o.json {
		h = slog.NewJSONHandler(o.out, ho)
	}
	return &SlogLogger{logger: slog.New(h), ctx: context.Background()}
}

// ParseLevel maps debug, info, warn and error (case-insensitive) to a
// slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
	}
}

func (l *SlogLogger) log(level slog.Level, msg string, fields []Field) {
	l.logger.LogAttrs(l.ctx, level, msg, fields...)
}

func (l *SlogLogger) Debug(msg string, fields ...Field) { l.log(slog.LevelDebug, msg, fields) }
func (l *SlogLogger) Info(msg string, fields ...Field)  { l.log(slog.LevelInfo, msg, fields) }
func (l *SlogLogger) Warn(msg string, fields ...Field)  { l.log(slog.LevelWarn, msg, fields) }
func (l *SlogLogger) Error(msg string, fields ...Field) { l.log(slog.LevelError, msg, fields) }

// With returns a child logger that adds fields to every record.
func (l *SlogLogger) With(fields ...Field) Logger {
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	return &SlogLogger{logger: l.logger.With(args...), ctx: l.ctx}
}

// WithContext returns a logger that passes ctx to the handler.
func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	return &SlogLogger{logger: l.logger, ctx: ctx}
}

type loggerKey struct{}

// ContextWithLogger stores logger in ctx.
func ContextWithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext returns the logger stored in ctx, or nil.
func LoggerFromContext(ctx context.Context) Logger {
	logger, _ := ctx.Value(loggerKey{}).(Logger)
	return logger
}

// L is LoggerFromContext with a NopLogger fallback.
func L(ctx context.Context) Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return NopLogger{}
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...Field)               {}
func (NopLogger) Info(string, ...Field)                {}
func (NopLogger) Warn(string, ...Field)                {}
func (NopLogger) Error(string, ...Field)               {}
func (l NopLogger) With(...Field) Logger               { return l }
func (l NopLogger) WithContext(context.Context) Logger { return l }

// RequestLogger tags each request with an X-Request-ID (taken from the
// request or generated), stores a request-scoped logger in the context and
// logs completion at debug. chi's wrapped writer keeps http.Hijacker, so
// WebSocket upgrades pass through.
func RequestLogger(logger Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)

			rl := logger.With(
				String("request_id", id),
				String("method", r.Method),
				String("path", r.URL.Path),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ContextWithLogger(r.Context(), rl)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			rl.Debug("request completed",
				Int("status", status),
				Int("bytes", ww.BytesWritten()),
				Duration("duration", time.Since(start)),
			)
		})
	}
}
