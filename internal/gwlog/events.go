// Package gwlog implements the gateway's event emitter: a typed,
// thread-safe subscription surface with two channels, error and log, backed
// by a structured log/slog sink.
package gwlog

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Level is the severity of an emitted log event.
type Level string

const (
	Debug Level = "DEBUG"
	Info  Level = "INFO"
	Warn  Level = "WARN"
	Error Level = "ERROR"
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case Debug:
		return slog.LevelDebug
	case Warn:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ErrorHandler and LogHandler are subscriber signatures for the two event
// channels the gateway exposes.
type (
	ErrorHandler func(err error, fields map[string]any)
	LogHandler   func(level Level, msg string, fields map[string]any)
)

// Emitter is the shared, append-only event bus. It is safe for concurrent
// use: the subscriber lists are guarded by a mutex, so subscribers
// registered by one goroutine are never raced against a concurrent Emit
// from another. Handlers are called outside the lock, so concurrent Emits
// may run the same handler concurrently.
type Emitter struct {
	logger *slog.Logger

	mu            sync.Mutex
	errorHandlers []ErrorHandler
	logHandlers   []LogHandler
}

// NewEmitter builds an Emitter backed by logger. A nil logger falls back to
// slog.Default().
func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger}
}

// OnError subscribes fn to the error channel.
func (e *Emitter) OnError(fn ErrorHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errorHandlers = append(e.errorHandlers, fn)
}

// OnLog subscribes fn to the log channel.
func (e *Emitter) OnLog(fn LogHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logHandlers = append(e.logHandlers, fn)
}

// EmitError logs err at ERROR level and notifies every error subscriber.
func (e *Emitter) EmitError(err error, fields map[string]any) {
	e.mu.Lock()
	handlers := append([]ErrorHandler(nil), e.errorHandlers...)
	e.mu.Unlock()

	e.logger.Error(err.Error(), slogAttrs(fields)...)
	for _, h := range handlers {
		h(err, fields)
	}
}

// EmitLog logs msg at level and notifies every log subscriber.
func (e *Emitter) EmitLog(level Level, msg string, fields map[string]any) {
	e.mu.Lock()
	handlers := append([]LogHandler(nil), e.logHandlers...)
	e.mu.Unlock()

	e.logger.Log(context.Background(), level.slogLevel(), msg, slogAttrs(fields)...)
	for _, h := range handlers {
		h(level, msg, fields)
	}
}

func slogAttrs(fields map[string]any) []any {
	attrs := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		attrs = append(attrs, k, v)
	}
	return attrs
}

// NewRequestID mints a per-request correlation id for log/event threading.
func NewRequestID() string {
	return uuid.NewString()
}
