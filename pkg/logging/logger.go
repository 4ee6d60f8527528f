package logging

import (
	"context"
	"io"
	"log/slog"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"
	// StoreIDKey is the context key for the authenticated store.
	StoreIDKey contextKey = "store_id"
)

// WithRequestID returns a context carrying the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithStoreID returns a context carrying the store ID.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, StoreIDKey, storeID)
}

// Logger wraps slog.Logger with additional functionality.
type Logger struct {
	*slog.Logger
	config Config
}

// New creates a new Logger with the given configuration.
func New(config Config) *Logger {
	return NewWithWriter(config, config.GetOutput())
}

// NewWithWriter creates a new Logger with a custom writer.
func NewWithWriter(config Config, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(&ContextHandler{Handler: handler}),
		config: config,
	}
}

// SetDefault sets this logger as the default slog logger.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

// With returns a new Logger with the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
		config: l.config,
	}
}

// WithComponent returns a new Logger with component context.
func (l *Logger) WithComponent(component string) *Logger {
	return l.With("component", component)
}

// WithStore returns a new Logger with tenant context.
func (l *Logger) WithStore(storeID string) *Logger {
	return l.With("storeID", storeID)
}

// WithSubscription returns a new Logger with subscription context.
func (l *Logger) WithSubscription(subscriptionID string) *Logger {
	return l.With("subscriptionID", subscriptionID)
}

// WithDelivery returns a new Logger with delivery attempt context.
func (l *Logger) WithDelivery(subscriptionID, event string, attempt int) *Logger {
	return l.With(
		slog.String("subscriptionID", subscriptionID),
		slog.String("event", event),
		slog.Int("attempt", attempt),
	)
}

// ContextHandler is a slog.Handler that extracts context values.
type ContextHandler struct {
	slog.Handler
}

// Handle adds context values to the log record and passes to the wrapped handler.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if storeID, ok := ctx.Value(StoreIDKey).(string); ok && storeID != "" {
		r.AddAttrs(slog.String("store_id", storeID))
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler with the given attributes.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

// WithGroup returns a new ContextHandler with the given group.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// Default returns a default logger using environment configuration.
func Default() *Logger {
	return New(ConfigFromEnv())
}

// ComponentLogger creates a logger for a specific component using the default
// slog logger.
func ComponentLogger(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
