package requestctx

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey contextKey = "github.com/borne-automatique/api/internal/platform/requestctx/logger"
	traceKey  contextKey = "github.com/borne-automatique/api/internal/platform/requestctx/trace"
	kioskKey  contextKey = "github.com/borne-automatique/api/internal/platform/requestctx/kiosk"

	// KioskHeader carries the identifier of the kiosk terminal issuing the request.
	KioskHeader = "X-Kiosk-ID"
	// AnonymousKiosk is used when a request does not identify its terminal.
	AnonymousKiosk = "anonymous"

	maxKioskIDLength = 64
)

var noopLogger = zap.NewNop()

// TraceInfo is the trace metadata propagated through the request context.
type TraceInfo struct {
	TraceID   string
	SpanID    string
	Sampled   bool
	ProjectID string
}

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Logger retrieves the request logger or a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger is the shared logger returned when the context carries none.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores trace metadata on the context.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceKey, info)
}

// Trace retrieves trace metadata when available.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceKey).(TraceInfo)
	return info, ok
}

// TraceID extracts the trace identifier from context when present.
func TraceID(ctx context.Context) string {
	info, _ := Trace(ctx)
	return info.TraceID
}

// WithKioskID records the calling kiosk. Blank or oversized identifiers become AnonymousKiosk.
func WithKioskID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, kioskKey, NormalizeKioskID(id))
}

// KioskID returns the calling kiosk, AnonymousKiosk when unknown.
func KioskID(ctx context.Context) string {
	if ctx == nil {
		return AnonymousKiosk
	}
	if id, ok := ctx.Value(kioskKey).(string); ok && id != "" {
		return id
	}
	return AnonymousKiosk
}

// NormalizeKioskID keeps printable identifiers of reasonable length.
func NormalizeKioskID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxKioskIDLength {
		return AnonymousKiosk
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return AnonymousKiosk
		}
	}
	return id
}
