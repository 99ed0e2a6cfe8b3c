package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Verb      string    // S3 operation name (GetObject, PutObject, etc.)
	Bucket    string    // Bucket the request targets
	ObjectKey string    // Object key the request targets, if any
	Owner     string    // Authenticated bucket-owner id
	RequestID string    // Per-request correlation id
	ClientIP  string    // Client IP address (without port)
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithVerb returns a copy with the S3 operation name set
func (lc *LogContext) WithVerb(verb string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Verb = verb
	}
	return clone
}

// WithObject returns a copy with the target bucket and object key set
func (lc *LogContext) WithObject(bucket, key string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Bucket = bucket
		clone.ObjectKey = key
	}
	return clone
}

// WithOwner returns a copy with the authenticated owner id set
func (lc *LogContext) WithOwner(owner string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Owner = owner
	}
	return clone
}

// WithRequestID returns a copy with the correlation id set
func (lc *LogContext) WithRequestID(id string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RequestID = id
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
