package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "fula-gateway", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, ClientIP("192.168.1.1"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("ClientIP", func(t *testing.T) {
		attr := ClientIP("192.168.1.100")
		assert.Equal(t, AttrClientIP, string(attr.Key))
		assert.Equal(t, "192.168.1.100", attr.Value.AsString())
	})

	t.Run("ClientAddr", func(t *testing.T) {
		attr := ClientAddr("192.168.1.100:12345")
		assert.Equal(t, AttrClientAddr, string(attr.Key))
		assert.Equal(t, "192.168.1.100:12345", attr.Value.AsString())
	})

	t.Run("S3Verb", func(t *testing.T) {
		attr := S3Verb("GetObject")
		assert.Equal(t, AttrS3Verb, string(attr.Key))
		assert.Equal(t, "GetObject", attr.Value.AsString())
	})

	t.Run("Bucket", func(t *testing.T) {
		attr := Bucket("my-bucket")
		assert.Equal(t, AttrS3Bucket, string(attr.Key))
		assert.Equal(t, "my-bucket", attr.Value.AsString())
	})

	t.Run("ObjectKey", func(t *testing.T) {
		attr := ObjectKey("path/to/object")
		assert.Equal(t, AttrS3Key, string(attr.Key))
		assert.Equal(t, "path/to/object", attr.Value.AsString())
	})

	t.Run("S3Status", func(t *testing.T) {
		attr := S3Status(206)
		assert.Equal(t, AttrS3Status, string(attr.Key))
		assert.Equal(t, int64(206), attr.Value.AsInt64())
	})

	t.Run("S3ErrorCode", func(t *testing.T) {
		attr := S3ErrorCode("NoSuchKey")
		assert.Equal(t, AttrS3ErrorCode, string(attr.Key))
		assert.Equal(t, "NoSuchKey", attr.Value.AsString())
	})

	t.Run("BlockBackend", func(t *testing.T) {
		attr := BlockBackend("badger")
		assert.Equal(t, AttrBlockBackend, string(attr.Key))
		assert.Equal(t, "badger", attr.Value.AsString())
	})

	t.Run("BlockAddress", func(t *testing.T) {
		attr := BlockAddress("bafy123")
		assert.Equal(t, AttrBlockAddress, string(attr.Key))
		assert.Equal(t, "bafy123", attr.Value.AsString())
	})

	t.Run("BlockSize", func(t *testing.T) {
		attr := BlockSize(1048576)
		assert.Equal(t, AttrBlockSize, string(attr.Key))
		assert.Equal(t, int64(1048576), attr.Value.AsInt64())
	})

	t.Run("TreeRoot", func(t *testing.T) {
		attr := TreeRoot("bafyroot")
		assert.Equal(t, AttrTreeRoot, string(attr.Key))
		assert.Equal(t, "bafyroot", attr.Value.AsString())
	})

	t.Run("TreeDepth", func(t *testing.T) {
		attr := TreeDepth(3)
		assert.Equal(t, AttrTreeDepth, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("KEKVersion", func(t *testing.T) {
		attr := KEKVersion(2)
		assert.Equal(t, AttrKEKVersion, string(attr.Key))
		assert.Equal(t, int64(2), attr.Value.AsInt64())
	})

	t.Run("ShareID", func(t *testing.T) {
		attr := ShareID("abc123")
		assert.Equal(t, AttrShareID, string(attr.Key))
		assert.Equal(t, "abc123", attr.Value.AsString())
	})

	t.Run("SharePathScope", func(t *testing.T) {
		attr := SharePathScope("/photos/")
		assert.Equal(t, AttrSharePathScope, string(attr.Key))
		assert.Equal(t, "/photos/", attr.Value.AsString())
	})

	t.Run("Owner", func(t *testing.T) {
		attr := Owner("owner-1")
		assert.Equal(t, AttrOwner, string(attr.Key))
		assert.Equal(t, "owner-1", attr.Value.AsString())
	})
}

func TestStartS3Span(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartS3Span(ctx, "GetObject", "photos")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// Without a bucket (account-level operations)
	newCtx2, span2 := StartS3Span(ctx, "ListBuckets", "")
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()

	// With additional attributes
	newCtx3, span3 := StartS3Span(ctx, "PutObject", "photos", ObjectKey("a.jpg"), BytesWritten(4096))
	require.NotNil(t, newCtx3)
	require.NotNil(t, span3)
	span3.End()
}

func TestStartBlockSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartBlockSpan(ctx, "get", "bafy123")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartBlockSpan(ctx, "put", "bafy456", BlockSize(1024), BlockBackend("memory"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartTreeSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartTreeSpan(ctx, "flush")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	// With additional attributes
	newCtx2, span2 := StartTreeSpan(ctx, "get", TreeRoot("bafyroot"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}
