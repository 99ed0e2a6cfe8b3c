package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for gateway operations.
// These follow OpenTelemetry semantic conventions where applicable:
// S3-surface keys use "s3.", block-store keys "block.", crypto keys
// "crypto.", and sharing keys "share.".
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"
	AttrClientPort = "client.port"

	// ========================================================================
	// S3 wire surface attributes
	// ========================================================================
	AttrS3Verb      = "s3.verb"       // GetObject, PutObject, ListObjectsV2, ...
	AttrS3Bucket    = "s3.bucket"     // Bucket name
	AttrS3Key       = "s3.key"        // Object key
	AttrS3ETag      = "s3.etag"       // Object ETag
	AttrS3Status    = "s3.status"     // HTTP status code
	AttrS3ErrorCode = "s3.error_code" // S3 error code on failure
	AttrS3Prefix    = "s3.prefix"     // Listing prefix
	AttrS3MaxKeys   = "s3.max_keys"   // Listing page size
	AttrS3UploadID  = "s3.upload_id"  // Multipart upload id

	// ========================================================================
	// Auth attributes
	// ========================================================================
	AttrAuthScheme = "auth.scheme" // jwt, sigv4
	AttrOwner      = "auth.owner"  // Authenticated bucket-owner id

	// ========================================================================
	// Block store attributes
	// ========================================================================
	AttrBlockBackend = "block.backend" // memory, badger, s3, ipfshttp
	AttrBlockAddress = "block.address" // Content address
	AttrBlockSize    = "block.size"    // Block size in bytes
	AttrPinName      = "block.pin_name"
	AttrPinStatus    = "block.pin_status"

	// ========================================================================
	// Object index (Prolly Tree) attributes
	// ========================================================================
	AttrTreeRoot    = "tree.root"    // Root address
	AttrTreeDepth   = "tree.depth"   // Root-to-leaf depth
	AttrTreeEntries = "tree.entries" // Entry count touched

	// ========================================================================
	// Crypto & sharing attributes
	// ========================================================================
	AttrCryptoAlgorithm = "crypto.algorithm" // AEAD cipher or KEM name
	AttrKEKVersion      = "crypto.kek_version"
	AttrChunkCount      = "crypto.chunk_count"
	AttrChunkSize       = "crypto.chunk_size"
	AttrShareID         = "share.id"
	AttrSharePathScope  = "share.path_scope"

	// ========================================================================
	// Operation metadata
	// ========================================================================
	AttrBytesRead    = "io.bytes_read"
	AttrBytesWritten = "io.bytes_written"
	AttrRegistry     = "registry.backend" // memory, postgres
)

// Span names for operations.
// Format: <component>.<operation>.
const (
	// ========================================================================
	// S3 wire surface spans
	// ========================================================================

	// Root span for S3 request processing
	SpanS3Request = "s3.request"

	SpanS3PutObject     = "s3.PutObject"
	SpanS3GetObject     = "s3.GetObject"
	SpanS3HeadObject    = "s3.HeadObject"
	SpanS3DeleteObject  = "s3.DeleteObject"
	SpanS3CopyObject    = "s3.CopyObject"
	SpanS3DeleteObjects = "s3.DeleteObjects"
	SpanS3ListObjectsV2 = "s3.ListObjectsV2"
	SpanS3ListBuckets   = "s3.ListBuckets"
	SpanS3CreateBucket  = "s3.CreateBucket"
	SpanS3HeadBucket    = "s3.HeadBucket"
	SpanS3DeleteBucket  = "s3.DeleteBucket"

	// ========================================================================
	// Block store spans
	// ========================================================================
	SpanBlockPut    = "block.put"
	SpanBlockGet    = "block.get"
	SpanBlockDelete = "block.delete"
	SpanBlockStat   = "block.stat"
	SpanBlockPin    = "block.pin"
	SpanBlockUnpin  = "block.unpin"

	// ========================================================================
	// Object index spans
	// ========================================================================
	SpanTreeGet   = "tree.get"
	SpanTreeSet   = "tree.set"
	SpanTreeFlush = "tree.flush"
	SpanTreeList  = "tree.list"
	SpanTreeDiff  = "tree.diff"

	// ========================================================================
	// Crypto & sharing spans
	// ========================================================================
	SpanChunkEncode = "crypto.chunk_encode"
	SpanChunkDecode = "crypto.chunk_decode"
	SpanDEKWrap     = "crypto.dek_wrap"
	SpanDEKUnwrap   = "crypto.dek_unwrap"
	SpanKEKRotate   = "crypto.kek_rotate"
	SpanShareIssue  = "share.issue"
	SpanShareAccept = "share.accept"

	// ========================================================================
	// Registry spans
	// ========================================================================
	SpanRegistryGet    = "registry.get"
	SpanRegistryPut    = "registry.put"
	SpanRegistryDelete = "registry.delete"
	SpanRegistryList   = "registry.list"
)

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// S3Verb returns an attribute for the S3 API operation name
func S3Verb(verb string) attribute.KeyValue {
	return attribute.String(AttrS3Verb, verb)
}

// Bucket returns an attribute for bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrS3Bucket, name)
}

// ObjectKey returns an attribute for object key
func ObjectKey(key string) attribute.KeyValue {
	return attribute.String(AttrS3Key, key)
}

// ETag returns an attribute for an object ETag
func ETag(etag string) attribute.KeyValue {
	return attribute.String(AttrS3ETag, etag)
}

// S3Status returns an attribute for HTTP status code
func S3Status(status int) attribute.KeyValue {
	return attribute.Int(AttrS3Status, status)
}

// S3ErrorCode returns an attribute for an S3 error code
func S3ErrorCode(code string) attribute.KeyValue {
	return attribute.String(AttrS3ErrorCode, code)
}

// S3Prefix returns an attribute for a listing prefix
func S3Prefix(prefix string) attribute.KeyValue {
	return attribute.String(AttrS3Prefix, prefix)
}

// S3MaxKeys returns an attribute for a listing page size
func S3MaxKeys(n int) attribute.KeyValue {
	return attribute.Int(AttrS3MaxKeys, n)
}

// UploadID returns an attribute for a multipart upload id
func UploadID(id string) attribute.KeyValue {
	return attribute.String(AttrS3UploadID, id)
}

// AuthScheme returns an attribute for the authentication scheme
func AuthScheme(scheme string) attribute.KeyValue {
	return attribute.String(AttrAuthScheme, scheme)
}

// Owner returns an attribute for the authenticated bucket-owner id
func Owner(id string) attribute.KeyValue {
	return attribute.String(AttrOwner, id)
}

// BlockBackend returns an attribute for the block-store backend name
func BlockBackend(name string) attribute.KeyValue {
	return attribute.String(AttrBlockBackend, name)
}

// BlockAddress returns an attribute for a content address
func BlockAddress(addr string) attribute.KeyValue {
	return attribute.String(AttrBlockAddress, addr)
}

// BlockSize returns an attribute for a block size in bytes
func BlockSize(size uint64) attribute.KeyValue {
	return attribute.Int64(AttrBlockSize, int64(size))
}

// PinName returns an attribute for the name attached to a pin request
func PinName(name string) attribute.KeyValue {
	return attribute.String(AttrPinName, name)
}

// PinStatus returns an attribute for a pin lifecycle state
func PinStatus(status string) attribute.KeyValue {
	return attribute.String(AttrPinStatus, status)
}

// TreeRoot returns an attribute for a tree root address
func TreeRoot(addr string) attribute.KeyValue {
	return attribute.String(AttrTreeRoot, addr)
}

// TreeDepth returns an attribute for a tree's root-to-leaf depth
func TreeDepth(depth int) attribute.KeyValue {
	return attribute.Int(AttrTreeDepth, depth)
}

// TreeEntries returns an attribute for an entry count
func TreeEntries(n int) attribute.KeyValue {
	return attribute.Int(AttrTreeEntries, n)
}

// CryptoAlgorithm returns an attribute for an AEAD cipher or KEM name
func CryptoAlgorithm(name string) attribute.KeyValue {
	return attribute.String(AttrCryptoAlgorithm, name)
}

// KEKVersion returns an attribute for a key-encrypting-key generation
func KEKVersion(version uint32) attribute.KeyValue {
	return attribute.Int64(AttrKEKVersion, int64(version))
}

// ChunkCount returns an attribute for a streaming chunk count
func ChunkCount(n int) attribute.KeyValue {
	return attribute.Int(AttrChunkCount, n)
}

// ChunkSize returns an attribute for a streaming chunk size
func ChunkSize(n int) attribute.KeyValue {
	return attribute.Int(AttrChunkSize, n)
}

// ShareID returns an attribute for a share token id
func ShareID(id string) attribute.KeyValue {
	return attribute.String(AttrShareID, id)
}

// SharePathScope returns an attribute for a share token's path scope
func SharePathScope(scope string) attribute.KeyValue {
	return attribute.String(AttrSharePathScope, scope)
}

// BytesRead returns an attribute for actual bytes read
func BytesRead(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesRead, n)
}

// BytesWritten returns an attribute for actual bytes written
func BytesWritten(n int) attribute.KeyValue {
	return attribute.Int(AttrBytesWritten, n)
}

// Registry returns an attribute for the bucket-registry backend name
func Registry(name string) attribute.KeyValue {
	return attribute.String(AttrRegistry, name)
}

// StartS3Span starts a span for an S3 operation.
// This is a convenience function that sets common attributes.
func StartS3Span(ctx context.Context, verb, bucket string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		S3Verb(verb),
	}
	if bucket != "" {
		allAttrs = append(allAttrs, Bucket(bucket))
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "s3."+verb, trace.WithAttributes(allAttrs...))
}

// StartBlockSpan starts a span for a block-store operation.
func StartBlockSpan(ctx context.Context, operation, address string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{}
	if address != "" {
		allAttrs = append(allAttrs, BlockAddress(address))
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "block."+operation, trace.WithAttributes(allAttrs...))
}

// StartTreeSpan starts a span for an object-index operation.
func StartTreeSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "tree."+operation, trace.WithAttributes(attrs...))
}

// StartRegistrySpan starts a span for a bucket-registry operation.
func StartRegistrySpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "registry."+operation, trace.WithAttributes(attrs...))
}
