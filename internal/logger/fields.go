package logger

import "log/slog"

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// S3 Wire Surface
	// ========================================================================
	KeyVerb         = "verb"          // S3 API operation: GetObject, PutObject, ListObjectsV2, ...
	KeyBucket       = "bucket"        // Bucket name
	KeyObjectKey    = "object_key"    // Object key within a bucket
	KeyETag         = "etag"          // Object ETag
	KeyStorageClass = "storage_class" // Object storage class
	KeyStatus       = "status"        // HTTP status code
	KeyErrorCode    = "error_code"    // S3 error code: NoSuchKey, InvalidRange, ...
	KeyPrefix       = "prefix"        // Listing prefix
	KeyDelimiter    = "delimiter"     // Listing delimiter
	KeyMaxKeys      = "max_keys"      // Listing page size
	KeyEntries      = "entries"       // Number of listing entries returned
	KeyUploadID     = "upload_id"     // Multipart upload identifier
	KeyPartNumber   = "part_number"   // Multipart part number

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP  = "client_ip"  // Client IP address
	KeyOwner     = "owner"      // Authenticated bucket-owner id
	KeyAuth      = "auth"       // Authentication scheme: jwt, sigv4
	KeyRequestID = "request_id" // Per-request correlation id

	// ========================================================================
	// Block Store
	// ========================================================================
	KeyBackend    = "backend"     // Block-store backend: memory, badger, s3, ipfshttp
	KeyAddress    = "address"     // Content address of a block
	KeyBlockSize  = "block_size"  // Block size in bytes
	KeyPinName    = "pin_name"    // Name attached to a pin request
	KeyPinStatus  = "pin_status"  // Pin lifecycle state
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts

	// ========================================================================
	// Object Index (Prolly Tree)
	// ========================================================================
	KeyRoot         = "root"          // Tree root address after a flush
	KeyTreeDepth    = "tree_depth"    // Root-to-leaf depth
	KeyNodesWritten = "nodes_written" // Nodes re-serialized by a flush

	// ========================================================================
	// Crypto & Sharing
	// ========================================================================
	KeyAlgorithm   = "algorithm"    // AEAD cipher or KEM name
	KeyKEKVersion  = "kek_version"  // Key-encrypting-key generation
	KeyShareID     = "share_id"     // Share token id / secret-link opaque id
	KeyPathScope   = "path_scope"   // Share token path scope
	KeyRecipientFP = "recipient_fp" // Recipient public-key fingerprint
	KeyChunkCount  = "chunk_count"  // Streaming chunk count
	KeyChunkSize   = "chunk_size"   // Streaming chunk size

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs   = "duration_ms"   // Operation duration in milliseconds
	KeyError        = "error"         // Error message
	KeySize         = "size"          // Payload size in bytes
	KeyBytesRead    = "bytes_read"    // Actual bytes read
	KeyBytesWritten = "bytes_written" // Actual bytes written
	KeyOperation    = "operation"     // Sub-operation type for complex operations
	KeyRegistry     = "registry"      // Bucket-registry backend: memory, postgres
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Verb returns a slog.Attr for the S3 API operation name
func Verb(v string) slog.Attr {
	return slog.String(KeyVerb, v)
}

// Bucket returns a slog.Attr for bucket name
func Bucket(name string) slog.Attr {
	return slog.String(KeyBucket, name)
}

// ObjectKey returns a slog.Attr for an object key
func ObjectKey(k string) slog.Attr {
	return slog.String(KeyObjectKey, k)
}

// ETag returns a slog.Attr for an object ETag
func ETag(etag string) slog.Attr {
	return slog.String(KeyETag, etag)
}

// StorageClass returns a slog.Attr for an object storage class
func StorageClass(class string) slog.Attr {
	return slog.String(KeyStorageClass, class)
}

// Status returns a slog.Attr for HTTP status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// ErrorCode returns a slog.Attr for an S3 error code
func ErrorCode(code string) slog.Attr {
	return slog.String(KeyErrorCode, code)
}

// Prefix returns a slog.Attr for a listing prefix
func Prefix(p string) slog.Attr {
	return slog.String(KeyPrefix, p)
}

// Delimiter returns a slog.Attr for a listing delimiter
func Delimiter(d string) slog.Attr {
	return slog.String(KeyDelimiter, d)
}

// MaxKeys returns a slog.Attr for a listing page size
func MaxKeys(n int) slog.Attr {
	return slog.Int(KeyMaxKeys, n)
}

// Entries returns a slog.Attr for the number of listing entries returned
func Entries(n int) slog.Attr {
	return slog.Int(KeyEntries, n)
}

// UploadID returns a slog.Attr for a multipart upload identifier
func UploadID(id string) slog.Attr {
	return slog.String(KeyUploadID, id)
}

// PartNumber returns a slog.Attr for a multipart part number
func PartNumber(n int) slog.Attr {
	return slog.Int(KeyPartNumber, n)
}

// ClientIP returns a slog.Attr for client IP address
func ClientIP(addr string) slog.Attr {
	return slog.String(KeyClientIP, addr)
}

// Owner returns a slog.Attr for the authenticated bucket-owner id
func Owner(id string) slog.Attr {
	return slog.String(KeyOwner, id)
}

// Auth returns a slog.Attr for the authentication scheme
func Auth(scheme string) slog.Attr {
	return slog.String(KeyAuth, scheme)
}

// RequestID returns a slog.Attr for a per-request correlation id
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// Backend returns a slog.Attr for the block-store backend name
func Backend(name string) slog.Attr {
	return slog.String(KeyBackend, name)
}

// Address returns a slog.Attr for a content address
func Address(addr string) slog.Attr {
	return slog.String(KeyAddress, addr)
}

// BlockSize returns a slog.Attr for a block size in bytes
func BlockSize(n uint64) slog.Attr {
	return slog.Uint64(KeyBlockSize, n)
}

// PinName returns a slog.Attr for the name attached to a pin request
func PinName(name string) slog.Attr {
	return slog.String(KeyPinName, name)
}

// PinStatus returns a slog.Attr for a pin lifecycle state
func PinStatus(status string) slog.Attr {
	return slog.String(KeyPinStatus, status)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}

// Root returns a slog.Attr for a tree root address
func Root(addr string) slog.Attr {
	return slog.String(KeyRoot, addr)
}

// TreeDepth returns a slog.Attr for a tree's root-to-leaf depth
func TreeDepth(depth int) slog.Attr {
	return slog.Int(KeyTreeDepth, depth)
}

// NodesWritten returns a slog.Attr for nodes re-serialized by a flush
func NodesWritten(n int) slog.Attr {
	return slog.Int(KeyNodesWritten, n)
}

// Algorithm returns a slog.Attr for an AEAD cipher or KEM name
func Algorithm(name string) slog.Attr {
	return slog.String(KeyAlgorithm, name)
}

// KEKVersion returns a slog.Attr for a key-encrypting-key generation
func KEKVersion(v uint32) slog.Attr {
	return slog.Any(KeyKEKVersion, v)
}

// ShareID returns a slog.Attr for a share token id
func ShareID(id string) slog.Attr {
	return slog.String(KeyShareID, id)
}

// PathScope returns a slog.Attr for a share token's path scope
func PathScope(scope string) slog.Attr {
	return slog.String(KeyPathScope, scope)
}

// RecipientFP returns a slog.Attr for a recipient public-key fingerprint
func RecipientFP(fp string) slog.Attr {
	return slog.String(KeyRecipientFP, fp)
}

// ChunkCount returns a slog.Attr for a streaming chunk count
func ChunkCount(n int) slog.Attr {
	return slog.Int(KeyChunkCount, n)
}

// ChunkSize returns a slog.Attr for a streaming chunk size
func ChunkSize(n int) slog.Attr {
	return slog.Int(KeyChunkSize, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Size returns a slog.Attr for payload size
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// BytesRead returns a slog.Attr for actual bytes read
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BytesWritten returns a slog.Attr for actual bytes written
func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// Operation returns a slog.Attr for sub-operation type
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Registry returns a slog.Attr for the bucket-registry backend name
func Registry(name string) slog.Attr {
	return slog.String(KeyRegistry, name)
}
