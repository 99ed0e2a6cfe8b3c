// Package bucket implements the S3-style bucket and object metadata
// layer: a BucketMetadata record per bucket, an ObjectMetadata
// record per key, and the Manager that opens a bucket's Prolly Tree against
// a block store and keeps the bucket registry (name -> BucketMetadata) in
// sync as objects are written, copied, and deleted.
package bucket

import (
	"regexp"
	"time"

	"github.com/fula-project/gateway/pkg/address"
)

// ObjectMetadata is the value type stored in a bucket's Prolly Tree, keyed
// by object key.
type ObjectMetadata struct {
	// ContentAddress is the address of the object body in the block store.
	// For chunked (streaming-encoded) bodies this is the address of the
	// ChunkedFileIndex block, not of a single blob.
	ContentAddress address.ContentAddress `cbor:"content_address"`

	Size uint64 `cbor:"size"`

	// ETag is the quoted hex of the body's content digest (S3 convention).
	ETag string `cbor:"etag"`

	StorageClass string `cbor:"storage_class"`

	ContentType        string `cbor:"content_type,omitempty"`
	ContentEncoding     string `cbor:"content_encoding,omitempty"`
	CacheControl        string `cbor:"cache_control,omitempty"`
	ContentDisposition  string `cbor:"content_disposition,omitempty"`

	UserMetadata map[string]string `cbor:"user_metadata,omitempty"`
	Tags         map[string]string `cbor:"tags,omitempty"`

	// Encryption, when non-nil, records how the body's DEK is wrapped
	// (which KEK version, HPKE ciphertext bytes) so a reader can recover
	// the key without a separate lookup. Opaque to this package.
	Encryption []byte `cbor:"encryption,omitempty"`

	VersionID      string `cbor:"version_id,omitempty"`
	IsDeleteMarker bool   `cbor:"is_delete_marker,omitempty"`

	// OutboardAddress, when set, is the block holding the BaoOutboard for
	// a chunked-streaming body.
	OutboardAddress *address.ContentAddress `cbor:"outboard_address,omitempty"`

	OwnerID string `cbor:"owner_id"`

	// ContentDigest is an optional full (un-truncated) content hash, hex
	// encoded, distinct from ETag when the two digests differ in algorithm.
	ContentDigest string `cbor:"content_digest,omitempty"`

	CreatedAt  time.Time `cbor:"created_at"`
	ModifiedAt time.Time `cbor:"modified_at"`
}

// CORSRule is a minimal per-bucket CORS rule.
type CORSRule struct {
	AllowedOrigins []string `cbor:"allowed_origins"`
	AllowedMethods []string `cbor:"allowed_methods"`
	AllowedHeaders []string `cbor:"allowed_headers,omitempty"`
	MaxAgeSeconds  int      `cbor:"max_age_seconds,omitempty"`
}

// LifecycleRule is a minimal per-bucket lifecycle rule. ExpireAfter of
// zero disables expiry for the rule.
type LifecycleRule struct {
	ID          string        `cbor:"id"`
	Prefix      string        `cbor:"prefix,omitempty"`
	ExpireAfter time.Duration `cbor:"expire_after,omitempty"`
	Enabled     bool          `cbor:"enabled"`
}

// BucketMetadata is the per-bucket registry record.
type BucketMetadata struct {
	Name      string    `cbor:"name"`
	CreatedAt time.Time `cbor:"created_at"`
	OwnerID   string    `cbor:"owner_id"`

	// RootAddress is the current Prolly Tree root for this bucket's object
	// index. Zero value means the bucket's tree is empty and has never
	// been flushed.
	RootAddress address.ContentAddress `cbor:"root_address"`
	HasRoot     bool                   `cbor:"has_root"`

	Versioning          bool   `cbor:"versioning"`
	DefaultStorageClass string `cbor:"default_storage_class"`

	Tags         map[string]string `cbor:"tags,omitempty"`
	CORSRules    []CORSRule        `cbor:"cors_rules,omitempty"`
	Lifecycle    []LifecycleRule   `cbor:"lifecycle_rules,omitempty"`

	// ObjectCount and TotalSize are cached counters maintained incrementally
	// by Manager/Bucket as objects are put/deleted; they are not recomputed
	// from the tree on every read.
	ObjectCount uint64 `cbor:"object_count"`
	TotalSize   uint64 `cbor:"total_size"`

	LastModified time.Time `cbor:"last_modified"`
}

// bucketNamePattern implements the S3 bucket-naming rule: 3-63 chars,
// lowercase letters/digits/hyphen/period, no leading or trailing hyphen.
// Adjacent-period and IP-address-literal restrictions from the full S3
// rules are not enforced.
var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.\-]{1,61}[a-z0-9]$`)

// ValidBucketName reports whether name satisfies the bucket-naming rule.
func ValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	return bucketNamePattern.MatchString(name)
}
