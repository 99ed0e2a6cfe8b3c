package bucket

import "errors"

// Sentinel errors for the bucket/object manager. Wire-layer translation
// to S3 error codes happens outside this package.
var (
	// ErrBucketAlreadyExists is returned by CreateBucket for a name already
	// present in the registry.
	ErrBucketAlreadyExists = errors.New("bucket: already exists")

	// ErrBucketNotFound is returned when a bucket name is not registered.
	ErrBucketNotFound = errors.New("bucket: not found")

	// ErrBucketNotEmpty is returned by DeleteBucket when ObjectCount > 0.
	ErrBucketNotEmpty = errors.New("bucket: not empty")

	// ErrInvalidBucketName is returned when a name fails ValidBucketName.
	ErrInvalidBucketName = errors.New("bucket: invalid name")

	// ErrInvalidObjectKey is returned for an empty or otherwise malformed
	// object key.
	ErrInvalidObjectKey = errors.New("bucket: invalid object key")

	// ErrObjectNotFound is returned when a key has no entry in the bucket's
	// tree. Callers that need the bucket/key pair for a wire-level
	// NoSuchKey response should wrap this with that context.
	ErrObjectNotFound = errors.New("bucket: object not found")

	// ErrPreconditionFailed is returned when a conditional request (e.g.
	// If-Match) does not hold.
	ErrPreconditionFailed = errors.New("bucket: precondition failed")
)
