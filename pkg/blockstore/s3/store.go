// Package s3 provides a BlockStore backed by an S3-compatible object
// store, keyed by content address. It does not implement PinStore: S3
// retention is the bucket's own lifecycle policy, not a pinning protocol,
// so the gateway pairs this backend with pin-on-root-flush disabled.
package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fula-project/gateway/pkg/address"
	"github.com/fula-project/gateway/pkg/blockcodec"
	"github.com/fula-project/gateway/pkg/blockstore"
)

// Config configures the S3 block store.
type Config struct {
	// Bucket is the S3 bucket blocks are stored in.
	Bucket string

	// Region is the AWS region (optional, uses the SDK default if empty).
	Region string

	// Endpoint overrides the default AWS endpoint, for S3-compatible
	// providers (MinIO, R2, etc).
	Endpoint string

	// KeyPrefix is prepended to every content-address object key. Should
	// end with "/" if non-empty.
	KeyPrefix string

	// ForcePathStyle forces path-style addressing, required by most
	// non-AWS S3-compatible providers.
	ForcePathStyle bool
}

// Store is an S3-backed BlockStore. Safe for concurrent use.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// New creates an S3 block store with an existing client.
func New(client *s3.Client, cfg Config) *Store {
	return &Store{client: client, bucket: cfg.Bucket, keyPrefix: cfg.KeyPrefix}
}

// NewFromConfig builds an S3 client from cfg and the process's ambient AWS
// credential chain, then returns a Store using it.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blockstore/s3: loading AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return New(client, cfg), nil
}

func (s *Store) objectKey(addr address.ContentAddress) string {
	return s.keyPrefix + addr.String()
}

func (s *Store) PutBlock(ctx context.Context, payload []byte) (address.ContentAddress, error) {
	addr := address.OfRaw(payload)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(addr)),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return address.ContentAddress{}, fmt.Errorf("blockstore/s3: put object: %w", err)
	}
	return addr, nil
}

func (s *Store) GetBlock(ctx context.Context, addr address.ContentAddress) ([]byte, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(addr)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, blockstore.ErrNotFound
		}
		return nil, fmt.Errorf("blockstore/s3: get object: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("blockstore/s3: read object body: %w", err)
	}
	return data, nil
}

func (s *Store) HasBlock(ctx context.Context, addr address.ContentAddress) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(addr)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("blockstore/s3: head object: %w", err)
	}
	return true, nil
}

func (s *Store) DeleteBlock(ctx context.Context, addr address.ContentAddress) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(addr)),
	})
	if err != nil {
		return fmt.Errorf("blockstore/s3: delete object: %w", err)
	}
	return nil
}

func (s *Store) BlockSize(ctx context.Context, addr address.ContentAddress) (uint64, error) {
	resp, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(addr)),
	})
	if err != nil {
		if isNotFoundError(err) {
			return 0, blockstore.ErrNotFound
		}
		return 0, fmt.Errorf("blockstore/s3: head object: %w", err)
	}
	if resp.ContentLength == nil {
		return 0, nil
	}
	return uint64(*resp.ContentLength), nil
}

func (s *Store) PutIPLD(ctx context.Context, value any) (address.ContentAddress, error) {
	addr, payload, err := blockcodec.AddressOf(value)
	if err != nil {
		return address.ContentAddress{}, err
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(addr)),
		Body:   bytes.NewReader(payload),
	}); err != nil {
		return address.ContentAddress{}, fmt.Errorf("blockstore/s3: put object: %w", err)
	}
	return addr, nil
}

func (s *Store) GetIPLD(ctx context.Context, addr address.ContentAddress, out any) error {
	payload, err := s.GetBlock(ctx, addr)
	if err != nil {
		return err
	}
	return blockcodec.Decode(payload, out)
}

// isNotFoundError reports whether err is an S3 not-found response. The SDK
// surfaces this as distinct typed errors depending on API (NoSuchKey for
// GetObject, a bare 404 smithy response for HeadObject), so this matches on
// the rendered error text rather than a single typed error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") ||
		strings.Contains(msg, "NotFound") ||
		strings.Contains(msg, "StatusCode: 404")
}

// NoopPinStore is a PinStore that treats every address as permanently
// pinned. S3's own durability guarantee makes a separate pin-tracking
// protocol unnecessary; it exists only to satisfy the PinStore interface
// callers expect alongside a BlockStore.
type NoopPinStore struct{}

func (NoopPinStore) Pin(context.Context, address.ContentAddress, string) error { return nil }
func (NoopPinStore) Unpin(context.Context, address.ContentAddress) error       { return nil }
func (NoopPinStore) IsPinned(context.Context, address.ContentAddress) (bool, error) {
	return true, nil
}
func (NoopPinStore) ListPins(context.Context) ([]address.ContentAddress, error) {
	return nil, nil
}
func (NoopPinStore) PinStatus(context.Context, address.ContentAddress) (blockstore.PinStatus, error) {
	return blockstore.PinStatusPinned, nil
}

var (
	_ blockstore.BlockStore = (*Store)(nil)
	_ blockstore.PinStore   = NoopPinStore{}
)
