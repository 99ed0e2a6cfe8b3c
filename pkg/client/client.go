// Package client implements the owner-side half of the end-to-end
// encrypted data flow described by the gateway's design: it chunks and
// seals plaintext before it ever leaves the caller's process, maintains
// the encrypted private-forest index that hides path structure from the
// server, and reverses both on read. The gateway it talks to never sees
// plaintext bytes or key material; it is handed only ciphertext blocks
// addressed by opaque, CID-like keys over the same S3 wire protocol any
// other client would use.
//
// A Client is the natural home for the otherwise-unwired crypto stack
// (pkg/crypto, pkg/streaming, pkg/forest): the gateway's own HTTP surface
// (pkg/api) deliberately treats object bodies as opaque, since "no
// server-side encryption or server-held keys" means the gateway process
// must never hold a DEK. Client is what an owner (or fulactl, on an
// owner's behalf) links against to actually produce the ciphertext the
// gateway stores.
package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fula-project/gateway/pkg/blockcodec"
	"github.com/fula-project/gateway/pkg/crypto/aead"
	"github.com/fula-project/gateway/pkg/crypto/keys"
	"github.com/fula-project/gateway/pkg/forest"
	"github.com/fula-project/gateway/pkg/streaming"
)

// ErrNotFound is returned by GetObject when path has no entry in the
// bucket's forest.
var ErrNotFound = errors.New("client: object not found")

const manifestSuffix = ".manifest"

// Config configures a Client's connection to a gateway.
type Config struct {
	// Endpoint is the gateway's base URL, e.g. "https://gateway.example.com".
	Endpoint string

	// BearerToken is embedded in the SigV4 access key as "JWT:<token>"
	// (the gateway's auth middleware accepts either a bare bearer header
	// or this SigV4-carrier form; the AWS SDK only speaks SigV4).
	BearerToken string

	// Region is sent as part of the SigV4 signature; the gateway does not
	// validate it, but the SDK requires a non-empty value.
	Region string
}

// Client performs end-to-end encrypted object reads and writes against a
// gateway, using an owner's long-term key material to derive per-bucket
// data-encryption keys and maintain each bucket's private forest.
type Client struct {
	s3  *s3.Client
	mgr *keys.Manager
}

// New constructs a Client that authenticates to cfg.Endpoint as the owner
// identified by mgr, carrying cfg.BearerToken through SigV4's access key.
func New(cfg Config, mgr *keys.Manager) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("client: endpoint is required")
	}
	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("client: bearer token is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	creds := credentials.NewStaticCredentialsProvider("JWT:"+cfg.BearerToken, "fula", "")
	c := s3.New(s3.Options{
		Region:       region,
		Credentials:  creds,
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true,
	})
	return &Client{s3: c, mgr: mgr}, nil
}

// forestDEK derives the data-encryption key for bucketName: the same key
// seals the forest index, derives every file's obfuscated storage key
// within it, and encrypts file content, matching the single
// per-bucket-DEK design DeriveForestKey documents.
func (c *Client) forestDEK(bucketName string) (aead.Key, keys.DekKey, error) {
	dek := c.mgr.DeriveForestKey(bucketName)
	key, err := dek.AsAEADKey(aead.AlgorithmAESGCM)
	if err != nil {
		return aead.Key{}, keys.DekKey{}, err
	}
	return key, dek, nil
}

// PutObject encrypts r's contents under bucketName's forest DEK, uploads
// the resulting manifest and chunks, and records path in the bucket's
// forest.
func (c *Client) PutObject(ctx context.Context, bucketName, path string, r io.Reader, contentType string) error {
	aeadKey, dek, err := c.forestDEK(bucketName)
	if err != nil {
		return err
	}

	idx, chunks, outboard, err := streaming.EncodeReader(aeadKey, r, streaming.DefaultChunkSize)
	if err != nil {
		return fmt.Errorf("client: encrypting %q: %w", path, err)
	}
	idx.ContentType = contentType

	tree, err := c.loadForest(ctx, bucketName, dek)
	if err != nil {
		return err
	}
	storageKey := tree.GenerateKey(path, dek)

	manifest, err := blockcodec.Encode(idx)
	if err != nil {
		return fmt.Errorf("client: encoding manifest for %q: %w", path, err)
	}
	if err := c.putRaw(ctx, bucketName, storageKey+manifestSuffix, manifest); err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := c.putRaw(ctx, bucketName, streaming.ChunkKey(storageKey, chunk.Index), chunk.Ciphertext); err != nil {
			return err
		}
	}

	now := time.Now()
	entry := forest.FileEntry{
		Path:        path,
		StorageKey:  storageKey,
		Size:        outboard.ContentLength,
		ContentType: contentType,
		CreatedAt:   now.Unix(),
		ModifiedAt:  now.Unix(),
		ContentHash: hex.EncodeToString(outboard.RootHash[:]),
	}
	tree.UpsertFile(entry, now)
	return c.saveForest(ctx, bucketName, dek, tree)
}

// GetObject downloads and decrypts path from bucketName, verifying its
// Bao root hash against the manifest before returning plaintext.
func (c *Client) GetObject(ctx context.Context, bucketName, path string) ([]byte, error) {
	aeadKey, dek, err := c.forestDEK(bucketName)
	if err != nil {
		return nil, err
	}

	tree, err := c.loadForest(ctx, bucketName, dek)
	if err != nil {
		return nil, err
	}
	entry, ok := tree.GetFile(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	manifest, err := c.getRaw(ctx, bucketName, entry.StorageKey+manifestSuffix)
	if err != nil {
		return nil, fmt.Errorf("client: fetching manifest for %q: %w", path, err)
	}
	var idx streaming.ChunkedFileIndex
	if err := blockcodec.Decode(manifest, &idx); err != nil {
		return nil, fmt.Errorf("client: decoding manifest for %q: %w", path, err)
	}

	chunks := make([]streaming.EncryptedChunk, idx.ChunkCount)
	for i := 0; i < idx.ChunkCount; i++ {
		ciphertext, err := c.getRaw(ctx, bucketName, streaming.ChunkKey(entry.StorageKey, i))
		if err != nil {
			return nil, fmt.Errorf("client: fetching chunk %d of %q: %w", i, path, err)
		}
		chunks[i] = streaming.EncryptedChunk{Index: i, Ciphertext: ciphertext}
	}

	return streaming.Decode(aeadKey, &idx, chunks)
}

// DeleteObject removes path's manifest, chunks, and forest entry.
func (c *Client) DeleteObject(ctx context.Context, bucketName, path string) error {
	_, dek, err := c.forestDEK(bucketName)
	if err != nil {
		return err
	}

	tree, err := c.loadForest(ctx, bucketName, dek)
	if err != nil {
		return err
	}
	entry, ok := tree.RemoveFile(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	manifest, err := c.getRaw(ctx, bucketName, entry.StorageKey+manifestSuffix)
	if err == nil {
		var idx streaming.ChunkedFileIndex
		if decErr := blockcodec.Decode(manifest, &idx); decErr == nil {
			for i := 0; i < idx.ChunkCount; i++ {
				_ = c.deleteRaw(ctx, bucketName, streaming.ChunkKey(entry.StorageKey, i))
			}
		}
	}
	_ = c.deleteRaw(ctx, bucketName, entry.StorageKey+manifestSuffix)

	return c.saveForest(ctx, bucketName, dek, tree)
}

// ListObjects returns every file the forest records under prefix.
func (c *Client) ListObjects(ctx context.Context, bucketName, prefix string) ([]forest.FileEntry, error) {
	_, dek, err := c.forestDEK(bucketName)
	if err != nil {
		return nil, err
	}
	tree, err := c.loadForest(ctx, bucketName, dek)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		return tree.ListAllFiles(), nil
	}
	return tree.ListRecursive(prefix), nil
}

func (c *Client) loadForest(ctx context.Context, bucketName string, dek keys.DekKey) (*forest.Forest, error) {
	indexKey := forest.DeriveIndexKey(dek, bucketName)
	data, err := c.getRaw(ctx, bucketName, indexKey)
	if errors.Is(err, ErrNotFound) {
		return forest.New(time.Now())
	}
	if err != nil {
		return nil, fmt.Errorf("client: loading forest for bucket %q: %w", bucketName, err)
	}
	ef, err := forest.EncryptedForestFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("client: decoding forest for bucket %q: %w", bucketName, err)
	}
	return ef.Decrypt(dek)
}

func (c *Client) saveForest(ctx context.Context, bucketName string, dek keys.DekKey, tree *forest.Forest) error {
	ef, err := forest.Encrypt(tree, dek)
	if err != nil {
		return fmt.Errorf("client: sealing forest for bucket %q: %w", bucketName, err)
	}
	data, err := ef.ToBytes()
	if err != nil {
		return err
	}
	indexKey := forest.DeriveIndexKey(dek, bucketName)
	return c.putRaw(ctx, bucketName, indexKey, data)
}

func (c *Client) putRaw(ctx context.Context, bucketName, key string, data []byte) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("client: put %q: %w", key, err)
	}
	return nil
}

func (c *Client) getRaw(ctx context.Context, bucketName, key string) ([]byte, error) {
	resp, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("client: get %q: %w", key, err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *Client) listRaw(ctx context.Context, bucketName, prefix string) ([]string, error) {
	var keys []string
	var continuationToken *string
	for {
		resp, err := c.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucketName),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("client: listing %q: %w", prefix, err)
		}
		for _, obj := range resp.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
		if resp.IsTruncated == nil || !*resp.IsTruncated {
			break
		}
		continuationToken = resp.NextContinuationToken
	}
	return keys, nil
}

func (c *Client) deleteRaw(ctx context.Context, bucketName, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("client: delete %q: %w", key, err)
	}
	return nil
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
