package handlers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/fula-project/gateway/pkg/address"
	"github.com/fula-project/gateway/pkg/blockstore"
)

// maxSingleBlockBody is the largest object body stored as a single raw
// block. Above this, the body is split into fixed-size raw blocks plus a
// manifest block, keeping every individual block under the ~900 KiB
// block budget. This chunking is wire-layer bookkeeping only: unlike
// pkg/streaming, it applies no encryption, since the body bytes a PUT
// carries may already be ciphertext produced by the client's own
// encryption layer; the gateway never encrypts server-side.
const (
	maxSingleBlockBody = 768 * 1024
	blobChunkSize      = 512 * 1024
)

// blobManifest lists the chunk addresses of a body too large for a single
// block, in order.
type blobManifest struct {
	TotalSize uint64                  `cbor:"total_size"`
	ChunkSize int                     `cbor:"chunk_size"`
	Chunks    []address.ContentAddress `cbor:"chunks"`
}

// putObjectBody stores body against store, chunking it if necessary, and
// returns the address a caller should record in
// ObjectMetadata.ContentAddress plus the body's MD5-based ETag.
func putObjectBody(ctx context.Context, store blockstore.BlockStore, body []byte) (address.ContentAddress, string, error) {
	sum := md5.Sum(body)
	etag := fmt.Sprintf("%q", hex.EncodeToString(sum[:]))

	if len(body) <= maxSingleBlockBody {
		addr, err := store.PutBlock(ctx, body)
		if err != nil {
			return address.ContentAddress{}, "", fmt.Errorf("storing object body: %w", err)
		}
		return addr, etag, nil
	}

	manifest := blobManifest{TotalSize: uint64(len(body)), ChunkSize: blobChunkSize}
	for offset := 0; offset < len(body); offset += blobChunkSize {
		end := offset + blobChunkSize
		if end > len(body) {
			end = len(body)
		}
		addr, err := store.PutBlock(ctx, body[offset:end])
		if err != nil {
			return address.ContentAddress{}, "", fmt.Errorf("storing object chunk at offset %d: %w", offset, err)
		}
		manifest.Chunks = append(manifest.Chunks, addr)
	}

	addr, err := store.PutIPLD(ctx, manifest)
	if err != nil {
		return address.ContentAddress{}, "", fmt.Errorf("storing object manifest: %w", err)
	}
	return addr, etag, nil
}

// getObjectBody fetches and reassembles the full body for an object whose
// recorded size is size.
func getObjectBody(ctx context.Context, store blockstore.BlockStore, addr address.ContentAddress, size uint64) ([]byte, error) {
	if size <= maxSingleBlockBody {
		return store.GetBlock(ctx, addr)
	}

	var manifest blobManifest
	if err := store.GetIPLD(ctx, addr, &manifest); err != nil {
		return nil, fmt.Errorf("loading object manifest: %w", err)
	}

	out := make([]byte, 0, manifest.TotalSize)
	for i, chunkAddr := range manifest.Chunks {
		chunk, err := store.GetBlock(ctx, chunkAddr)
		if err != nil {
			return nil, fmt.Errorf("fetching object chunk %d: %w", i, err)
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// getObjectBodyRange fetches only the bytes covering [offset, offset+length)
// of an object's body, avoiding a full reassembly for large chunked bodies.
func getObjectBodyRange(ctx context.Context, store blockstore.BlockStore, addr address.ContentAddress, size, offset, length uint64) ([]byte, error) {
	if size <= maxSingleBlockBody {
		full, err := store.GetBlock(ctx, addr)
		if err != nil {
			return nil, err
		}
		end := offset + length
		if end > uint64(len(full)) {
			end = uint64(len(full))
		}
		if offset > end {
			return nil, nil
		}
		return full[offset:end], nil
	}

	var manifest blobManifest
	if err := store.GetIPLD(ctx, addr, &manifest); err != nil {
		return nil, fmt.Errorf("loading object manifest: %w", err)
	}

	cs := uint64(manifest.ChunkSize)
	firstChunk := int(offset / cs)
	lastChunk := int((offset + length - 1) / cs)
	if lastChunk >= len(manifest.Chunks) {
		lastChunk = len(manifest.Chunks) - 1
	}

	var plaintext []byte
	for i := firstChunk; i <= lastChunk; i++ {
		chunk, err := store.GetBlock(ctx, manifest.Chunks[i])
		if err != nil {
			return nil, fmt.Errorf("fetching object chunk %d: %w", i, err)
		}
		plaintext = append(plaintext, chunk...)
	}

	rangeStart := offset - uint64(firstChunk)*cs
	rangeEnd := rangeStart + length
	if rangeEnd > uint64(len(plaintext)) {
		rangeEnd = uint64(len(plaintext))
	}
	if rangeStart > rangeEnd {
		return nil, nil
	}
	return plaintext[rangeStart:rangeEnd], nil
}

// deleteObjectBody removes every block backing an object's body.
func deleteObjectBody(ctx context.Context, store blockstore.BlockStore, addr address.ContentAddress, size uint64) error {
	if size <= maxSingleBlockBody {
		return store.DeleteBlock(ctx, addr)
	}

	var manifest blobManifest
	if err := store.GetIPLD(ctx, addr, &manifest); err != nil {
		if err := store.DeleteBlock(ctx, addr); err != nil {
			return err
		}
		return nil
	}
	for _, chunkAddr := range manifest.Chunks {
		_ = store.DeleteBlock(ctx, chunkAddr)
	}
	return store.DeleteBlock(ctx, addr)
}
