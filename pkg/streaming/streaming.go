// Package streaming implements the chunked streaming codec: it splits a
// plaintext into fixed-size chunks, AEAD-encrypts each one under a
// file's DEK, and records a Bao-style outboard (a whole-content BLAKE3 root
// hash plus per-1-KiB-block hashes) over the plaintext. Decode checks the
// reassembled plaintext against the 32-byte root hash; DecodeRange decrypts
// a byte range without checking it against the root.
package streaming

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/fula-project/gateway/pkg/crypto/aead"
)

const (
	// DefaultChunkSize is used when a caller doesn't specify one.
	DefaultChunkSize = 256 * 1024
	// MinChunkSize and MaxChunkSize bound every configurable chunk size.
	MinChunkSize = 64 * 1024
	MaxChunkSize = 16 * 1024 * 1024

	// FormatTag identifies the on-disk shape of a ChunkedFileIndex, so a
	// future incompatible revision of this codec can coexist with it.
	FormatTag = "streaming-v1"
)

var (
	// ErrHashMismatch is returned when a reconstructed root hash does not
	// match the one recorded in a ChunkedFileIndex or BaoOutboard.
	ErrHashMismatch = errors.New("streaming: hash mismatch")
	// ErrChunkCountMismatch is returned when a decoder is given a different
	// number of chunks than the index declares.
	ErrChunkCountMismatch = errors.New("streaming: chunk count mismatch")
)

// ClampChunkSize restricts n to [MinChunkSize, MaxChunkSize].
func ClampChunkSize(n int) int {
	switch {
	case n < MinChunkSize:
		return MinChunkSize
	case n > MaxChunkSize:
		return MaxChunkSize
	default:
		return n
	}
}

// EncryptedChunk is one ciphertext block of a chunked stream, addressed by
// its position in the original plaintext.
type EncryptedChunk struct {
	Index      int
	Nonce      []byte
	Ciphertext []byte
}

// ChunkedFileIndex is the metadata record a caller persists alongside a
// chunked stream's ciphertext blocks: the shape needed to decrypt, verify,
// and randomly access it without touching the block store.
type ChunkedFileIndex struct {
	FormatTag   string   `cbor:"format_tag"`
	ChunkSize   int      `cbor:"chunk_size"`
	ChunkCount  int      `cbor:"chunk_count"`
	TotalSize   uint64   `cbor:"total_size"`
	RootHash    string   `cbor:"root_hash"` // hex-encoded BLAKE3 root
	Nonces      []string `cbor:"nonces"`    // base64, one per chunk in index order
	ContentType string   `cbor:"content_type,omitempty"`
}

// ChunkKey returns the sibling-block storage key for chunk index under a
// file's base storage key: "<base>.chunks/<index8>".
func ChunkKey(base string, index int) string {
	return fmt.Sprintf("%s.chunks/%08d", base, index)
}

// Encoder splits plaintext into fixed-size chunks, AEAD-encrypts each under
// key, and accumulates a Bao outboard over the plaintext as it goes. Use
// Update for streaming input and Finalize to obtain the completed index,
// or Encode for the one-shot, already-in-memory form.
type Encoder struct {
	key       aead.Key
	chunkSize int
	nonces    *aead.NonceSequence
	bao       *BaoEncoder

	chunks      []EncryptedChunk
	nonceB64    []string
	pending     []byte
	nextIndex   int
	contentType string
}

// NewEncoder constructs an Encoder with chunkSize (clamped to the
// configured bounds) encrypting under key.
func NewEncoder(key aead.Key, chunkSize int) (*Encoder, error) {
	seq, err := aead.NewNonceSequence()
	if err != nil {
		return nil, fmt.Errorf("streaming: seeding nonce sequence: %w", err)
	}
	return &Encoder{
		key:       key,
		chunkSize: ClampChunkSize(chunkSize),
		nonces:    seq,
		bao:       NewBaoEncoder(),
	}, nil
}

// SetContentType records the content type to surface in the finalized
// index. Optional.
func (e *Encoder) SetContentType(ct string) { e.contentType = ct }

// Update feeds more plaintext into the encoder, flushing complete chunks
// as they accumulate. Memory use is O(chunk size) regardless of how much
// data has been fed so far.
func (e *Encoder) Update(data []byte) error {
	e.pending = append(e.pending, data...)
	for len(e.pending) >= e.chunkSize {
		if err := e.flushChunk(e.pending[:e.chunkSize]); err != nil {
			return err
		}
		e.pending = e.pending[e.chunkSize:]
	}
	return nil
}

func (e *Encoder) flushChunk(plaintext []byte) error {
	nonce := e.nonces.Next()
	ciphertext, err := aead.Seal(e.key, nonce, plaintext, chunkAAD(e.nextIndex))
	if err != nil {
		return fmt.Errorf("streaming: encrypting chunk %d: %w", e.nextIndex, err)
	}
	e.bao.Update(plaintext)
	e.chunks = append(e.chunks, EncryptedChunk{Index: e.nextIndex, Nonce: nonce, Ciphertext: ciphertext})
	e.nonceB64 = append(e.nonceB64, base64.StdEncoding.EncodeToString(nonce))
	e.nextIndex++
	return nil
}

// Finalize flushes any trailing partial chunk and returns the completed
// index, the emitted chunks (in order), and the Bao outboard over the
// plaintext. The encoder must not be reused afterward.
func (e *Encoder) Finalize() (*ChunkedFileIndex, []EncryptedChunk, *BaoOutboard, error) {
	if len(e.pending) > 0 {
		if err := e.flushChunk(e.pending); err != nil {
			return nil, nil, nil, err
		}
		e.pending = nil
	}
	outboard := e.bao.Finalize()
	idx := &ChunkedFileIndex{
		FormatTag:   FormatTag,
		ChunkSize:   e.chunkSize,
		ChunkCount:  len(e.chunks),
		TotalSize:   outboard.ContentLength,
		RootHash:    hex.EncodeToString(outboard.RootHash[:]),
		Nonces:      e.nonceB64,
		ContentType: e.contentType,
	}
	return idx, e.chunks, outboard, nil
}

// Encode is the one-shot convenience form of Encoder for plaintext already
// fully in memory.
func Encode(key aead.Key, plaintext []byte, chunkSize int) (*ChunkedFileIndex, []EncryptedChunk, *BaoOutboard, error) {
	enc, err := NewEncoder(key, chunkSize)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := enc.Update(plaintext); err != nil {
		return nil, nil, nil, err
	}
	return enc.Finalize()
}

// EncodeReader is the streaming form: it reads r one chunk at a time
// rather than requiring the whole plaintext in memory up front.
func EncodeReader(key aead.Key, r io.Reader, chunkSize int) (*ChunkedFileIndex, []EncryptedChunk, *BaoOutboard, error) {
	enc, err := NewEncoder(key, chunkSize)
	if err != nil {
		return nil, nil, nil, err
	}
	buf := make([]byte, enc.chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if uerr := enc.Update(buf[:n]); uerr != nil {
				return nil, nil, nil, uerr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, nil, fmt.Errorf("streaming: reading source: %w", err)
		}
	}
	return enc.Finalize()
}

// Decode decrypts and verifies a complete set of chunks against idx,
// accepting them in any order (they are sorted on Index before assembly),
// and returns the reassembled, verified plaintext.
func Decode(key aead.Key, idx *ChunkedFileIndex, chunks []EncryptedChunk) ([]byte, error) {
	if len(chunks) != idx.ChunkCount {
		return nil, fmt.Errorf("%w: index declares %d chunks, got %d", ErrChunkCountMismatch, idx.ChunkCount, len(chunks))
	}
	ordered := append([]EncryptedChunk(nil), chunks...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	expectedRoot, err := hex.DecodeString(idx.RootHash)
	if err != nil {
		return nil, fmt.Errorf("streaming: invalid root hash in index: %w", err)
	}

	bao := NewBaoEncoder()
	var out []byte
	for i, c := range ordered {
		if c.Index != i {
			return nil, fmt.Errorf("streaming: missing chunk %d", i)
		}
		nonce, err := nonceForChunk(idx, i)
		if err != nil {
			return nil, err
		}
		plaintext, err := aead.Open(key, nonce, c.Ciphertext, chunkAAD(i))
		if err != nil {
			return nil, fmt.Errorf("streaming: decrypting chunk %d: %w", i, err)
		}
		bao.Update(plaintext)
		out = append(out, plaintext...)
	}

	outboard := bao.Finalize()
	if !hashEqual(outboard.RootHash[:], expectedRoot) {
		return nil, fmt.Errorf("%w: expected %s, got %x", ErrHashMismatch, idx.RootHash, outboard.RootHash)
	}
	return out, nil
}

// DecodeRange decrypts only the chunks covering byte range [offset,
// offset+length) and returns exactly those plaintext bytes. It does not
// verify the whole-file root hash (that requires every chunk); callers
// needing range reads to be trust-no-one can additionally verify each
// covering chunk's 1-KiB Bao blocks via outboard, if one is available.
func DecodeRange(key aead.Key, idx *ChunkedFileIndex, chunks map[int]EncryptedChunk, offset, length uint64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	cs := uint64(idx.ChunkSize)
	firstChunk := int(offset / cs)
	lastChunk := int((offset + length - 1) / cs)

	var plaintext []byte
	for i := firstChunk; i <= lastChunk; i++ {
		c, ok := chunks[i]
		if !ok {
			return nil, fmt.Errorf("streaming: missing chunk %d for requested range", i)
		}
		nonce, err := nonceForChunk(idx, i)
		if err != nil {
			return nil, err
		}
		p, err := aead.Open(key, nonce, c.Ciphertext, chunkAAD(i))
		if err != nil {
			return nil, fmt.Errorf("streaming: decrypting chunk %d: %w", i, err)
		}
		plaintext = append(plaintext, p...)
	}

	rangeStart := offset - uint64(firstChunk)*cs
	rangeEnd := rangeStart + length
	if rangeEnd > uint64(len(plaintext)) {
		rangeEnd = uint64(len(plaintext))
	}
	return plaintext[rangeStart:rangeEnd], nil
}

// CoveringChunks returns the chunk indices needed to satisfy a read of
// [offset, offset+length) against idx.
func CoveringChunks(idx *ChunkedFileIndex, offset, length uint64) []int {
	if length == 0 {
		return nil
	}
	cs := uint64(idx.ChunkSize)
	first := int(offset / cs)
	last := int((offset + length - 1) / cs)
	out := make([]int, 0, last-first+1)
	for i := first; i <= last; i++ {
		out = append(out, i)
	}
	return out
}

func nonceForChunk(idx *ChunkedFileIndex, index int) ([]byte, error) {
	if index < 0 || index >= len(idx.Nonces) {
		return nil, fmt.Errorf("streaming: chunk %d has no recorded nonce", index)
	}
	nonce, err := base64.StdEncoding.DecodeString(idx.Nonces[index])
	if err != nil {
		return nil, fmt.Errorf("streaming: decoding nonce for chunk %d: %w", index, err)
	}
	return nonce, nil
}

// chunkAAD binds a chunk's ciphertext to its position, so chunks cannot be
// silently reordered or substituted across indices even though they share
// one DEK.
func chunkAAD(index int) []byte {
	return []byte(fmt.Sprintf("fula:v2:chunk:%d", index))
}

func hashEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
