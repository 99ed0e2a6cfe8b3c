package streaming

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
)

// BaoBlockSize is the granularity at which per-block hashes are recorded in
// a BaoOutboard, independent of the (usually much larger) chunk size used
// for AEAD encryption.
const BaoBlockSize = 1024

// BaoOutboard is a hash commitment over a plaintext: a BLAKE3 root hash
// over the whole content plus a flat list of per-1-KiB-block BLAKE3 hashes.
// The block hashes are not linked to the root hash: the root can only be
// checked by re-hashing the whole content (VerifyOutboard), and a byte range
// can only be checked against the block-hash list, not against the root.
type BaoOutboard struct {
	ContentLength uint64
	RootHash      [32]byte
	ChunkHashes   [][32]byte
}

// ToBytes serializes the outboard as 8 bytes of little-endian content
// length, 32 bytes of root hash, then the concatenated block hashes.
func (o *BaoOutboard) ToBytes() []byte {
	buf := make([]byte, 8+32+32*len(o.ChunkHashes))
	binary.LittleEndian.PutUint64(buf[0:8], o.ContentLength)
	copy(buf[8:40], o.RootHash[:])
	for i, h := range o.ChunkHashes {
		copy(buf[40+i*32:40+(i+1)*32], h[:])
	}
	return buf
}

// BaoOutboardFromBytes parses the wire form produced by ToBytes.
func BaoOutboardFromBytes(b []byte) (*BaoOutboard, error) {
	if len(b) < 40 {
		return nil, fmt.Errorf("streaming: outboard data too short")
	}
	rest := b[40:]
	if len(rest)%32 != 0 {
		return nil, fmt.Errorf("streaming: outboard chunk-hash section misaligned")
	}
	o := &BaoOutboard{
		ContentLength: binary.LittleEndian.Uint64(b[0:8]),
		ChunkHashes:   make([][32]byte, len(rest)/32),
	}
	copy(o.RootHash[:], b[8:40])
	for i := range o.ChunkHashes {
		copy(o.ChunkHashes[i][:], rest[i*32:(i+1)*32])
	}
	return o, nil
}

// BlockRange returns the inclusive-exclusive [start, end) indices into
// ChunkHashes covering byte range [offset, offset+length).
func (o *BaoOutboard) BlockRange(offset, length uint64) (start, end int) {
	if length == 0 {
		return 0, 0
	}
	start = int(offset / BaoBlockSize)
	end = int((offset+length-1)/BaoBlockSize) + 1
	if end > len(o.ChunkHashes) {
		end = len(o.ChunkHashes)
	}
	return start, end
}

// BaoEncoder incrementally builds a BaoOutboard as plaintext is fed to it in
// arbitrary-sized writes, independent of the caller's own chunk boundaries.
type BaoEncoder struct {
	hasher         *blake3.Hasher
	blockHashes    [][32]byte
	bytesProcessed uint64
	pending        []byte
}

// NewBaoEncoder returns a ready-to-use encoder.
func NewBaoEncoder() *BaoEncoder {
	return &BaoEncoder{hasher: blake3.New()}
}

// Update feeds more plaintext into the encoder.
func (e *BaoEncoder) Update(data []byte) {
	e.hasher.Write(data) //nolint:errcheck // hash.Hash.Write never returns an error
	e.bytesProcessed += uint64(len(data))
	e.pending = append(e.pending, data...)
	for len(e.pending) >= BaoBlockSize {
		e.blockHashes = append(e.blockHashes, blake3.Sum256(e.pending[:BaoBlockSize]))
		e.pending = e.pending[BaoBlockSize:]
	}
}

// BytesProcessed returns the number of plaintext bytes seen so far.
func (e *BaoEncoder) BytesProcessed() uint64 { return e.bytesProcessed }

// Finalize flushes any partial trailing block and returns the completed
// outboard. The encoder must not be reused afterward.
func (e *BaoEncoder) Finalize() *BaoOutboard {
	if len(e.pending) > 0 {
		e.blockHashes = append(e.blockHashes, blake3.Sum256(e.pending))
		e.pending = nil
	}
	var root [32]byte
	copy(root[:], e.hasher.Sum(nil))
	return &BaoOutboard{ContentLength: e.bytesProcessed, RootHash: root, ChunkHashes: e.blockHashes}
}

// EncodeOutboard is the one-shot convenience form for data already fully in
// memory.
func EncodeOutboard(data []byte) *BaoOutboard {
	enc := NewBaoEncoder()
	enc.Update(data)
	return enc.Finalize()
}

// VerifyOutboard recomputes data's root hash and compares it against
// outboard's, failing fast on any mismatch.
func VerifyOutboard(data []byte, outboard *BaoOutboard) error {
	got := EncodeOutboard(data)
	if got.RootHash != outboard.RootHash {
		return fmt.Errorf("%w: expected %x, got %x", ErrHashMismatch, outboard.RootHash, got.RootHash)
	}
	return nil
}
