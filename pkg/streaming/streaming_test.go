package streaming

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fula-project/gateway/pkg/crypto/aead"
)

func testKey(t *testing.T) aead.Key {
	t.Helper()
	k, err := aead.GenerateKey(aead.AlgorithmAESGCM)
	require.NoError(t, err)
	return k
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	key := testKey(t)
	data := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 5000)

	idx, chunks, outboard, err := Encode(key, data, 64*1024)
	require.NoError(t, err)
	require.Equal(t, FormatTag, idx.FormatTag)
	require.Equal(t, uint64(len(data)), idx.TotalSize)
	require.Equal(t, len(chunks), idx.ChunkCount)
	require.NotEmpty(t, outboard.ChunkHashes)

	got, err := Decode(key, idx, chunks)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestEncodeReaderMatchesEncode(t *testing.T) {
	key := testKey(t)
	data := bytes.Repeat([]byte{0xAB, 0xCD, 0xEF}, 100000)

	idx1, chunks1, ob1, err := Encode(key, data, DefaultChunkSize)
	require.NoError(t, err)

	idx2, chunks2, ob2, err := EncodeReader(key, bytes.NewReader(data), DefaultChunkSize)
	require.NoError(t, err)

	require.Equal(t, idx1.ChunkCount, idx2.ChunkCount)
	require.Equal(t, ob1.RootHash, ob2.RootHash)
	require.Len(t, chunks2, len(chunks1))
}

func TestDecodeFailsOnCorruptedChunk(t *testing.T) {
	key := testKey(t)
	data := bytes.Repeat([]byte("data"), 50000)

	idx, chunks, _, err := Encode(key, data, 32*1024)
	require.NoError(t, err)

	chunks[len(chunks)/2].Ciphertext[0] ^= 0xFF

	_, err = Decode(key, idx, chunks)
	require.Error(t, err)
}

func TestDecodeFailsOnTamperedNonce(t *testing.T) {
	key := testKey(t)
	data := bytes.Repeat([]byte("data"), 50000)

	idx, chunks, _, err := Encode(key, data, 32*1024)
	require.NoError(t, err)
	idx.Nonces[0] = idx.Nonces[1]

	_, err = Decode(key, idx, chunks)
	require.Error(t, err)
}

func TestDecodeAcceptsChunksOutOfOrder(t *testing.T) {
	key := testKey(t)
	data := bytes.Repeat([]byte("shuffle me please"), 20000)

	idx, chunks, _, err := Encode(key, data, 16*1024)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	shuffled := append([]EncryptedChunk(nil), chunks...)
	shuffled[0], shuffled[len(shuffled)-1] = shuffled[len(shuffled)-1], shuffled[0]

	got, err := Decode(key, idx, shuffled)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestDecodeRangeReturnsExactSlice(t *testing.T) {
	key := testKey(t)
	data := make([]byte, 500000)
	for i := range data {
		data[i] = byte(i)
	}

	idx, chunks, _, err := Encode(key, data, 32*1024)
	require.NoError(t, err)

	byIndex := make(map[int]EncryptedChunk, len(chunks))
	for _, c := range chunks {
		byIndex[c.Index] = c
	}

	offset, length := uint64(100000), uint64(12345)
	covering := CoveringChunks(idx, offset, length)
	needed := make(map[int]EncryptedChunk, len(covering))
	for _, i := range covering {
		needed[i] = byIndex[i]
	}

	got, err := DecodeRange(key, idx, needed, offset, length)
	require.NoError(t, err)
	require.Equal(t, data[offset:offset+length], got)
}

func TestChunkSizeIsClamped(t *testing.T) {
	require.Equal(t, MinChunkSize, ClampChunkSize(1))
	require.Equal(t, MaxChunkSize, ClampChunkSize(1<<30))
	require.Equal(t, DefaultChunkSize, ClampChunkSize(DefaultChunkSize))
}

func TestChunkKeyLayout(t *testing.T) {
	require.Equal(t, "bucket/object.chunks/00000007", ChunkKey("bucket/object", 7))
}

func TestBaoOutboardRoundTripsThroughBytes(t *testing.T) {
	data := bytes.Repeat([]byte("bao test vector"), 1000)
	outboard := EncodeOutboard(data)

	restored, err := BaoOutboardFromBytes(outboard.ToBytes())
	require.NoError(t, err)
	require.Equal(t, outboard.RootHash, restored.RootHash)
	require.Equal(t, outboard.ContentLength, restored.ContentLength)
	require.Equal(t, outboard.ChunkHashes, restored.ChunkHashes)
}

func TestVerifyOutboardDetectsCorruption(t *testing.T) {
	data := []byte("original data")
	outboard := EncodeOutboard(data)

	require.NoError(t, VerifyOutboard(data, outboard))
	require.Error(t, VerifyOutboard([]byte("corrupted data"), outboard))
}

func TestIncrementalEncodingMatchesWholeUpdate(t *testing.T) {
	whole := EncodeOutboard([]byte("Hello, World!"))

	enc := NewBaoEncoder()
	enc.Update([]byte("Hello, "))
	enc.Update([]byte("World!"))
	incremental := enc.Finalize()

	require.Equal(t, whole.RootHash, incremental.RootHash)
}
