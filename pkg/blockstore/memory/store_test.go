package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fula-project/gateway/pkg/blockstore"
)

func TestPutGetRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	payload := []byte("block bytes")
	addr, err := s.PutBlock(ctx, payload)
	require.NoError(t, err)

	got, err := s.GetBlock(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, payload, got)
	require.True(t, addr.Verify(got))
}

func TestPutIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	payload := []byte("same bytes")
	a, err := s.PutBlock(ctx, payload)
	require.NoError(t, err)
	b, err := s.PutBlock(ctx, payload)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, 1, s.BlockCount())
}

func TestGetMissingBlock(t *testing.T) {
	s := New()
	ctx := context.Background()

	addr, err := s.PutBlock(ctx, []byte("present"))
	require.NoError(t, err)
	require.NoError(t, s.DeleteBlock(ctx, addr))

	_, err = s.GetBlock(ctx, addr)
	require.ErrorIs(t, err, blockstore.ErrNotFound)

	has, err := s.HasBlock(ctx, addr)
	require.NoError(t, err)
	require.False(t, has)

	_, err = s.BlockSize(ctx, addr)
	require.ErrorIs(t, err, blockstore.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	addr, err := s.PutBlock(ctx, []byte("delete me"))
	require.NoError(t, err)
	require.NoError(t, s.DeleteBlock(ctx, addr))
	require.NoError(t, s.DeleteBlock(ctx, addr))
}

func TestBlockSize(t *testing.T) {
	s := New()
	ctx := context.Background()

	addr, err := s.PutBlock(ctx, make([]byte, 1234))
	require.NoError(t, err)

	size, err := s.BlockSize(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1234), size)
}

func TestGetReturnsACopy(t *testing.T) {
	s := New()
	ctx := context.Background()

	addr, err := s.PutBlock(ctx, []byte("immutable"))
	require.NoError(t, err)

	got, err := s.GetBlock(ctx, addr)
	require.NoError(t, err)
	got[0] = 'X'

	again, err := s.GetBlock(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, []byte("immutable"), again)
}

func TestIPLDRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	type record struct {
		Key   string `cbor:"key"`
		Count uint64 `cbor:"count"`
	}

	addr, err := s.PutIPLD(ctx, record{Key: "k", Count: 7})
	require.NoError(t, err)

	var out record
	require.NoError(t, s.GetIPLD(ctx, addr, &out))
	require.Equal(t, record{Key: "k", Count: 7}, out)
}

func TestPinLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	addr, err := s.PutBlock(ctx, []byte("pin me"))
	require.NoError(t, err)

	status, err := s.PinStatus(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, blockstore.PinStatusUnpinned, status)

	require.NoError(t, s.Pin(ctx, addr, "root"))

	pinned, err := s.IsPinned(ctx, addr)
	require.NoError(t, err)
	require.True(t, pinned)

	status, err = s.PinStatus(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, blockstore.PinStatusPinned, status)

	pins, err := s.ListPins(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{addr.String()}, []string{pins[0].String()})

	require.NoError(t, s.Unpin(ctx, addr))
	pinned, err = s.IsPinned(ctx, addr)
	require.NoError(t, err)
	require.False(t, pinned)
}
