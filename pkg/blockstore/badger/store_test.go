package badger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	blockstorebadger "github.com/fula-project/gateway/pkg/blockstore/badger"
)

func newTestStore(t *testing.T) *blockstorebadger.Store {
	t.Helper()
	store, err := blockstorebadger.Open(blockstorebadger.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetBlock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	addr, err := store.PutBlock(ctx, []byte("hello world"))
	require.NoError(t, err)

	got, err := store.GetBlock(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), got)

	has, err := store.HasBlock(ctx, addr)
	require.NoError(t, err)
	require.True(t, has)

	size, err := store.BlockSize(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, uint64(len("hello world")), size)
}

func TestPutBlockIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	addr1, err := store.PutBlock(ctx, []byte("same bytes"))
	require.NoError(t, err)
	addr2, err := store.PutBlock(ctx, []byte("same bytes"))
	require.NoError(t, err)
	require.Equal(t, addr1, addr2)
}

func TestDeleteBlock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	addr, err := store.PutBlock(ctx, []byte("to be deleted"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteBlock(ctx, addr))
	has, err := store.HasBlock(ctx, addr)
	require.NoError(t, err)
	require.False(t, has)
}

func TestPinLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	addr, err := store.PutBlock(ctx, []byte("pinned content"))
	require.NoError(t, err)

	require.NoError(t, store.Pin(ctx, addr, "root"))
	pinned, err := store.IsPinned(ctx, addr)
	require.NoError(t, err)
	require.True(t, pinned)

	pins, err := store.ListPins(ctx)
	require.NoError(t, err)
	require.Contains(t, pins, addr)

	require.NoError(t, store.Unpin(ctx, addr))
	pinned, err = store.IsPinned(ctx, addr)
	require.NoError(t, err)
	require.False(t, pinned)
}

func TestGetMissingBlock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	addr, err := store.PutBlock(ctx, []byte("exists"))
	require.NoError(t, err)
	require.NoError(t, store.DeleteBlock(ctx, addr))

	_, err = store.GetBlock(ctx, addr)
	require.Error(t, err)
}
