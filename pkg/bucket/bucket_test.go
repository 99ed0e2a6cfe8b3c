package bucket_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fula-project/gateway/pkg/blockstore/memory"
	"github.com/fula-project/gateway/pkg/bucket"
)

func newTestManager(t *testing.T) *bucket.Manager {
	t.Helper()
	store := memory.New()
	return bucket.NewManager(store, store, bucket.NewMemoryRegistry(), "node-a")
}

func TestCreateBucketRejectsInvalidName(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.CreateBucket(ctx, "AB", "owner-1")
	require.ErrorIs(t, err, bucket.ErrInvalidBucketName)

	_, err = mgr.CreateBucket(ctx, "-leading-hyphen", "owner-1")
	require.ErrorIs(t, err, bucket.ErrInvalidBucketName)

	_, err = mgr.CreateBucket(ctx, "valid-bucket-1", "owner-1")
	require.NoError(t, err)

	_, err = mgr.CreateBucket(ctx, "valid-bucket-1", "owner-1")
	require.ErrorIs(t, err, bucket.ErrBucketAlreadyExists)
}

func TestPutGetDeleteObject(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	b, err := mgr.CreateBucket(ctx, "photos", "owner-1")
	require.NoError(t, err)

	meta := bucket.ObjectMetadata{Size: 5, ETag: `"abc"`, OwnerID: "owner-1"}
	_, err = b.PutObject(ctx, "hello.txt", meta)
	require.NoError(t, err)

	got, ok, err := b.GetObject(ctx, "hello.txt")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(5), got.Size)
	require.Equal(t, uint64(1), b.Metadata().ObjectCount)

	require.NoError(t, b.DeleteObject(ctx, "hello.txt"))
	_, ok, err = b.GetObject(ctx, "hello.txt")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, uint64(0), b.Metadata().ObjectCount)

	// Idempotent delete of an absent key.
	require.NoError(t, b.DeleteObject(ctx, "hello.txt"))
}

func TestOpenBucketReturnsSameInstance(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.CreateBucket(ctx, "docs", "owner-1")
	require.NoError(t, err)

	a, err := mgr.OpenBucket(ctx, "docs")
	require.NoError(t, err)
	b, err := mgr.OpenBucket(ctx, "docs")
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestDeleteBucketRequiresEmpty(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	b, err := mgr.CreateBucket(ctx, "full-bucket", "owner-1")
	require.NoError(t, err)
	_, err = b.PutObject(ctx, "k", bucket.ObjectMetadata{Size: 1, OwnerID: "owner-1"})
	require.NoError(t, err)

	require.ErrorIs(t, mgr.DeleteBucket(ctx, "full-bucket"), bucket.ErrBucketNotEmpty)

	require.NoError(t, b.DeleteObject(ctx, "k"))
	require.NoError(t, mgr.DeleteBucket(ctx, "full-bucket"))

	exists, err := mgr.BucketExists(ctx, "full-bucket")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestListObjectsWithDelimiter(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	b, err := mgr.CreateBucket(ctx, "listing", "owner-1")
	require.NoError(t, err)

	keys := []string{
		"photos/a.jpg",
		"photos/b.jpg",
		"photos/2024/c.jpg",
		"docs/r.pdf",
	}
	for _, k := range keys {
		_, err := b.PutObject(ctx, k, bucket.ObjectMetadata{Size: 1, OwnerID: "owner-1"})
		require.NoError(t, err)
	}

	result, err := b.ListObjects(ctx, "photos/", "/", "", "", 100)
	require.NoError(t, err)

	var gotKeys []string
	for _, o := range result.Objects {
		gotKeys = append(gotKeys, o.Key)
	}
	require.ElementsMatch(t, []string{"photos/a.jpg", "photos/b.jpg"}, gotKeys)
	require.Equal(t, []string{"photos/2024/"}, result.CommonPrefixes)
	require.False(t, result.IsTruncated)
}

func TestListObjectsPagination(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	b, err := mgr.CreateBucket(ctx, "paged", "owner-1")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err := b.PutObject(ctx, string(rune('a'+i)), bucket.ObjectMetadata{Size: 1, OwnerID: "owner-1"})
		require.NoError(t, err)
	}

	first, err := b.ListObjects(ctx, "", "", "", "", 4)
	require.NoError(t, err)
	require.Len(t, first.Objects, 4)
	require.True(t, first.IsTruncated)
	require.NotEmpty(t, first.NextContinuationToken)

	second, err := b.ListObjects(ctx, "", "", "", first.NextContinuationToken, 100)
	require.NoError(t, err)
	require.Len(t, second.Objects, 6)
	require.False(t, second.IsTruncated)
}

func TestCopyObjectPreservesContentAddress(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	b, err := mgr.CreateBucket(ctx, "copies", "owner-1")
	require.NoError(t, err)

	orig := bucket.ObjectMetadata{Size: 3, ETag: `"x"`, OwnerID: "owner-1"}
	_, err = b.PutObject(ctx, "src.txt", orig)
	require.NoError(t, err)

	copied, err := b.CopyObject(ctx, "src.txt", "dst.txt")
	require.NoError(t, err)
	require.Equal(t, orig.ContentAddress, copied.ContentAddress)
	require.Equal(t, orig.Size, copied.Size)

	_, err = b.CopyObject(ctx, "missing.txt", "dst2.txt")
	require.ErrorIs(t, err, bucket.ErrObjectNotFound)
}

func TestFlushIdempotentWhenClean(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	b, err := mgr.CreateBucket(ctx, "flush-bucket", "owner-1")
	require.NoError(t, err)
	_, err = b.PutObject(ctx, "k", bucket.ObjectMetadata{Size: 1, OwnerID: "owner-1"})
	require.NoError(t, err)

	root1, err := b.Flush(ctx)
	require.NoError(t, err)
	root2, err := b.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, root1, root2)
}
