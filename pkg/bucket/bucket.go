package bucket

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fula-project/gateway/internal/logger"
	"github.com/fula-project/gateway/pkg/address"
	"github.com/fula-project/gateway/pkg/blockstore"
	"github.com/fula-project/gateway/pkg/crdt"
	"github.com/fula-project/gateway/pkg/prolly"
)

// Bucket is an opened bucket: its metadata plus the live Prolly Tree
// indexing its objects. A Bucket is obtained from Manager.OpenBucket (or
// CreateBucket) and is safe for concurrent reads; writes (PutObject,
// DeleteObject, CopyObject, Flush) are serialized by an internal mutex,
// keeping to the one-writer-per-bucket contract; this
// package enforces that contract for writers that share a Bucket value,
// but does not coordinate across separate processes or Manager instances.
type Bucket struct {
	mgr *Manager

	mu      sync.Mutex
	meta    BucketMetadata
	tree    *prolly.Tree[ObjectMetadata]
	overlay *crdt.BucketOverlay
}

// Name returns the bucket's name.
func (b *Bucket) Name() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.meta.Name
}

// Metadata returns a copy of the bucket's current metadata envelope.
func (b *Bucket) Metadata() BucketMetadata {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *cloneMeta(&b.meta)
}

// Overlay returns the bucket's CRDT overlay (tags/headers/ACL), creating it
// lazily on first access. Mutating the overlay does not itself persist
// anything; callers that want durability fold the relevant fields back into
// Metadata().Tags and call Flush.
func (b *Bucket) Overlay() *crdt.BucketOverlay {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.overlay == nil {
		b.overlay = crdt.NewBucketOverlay(b.mgr.nodeID)
	}
	return b.overlay
}

// GetObject looks up key in the bucket's index.
func (b *Bucket) GetObject(ctx context.Context, key string) (ObjectMetadata, bool, error) {
	b.mu.Lock()
	tree := b.tree
	b.mu.Unlock()

	start := time.Now()
	meta, found, err := tree.Get(ctx, key)
	if b.mgr.treeMetrics != nil && err == nil {
		b.mgr.treeMetrics.ObserveGet(b.meta.Name, time.Since(start), found)
	}
	return meta, found, err
}

// PutObject inserts or replaces key's metadata, then flushes the tree and
// pins the new root. The returned root address
// matches the bucket's registry record after this call returns.
func (b *Bucket) PutObject(ctx context.Context, key string, meta ObjectMetadata) (address.ContentAddress, error) {
	if key == "" {
		return address.ContentAddress{}, ErrInvalidObjectKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := meta.ModifiedAt
	if now.IsZero() {
		now = timeNow()
	}
	meta.ModifiedAt = now
	if meta.CreatedAt.IsZero() {
		if existing, ok, err := b.tree.Get(ctx, key); err == nil && ok {
			meta.CreatedAt = existing.CreatedAt
		} else {
			meta.CreatedAt = now
		}
	}

	existing, existed, err := b.tree.Get(ctx, key)
	if err != nil {
		return address.ContentAddress{}, fmt.Errorf("bucket: put %s/%s: %w", b.meta.Name, key, err)
	}

	if err := b.tree.Set(ctx, key, meta); err != nil {
		return address.ContentAddress{}, fmt.Errorf("bucket: put %s/%s: %w", b.meta.Name, key, err)
	}

	if existed {
		b.meta.TotalSize = b.meta.TotalSize - existing.Size + meta.Size
	} else {
		b.meta.ObjectCount++
		b.meta.TotalSize += meta.Size
	}
	b.meta.LastModified = now

	root, err := b.flushLocked(ctx)
	if err != nil {
		return address.ContentAddress{}, err
	}
	return root, nil
}

// DeleteObject removes key from the bucket's index and flushes. Deleting an
// absent key is not an error (idempotent), matching S3 DELETE semantics.
func (b *Bucket) DeleteObject(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed, existed, err := b.tree.Remove(ctx, key)
	if err != nil {
		return fmt.Errorf("bucket: delete %s/%s: %w", b.meta.Name, key, err)
	}
	if !existed {
		return nil
	}

	if b.meta.ObjectCount > 0 {
		b.meta.ObjectCount--
	}
	if b.meta.TotalSize >= removed.Size {
		b.meta.TotalSize -= removed.Size
	}
	b.meta.LastModified = timeNow()

	_, err = b.flushLocked(ctx)
	return err
}

// CopyObject duplicates src's metadata (including its ContentAddress; the
// body is not re-uploaded, matching S3 COPY semantics, since the body is
// content-addressed and immutable) under dst within the same bucket.
func (b *Bucket) CopyObject(ctx context.Context, src, dst string) (ObjectMetadata, error) {
	meta, ok, err := b.GetObject(ctx, src)
	if err != nil {
		return ObjectMetadata{}, err
	}
	if !ok {
		return ObjectMetadata{}, ErrObjectNotFound
	}
	meta.CreatedAt = time.Time{}
	meta.ModifiedAt = time.Time{}
	if _, err := b.PutObject(ctx, dst, meta); err != nil {
		return ObjectMetadata{}, err
	}
	copied, _, _ := b.GetObject(ctx, dst)
	return copied, nil
}

// Flush seals the tree's current state and persists the resulting root
// address (and the rest of the metadata envelope) to the registry, pinning
// the new root; raw chunk blocks are never pinned individually. Flushing a
// clean tree yields the same root address (prolly.Tree's flush is
// idempotent); the root is still pinned and the registry record saved again.
func (b *Bucket) Flush(ctx context.Context) (address.ContentAddress, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

func (b *Bucket) flushLocked(ctx context.Context) (address.ContentAddress, error) {
	flushStart := time.Now()
	root, err := b.tree.Flush(ctx)
	if err != nil {
		return address.ContentAddress{}, fmt.Errorf("bucket: flush %s: %w", b.meta.Name, err)
	}
	if b.mgr.treeMetrics != nil {
		b.mgr.treeMetrics.ObserveFlush(b.meta.Name, time.Since(flushStart))
		b.mgr.treeMetrics.RecordTreeDepth(b.meta.Name, b.tree.Stats().Level+1)
	}

	if b.mgr.pins != nil {
		if err := b.mgr.pins.Pin(ctx, root, "bucket:"+b.meta.Name); err != nil {
			if b.mgr.pinWaitTimeout > 0 {
				return address.ContentAddress{}, fmt.Errorf("bucket: pin root for %s: %w", b.meta.Name, err)
			}
			logger.Warn("bucket: pin root failed", "bucket", b.meta.Name, "error", err)
		} else if b.mgr.pinWaitTimeout > 0 {
			waitCtx, cancel := context.WithTimeout(ctx, b.mgr.pinWaitTimeout)
			err := blockstore.WaitForPin(waitCtx, b.mgr.pins, root, b.mgr.pinWaitPoll)
			cancel()
			if err != nil {
				return address.ContentAddress{}, fmt.Errorf("bucket: waiting for root pin for %s: %w", b.meta.Name, err)
			}
		}
	}

	b.meta.RootAddress = root
	b.meta.HasRoot = true

	if err := b.mgr.registry.Save(ctx, &b.meta); err != nil {
		return address.ContentAddress{}, fmt.Errorf("bucket: save registry for %s: %w", b.meta.Name, err)
	}
	return root, nil
}

// ListResult is the output of ListObjects: a page of keys in S3's
// list-objects-v2 shape.
type ListResult struct {
	Objects               []ObjectEntry
	CommonPrefixes        []string
	IsTruncated           bool
	NextContinuationToken string
}

// ObjectEntry pairs a key with its metadata for listing output.
type ObjectEntry struct {
	Key      string
	Metadata ObjectMetadata
}

// ListObjects streams the bucket's index in key order, groups keys sharing
// a run up to the next delimiter into CommonPrefixes, and paginates by
// MaxKeys/StartAfter/ContinuationToken. ContinuationToken, if
// set, takes precedence over StartAfter as the resume point, matching S3's
// list-type=2 semantics.
func (b *Bucket) ListObjects(ctx context.Context, prefix, delimiter, startAfter, continuationToken string, maxKeys int) (ListResult, error) {
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	b.mu.Lock()
	tree := b.tree
	b.mu.Unlock()

	entries, err := tree.ListPrefix(ctx, prefix)
	if err != nil {
		return ListResult{}, fmt.Errorf("bucket: list %s: %w", b.meta.Name, err)
	}

	resumeAfter := startAfter
	if continuationToken != "" {
		resumeAfter = continuationToken
	}

	var result ListResult

	// lastIncluded is the underlying key the page's final item covers up
	// to; it becomes the continuation token on truncation, and resumption
	// skips keys <= token, so it must point at the last key consumed, not
	// the first one left out. Keys sharing a common prefix are contiguous
	// in sorted order, so a prefix group is consumed whole and a page
	// never splits one.
	lastIncluded := ""
	i := 0
	for i < len(entries) {
		e := entries[i]
		if resumeAfter != "" && e.Key <= resumeAfter {
			i++
			continue
		}

		if len(result.Objects)+len(result.CommonPrefixes) >= maxKeys {
			result.IsTruncated = true
			result.NextContinuationToken = lastIncluded
			break
		}

		if delimiter != "" {
			rest := strings.TrimPrefix(e.Key, prefix)
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				cp := prefix + rest[:idx+len(delimiter)]
				result.CommonPrefixes = append(result.CommonPrefixes, cp)
				for i < len(entries) && strings.HasPrefix(entries[i].Key, cp) {
					lastIncluded = entries[i].Key
					i++
				}
				continue
			}
		}

		result.Objects = append(result.Objects, ObjectEntry{Key: e.Key, Metadata: e.Value})
		lastIncluded = e.Key
		i++
	}

	sort.Strings(result.CommonPrefixes)
	return result, nil
}

func timeNow() time.Time { return time.Now().UTC() }
