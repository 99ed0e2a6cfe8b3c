package bucket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fula-project/gateway/pkg/blockstore"
	"github.com/fula-project/gateway/pkg/metrics"
	"github.com/fula-project/gateway/pkg/prolly"
)

// Manager maintains the registry of bucket names to BucketMetadata and
// opens buckets against a shared block store. Manager does not
// coordinate writers across processes. Within one Manager, OpenBucket
// returns the same *Bucket for repeat calls on the same name, and that
// Bucket's own mutex serializes its writers.
type Manager struct {
	store    blockstore.BlockStore
	pins     blockstore.PinStore
	registry Registry
	nodeID   string

	treeConfig prolly.Config

	pinWaitPoll    time.Duration
	pinWaitTimeout time.Duration

	treeMetrics metrics.TreeMetrics

	mu      sync.Mutex
	opened  map[string]*Bucket
}

// NewManager builds a Manager over store/pins using registry for bucket
// metadata persistence. pins may be nil, in which case PutObject/Flush
// never pin (useful for in-memory tests). nodeID identifies this replica
// for the CRDT overlay; it may be empty for a single-writer
// deployment.
func NewManager(store blockstore.BlockStore, pins blockstore.PinStore, registry Registry, nodeID string) *Manager {
	return &Manager{
		store:      store,
		pins:       pins,
		registry:   registry,
		nodeID:     nodeID,
		treeConfig: prolly.DefaultConfig(),
		opened:     make(map[string]*Bucket),
	}
}

// WithTreeConfig overrides the Prolly Tree node-splitting thresholds used
// for buckets opened after this call.
func (m *Manager) WithTreeConfig(cfg prolly.Config) *Manager {
	m.treeConfig = cfg
	return m
}

// WithTreeMetrics attaches tree observability to every bucket opened by
// this Manager. m may be nil (collection disabled).
func (m *Manager) WithTreeMetrics(tm metrics.TreeMetrics) *Manager {
	m.treeMetrics = tm
	return m
}

// WithPinWait makes every flush block until the new root's pin reaches
// Pinned, polling at poll and giving up (with a caller-visible error)
// after timeout. Without this, pin requests are issued but their remote
// completion is not awaited.
func (m *Manager) WithPinWait(poll, timeout time.Duration) *Manager {
	m.pinWaitPoll = poll
	m.pinWaitTimeout = timeout
	return m
}

// CreateBucket registers a new, empty bucket. Fails with
// ErrInvalidBucketName or ErrBucketAlreadyExists.
func (m *Manager) CreateBucket(ctx context.Context, name, ownerID string) (*Bucket, error) {
	if !ValidBucketName(name) {
		return nil, ErrInvalidBucketName
	}

	meta := &BucketMetadata{
		Name:                name,
		CreatedAt:           timeNow(),
		OwnerID:             ownerID,
		DefaultStorageClass: "STANDARD",
		LastModified:        timeNow(),
	}
	if err := m.registry.Create(ctx, meta); err != nil {
		return nil, err
	}

	b := &Bucket{
		mgr:  m,
		meta: *meta,
		tree: prolly.NewWithConfig[ObjectMetadata](m.store, m.treeConfig),
	}

	m.mu.Lock()
	m.opened[name] = b
	m.mu.Unlock()
	return b, nil
}

// OpenBucket loads a registered bucket's metadata and its Prolly Tree at
// the metadata's current root (or an empty tree if the bucket has never
// been flushed). Repeat calls for the same name within this Manager return
// the same *Bucket instance.
func (m *Manager) OpenBucket(ctx context.Context, name string) (*Bucket, error) {
	m.mu.Lock()
	if b, ok := m.opened[name]; ok {
		m.mu.Unlock()
		return b, nil
	}
	m.mu.Unlock()

	meta, err := m.registry.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	var tree *prolly.Tree[ObjectMetadata]
	if meta.HasRoot {
		tree, err = prolly.LoadWithConfig[ObjectMetadata](ctx, m.store, meta.RootAddress, m.treeConfig)
		if err != nil {
			return nil, fmt.Errorf("bucket: open %s: loading root: %w", name, err)
		}
	} else {
		tree = prolly.NewWithConfig[ObjectMetadata](m.store, m.treeConfig)
	}

	b := &Bucket{mgr: m, meta: *meta, tree: tree}

	m.mu.Lock()
	if existing, ok := m.opened[name]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.opened[name] = b
	m.mu.Unlock()
	return b, nil
}

// BucketExists reports whether name is registered.
func (m *Manager) BucketExists(ctx context.Context, name string) (bool, error) {
	_, err := m.registry.Get(ctx, name)
	if err == nil {
		return true, nil
	}
	if err == ErrBucketNotFound {
		return false, nil
	}
	return false, err
}

// DeleteBucket removes an empty bucket from the registry. Fails with
// ErrBucketNotEmpty if ObjectCount > 0; the caller must delete all objects
// first (S3 semantics).
func (m *Manager) DeleteBucket(ctx context.Context, name string) error {
	meta, err := m.registry.Get(ctx, name)
	if err != nil {
		return err
	}
	if meta.ObjectCount > 0 {
		return ErrBucketNotEmpty
	}
	if err := m.registry.Delete(ctx, name); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.opened, name)
	m.mu.Unlock()
	return nil
}

// ListBuckets returns every registered bucket's metadata.
func (m *Manager) ListBuckets(ctx context.Context) ([]*BucketMetadata, error) {
	return m.registry.List(ctx)
}
