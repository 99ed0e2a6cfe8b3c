package prolly

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fula-project/gateway/pkg/address"
	"github.com/fula-project/gateway/pkg/blockstore"
)

// Tree is a persistent, sorted, content-addressed map from string keys to
// values of type V. Nodes live as blocks in store; the tree itself holds
// only the current root. Flush writes the root node; once the root is
// internal, every mutation rebuilds and persists the nodes below the root
// immediately.
type Tree[V any] struct {
	store    blockstore.BlockStore
	config   Config
	root     *node[V]
	rootAddr *address.ContentAddress
	dirty    bool
}

// New creates an empty tree with the default Config.
func New[V any](store blockstore.BlockStore) *Tree[V] {
	return NewWithConfig[V](store, DefaultConfig())
}

// NewWithConfig creates an empty tree with an explicit Config.
func NewWithConfig[V any](store blockstore.BlockStore, config Config) *Tree[V] {
	return &Tree[V]{store: store, config: config.normalized(), root: newLeaf[V]()}
}

// Load opens a tree snapshot at root with the default Config.
func Load[V any](ctx context.Context, store blockstore.BlockStore, root address.ContentAddress) (*Tree[V], error) {
	return LoadWithConfig[V](ctx, store, root, DefaultConfig())
}

// LoadWithConfig opens a tree snapshot at root. Fails if the block is
// missing or does not decode as a node of the expected shape.
func LoadWithConfig[V any](ctx context.Context, store blockstore.BlockStore, root address.ContentAddress, config Config) (*Tree[V], error) {
	var n node[V]
	if err := store.GetIPLD(ctx, root, &n); err != nil {
		return nil, fmt.Errorf("prolly: loading root %s: %w", root, err)
	}
	addr := root
	return &Tree[V]{store: store, config: config.normalized(), root: &n, rootAddr: &addr}, nil
}

// RootAddress returns the tree's last-flushed root address. The second
// return value is false if the tree has never been flushed or has been
// mutated since.
func (t *Tree[V]) RootAddress() (address.ContentAddress, bool) {
	if t.rootAddr == nil {
		return address.ContentAddress{}, false
	}
	return *t.rootAddr, true
}

// IsDirty reports whether the tree has mutations since the last Flush (or
// since Load, if never flushed).
func (t *Tree[V]) IsDirty() bool { return t.dirty }

// IsEmpty reports whether the tree holds no entries.
func (t *Tree[V]) IsEmpty() bool { return t.root.isEmpty() }

// Get looks up key, walking only the spine from the root to the leaf that
// could hold it.
func (t *Tree[V]) Get(ctx context.Context, key string) (V, bool, error) {
	return t.getFromNode(ctx, t.root, key)
}

func (t *Tree[V]) getFromNode(ctx context.Context, n *node[V], key string) (V, bool, error) {
	var zero V
	if n.IsLeaf {
		i := findEntry(n.Entries, key)
		if i < 0 {
			return zero, false, nil
		}
		return n.Entries[i].Value, true, nil
	}

	idx := childForKey(n.Children, key)
	if idx < 0 {
		return zero, false, nil
	}
	child, err := t.fetchChild(ctx, n.Children[idx].Addr)
	if err != nil {
		return zero, false, err
	}
	return t.getFromNode(ctx, child, key)
}

func (t *Tree[V]) fetchChild(ctx context.Context, addr address.ContentAddress) (*node[V], error) {
	var child node[V]
	if err := t.store.GetIPLD(ctx, addr, &child); err != nil {
		return nil, fmt.Errorf("prolly: fetching child %s: %w", addr, err)
	}
	return &child, nil
}

// Set inserts or replaces key's value. Insertion is idempotent on an
// identical (key, value) pair: it still marks the tree dirty (a write was
// issued) but leaves the logical content unchanged.
func (t *Tree[V]) Set(ctx context.Context, key string, value V) error {
	if t.root.IsLeaf {
		t.root.Entries = upsertEntry(t.root.Entries, key, value)
		if len(t.root.Entries) > t.config.MaxLeafEntries {
			if err := t.splitRoot(ctx); err != nil {
				return err
			}
		}
	} else {
		entries, err := t.collectAll(ctx)
		if err != nil {
			return err
		}
		entries = upsertEntry(entries, key, value)
		if err := t.rebuildFromEntries(ctx, entries); err != nil {
			return err
		}
	}
	t.markDirty()
	return nil
}

// Remove deletes key, returning its prior value if present.
func (t *Tree[V]) Remove(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if t.root.IsLeaf {
		entries, removed, ok := removeEntry(t.root.Entries, key)
		if !ok {
			return zero, false, nil
		}
		t.root.Entries = entries
		t.markDirty()
		return removed, true, nil
	}

	entries, err := t.collectAll(ctx)
	if err != nil {
		return zero, false, err
	}
	entries, removed, ok := removeEntry(entries, key)
	if !ok {
		return zero, false, nil
	}
	if err := t.rebuildFromEntries(ctx, entries); err != nil {
		return zero, false, err
	}
	t.markDirty()
	return removed, true, nil
}

func (t *Tree[V]) markDirty() {
	t.dirty = true
	t.rootAddr = nil
}

// Iter returns every entry in ascending key order.
func (t *Tree[V]) Iter(ctx context.Context) ([]Entry[V], error) {
	return t.collectAll(ctx)
}

// ListPrefix returns every entry whose key starts with prefix, in ascending
// key order.
func (t *Tree[V]) ListPrefix(ctx context.Context, prefix string) ([]Entry[V], error) {
	all, err := t.collectAll(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, e := range all {
		if strings.HasPrefix(e.Key, prefix) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len returns the number of entries in the tree.
func (t *Tree[V]) Len(ctx context.Context) (int, error) {
	entries, err := t.collectAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// collectAll walks the whole tree and returns every entry, sorted by key.
// Keys are already in order by construction; the sort keeps the
// invariant local to this function.
func (t *Tree[V]) collectAll(ctx context.Context) ([]Entry[V], error) {
	var out []Entry[V]
	if err := t.collectFrom(ctx, t.root, &out); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (t *Tree[V]) collectFrom(ctx context.Context, n *node[V], out *[]Entry[V]) error {
	if n.IsLeaf {
		*out = append(*out, n.Entries...)
		return nil
	}
	for _, c := range n.Children {
		child, err := t.fetchChild(ctx, c.Addr)
		if err != nil {
			return err
		}
		if err := t.collectFrom(ctx, child, out); err != nil {
			return err
		}
	}
	return nil
}

// splitRoot rebuilds the tree when the (leaf) root has grown past
// MaxLeafEntries.
func (t *Tree[V]) splitRoot(ctx context.Context) error {
	entries := append([]Entry[V]{}, t.root.Entries...)
	if len(entries) <= t.config.MaxLeafEntries {
		return nil
	}
	return t.rebuildFromEntries(ctx, entries)
}

// rebuildFromEntries replaces the in-memory root with a freshly built tree
// over entries (must already be sorted by key, with no duplicate keys).
// Leaves are chunked to MaxLeafEntries and persisted immediately so that
// higher levels can be built from their addresses; only the final root is
// left unpersisted, to be written by Flush.
func (t *Tree[V]) rebuildFromEntries(ctx context.Context, entries []Entry[V]) error {
	if len(entries) == 0 {
		t.root = newLeaf[V]()
		return nil
	}
	if len(entries) <= t.config.MaxLeafEntries {
		t.root = leafWithEntries(entries)
		return nil
	}

	var children []childRef
	for start := 0; start < len(entries); start += t.config.MaxLeafEntries {
		end := start + t.config.MaxLeafEntries
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]
		leaf := leafWithEntries(chunk)
		addr, err := t.store.PutIPLD(ctx, leaf)
		if err != nil {
			return fmt.Errorf("prolly: persisting leaf: %w", err)
		}
		children = append(children, childRef{MinKey: chunk[0].Key, Addr: addr})
	}

	if len(children) <= t.config.MaxChildren {
		t.root = &node[V]{Level: 1, Children: children}
		return nil
	}

	root, err := t.buildInternalLevel(ctx, children, 1)
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

// buildInternalLevel folds children (already built and persisted) into
// however many additional levels of internal nodes are needed to bring the
// fan-out at each level under MaxChildren, returning the new top (in
// memory, unpersisted) node.
func (t *Tree[V]) buildInternalLevel(ctx context.Context, children []childRef, level int) (*node[V], error) {
	if len(children) <= t.config.MaxChildren {
		return &node[V]{Level: level, Children: children}, nil
	}

	var next []childRef
	for start := 0; start < len(children); start += t.config.MaxChildren {
		end := start + t.config.MaxChildren
		if end > len(children) {
			end = len(children)
		}
		chunk := children[start:end]
		internal := &node[V]{Level: level, Children: chunk}
		addr, err := t.store.PutIPLD(ctx, internal)
		if err != nil {
			return nil, fmt.Errorf("prolly: persisting internal node: %w", err)
		}
		next = append(next, childRef{MinKey: chunk[0].MinKey, Addr: addr})
	}
	return t.buildInternalLevel(ctx, next, level+1)
}

// Flush persists the current root (if dirty) and returns its address.
// Calling Flush again on a clean tree returns the same address without
// writing anything.
func (t *Tree[V]) Flush(ctx context.Context) (address.ContentAddress, error) {
	if t.rootAddr != nil {
		return *t.rootAddr, nil
	}
	addr, err := t.store.PutIPLD(ctx, t.root)
	if err != nil {
		return address.ContentAddress{}, fmt.Errorf("prolly: flushing root: %w", err)
	}
	t.rootAddr = &addr
	t.dirty = false
	return addr, nil
}

// Stats reports shallow structural information about the current root,
// useful for tests and diagnostics.
type Stats struct {
	IsLeaf         bool
	Level          int
	PointerCount   int
	HasRootAddress bool
}

// Stats returns Stats for the tree's current in-memory root.
func (t *Tree[V]) Stats() Stats {
	return Stats{
		IsLeaf:         t.root.IsLeaf,
		Level:          t.root.Level,
		PointerCount:   t.root.pointerCount(),
		HasRootAddress: t.rootAddr != nil,
	}
}
