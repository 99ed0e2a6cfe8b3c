package bucket

import (
	"context"
	"sync"
)

// MemoryRegistry is an in-memory Registry, suitable for tests, development,
// and single-process deployments that accept losing the bucket index on
// restart (the Prolly Tree data itself survives in the block store
// regardless; only the name->root mapping would need to be rebuilt).
type MemoryRegistry struct {
	mu      sync.RWMutex
	buckets map[string]*BucketMetadata
}

// NewMemoryRegistry returns an empty MemoryRegistry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{buckets: make(map[string]*BucketMetadata)}
}

func cloneMeta(m *BucketMetadata) *BucketMetadata {
	c := *m
	if m.Tags != nil {
		c.Tags = make(map[string]string, len(m.Tags))
		for k, v := range m.Tags {
			c.Tags[k] = v
		}
	}
	if m.CORSRules != nil {
		c.CORSRules = append([]CORSRule(nil), m.CORSRules...)
	}
	if m.Lifecycle != nil {
		c.Lifecycle = append([]LifecycleRule(nil), m.Lifecycle...)
	}
	return &c
}

func (r *MemoryRegistry) Create(ctx context.Context, meta *BucketMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buckets[meta.Name]; ok {
		return ErrBucketAlreadyExists
	}
	r.buckets[meta.Name] = cloneMeta(meta)
	return nil
}

func (r *MemoryRegistry) Get(ctx context.Context, name string) (*BucketMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.buckets[name]
	if !ok {
		return nil, ErrBucketNotFound
	}
	return cloneMeta(m), nil
}

func (r *MemoryRegistry) Save(ctx context.Context, meta *BucketMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buckets[meta.Name]; !ok {
		return ErrBucketNotFound
	}
	r.buckets[meta.Name] = cloneMeta(meta)
	return nil
}

func (r *MemoryRegistry) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.buckets[name]; !ok {
		return ErrBucketNotFound
	}
	delete(r.buckets, name)
	return nil
}

func (r *MemoryRegistry) List(ctx context.Context) ([]*BucketMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*BucketMetadata, 0, len(r.buckets))
	for _, m := range r.buckets {
		out = append(out, cloneMeta(m))
	}
	return out, nil
}
