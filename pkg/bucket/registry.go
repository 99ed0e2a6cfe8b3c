package bucket

import "context"

// Registry persists BucketMetadata records keyed by bucket name. It is the
// durable backing store for Manager; Manager itself owns all in-memory
// Prolly Tree state and calls Registry only to load/save the metadata
// envelope (name, root address, counters, tags).
//
// Implementations must treat Save as an upsert and must be safe for
// concurrent use.
type Registry interface {
	Create(ctx context.Context, meta *BucketMetadata) error
	Get(ctx context.Context, name string) (*BucketMetadata, error)
	Save(ctx context.Context, meta *BucketMetadata) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]*BucketMetadata, error)
}
