// Package badger provides a BlockStore/PinStore backed by BadgerDB, for the
// single-node on-disk deployment profile (no external object store or pin
// service required). Keys are prefixed so blocks and pins share one
// database without colliding.
package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/fula-project/gateway/pkg/address"
	"github.com/fula-project/gateway/pkg/blockcodec"
	"github.com/fula-project/gateway/pkg/blockstore"
)

const (
	blockKeyPrefix = "b:"
	pinKeyPrefix   = "p:"
)

func blockKey(addr address.ContentAddress) []byte {
	return append([]byte(blockKeyPrefix), []byte(addr.String())...)
}

func pinKey(addr address.ContentAddress) []byte {
	return append([]byte(pinKeyPrefix), []byte(addr.String())...)
}

// Store is a BadgerDB-backed BlockStore and PinStore.
type Store struct {
	db *badgerdb.DB
}

// Options configures the on-disk database.
type Options struct {
	// Dir is the BadgerDB data directory. Required.
	Dir string
	// InMemory runs Badger entirely in memory, for tests; Dir is ignored.
	InMemory bool
	// Logger receives Badger's internal log lines. Nil disables logging.
	Logger badgerdb.Logger
}

// Open opens (creating if necessary) a BadgerDB-backed block store.
func Open(opts Options) (*Store, error) {
	badgerOpts := badgerdb.DefaultOptions(opts.Dir).WithInMemory(opts.InMemory)
	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	db, err := badgerdb.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("blockstore/badger: opening database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutBlock(_ context.Context, payload []byte) (address.ContentAddress, error) {
	addr := address.OfRaw(payload)

	err := s.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(blockKey(addr))
		if err == nil {
			return nil
		}
		if err != badgerdb.ErrKeyNotFound {
			return err
		}
		cp := make([]byte, len(payload))
		copy(cp, payload)
		return txn.Set(blockKey(addr), cp)
	})
	if err != nil {
		return address.ContentAddress{}, fmt.Errorf("blockstore/badger: put block: %w", err)
	}
	return addr, nil
}

func (s *Store) GetBlock(_ context.Context, addr address.ContentAddress) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(blockKey(addr))
		if err == badgerdb.ErrKeyNotFound {
			return blockstore.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			out = make([]byte, len(val))
			copy(out, val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) HasBlock(_ context.Context, addr address.ContentAddress) (bool, error) {
	found := false
	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(blockKey(addr))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

func (s *Store) DeleteBlock(_ context.Context, addr address.ContentAddress) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete(blockKey(addr))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("blockstore/badger: delete block: %w", err)
	}
	return nil
}

func (s *Store) BlockSize(_ context.Context, addr address.ContentAddress) (uint64, error) {
	var size uint64
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(blockKey(addr))
		if err == badgerdb.ErrKeyNotFound {
			return blockstore.ErrNotFound
		}
		if err != nil {
			return err
		}
		size = uint64(item.ValueSize())
		return nil
	})
	return size, err
}

func (s *Store) PutIPLD(ctx context.Context, value any) (address.ContentAddress, error) {
	addr, payload, err := blockcodec.AddressOf(value)
	if err != nil {
		return address.ContentAddress{}, err
	}
	err = s.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(blockKey(addr))
		if err == nil {
			return nil
		}
		if err != badgerdb.ErrKeyNotFound {
			return err
		}
		return txn.Set(blockKey(addr), payload)
	})
	if err != nil {
		return address.ContentAddress{}, fmt.Errorf("blockstore/badger: put ipld: %w", err)
	}
	return addr, nil
}

func (s *Store) GetIPLD(ctx context.Context, addr address.ContentAddress, out any) error {
	payload, err := s.GetBlock(ctx, addr)
	if err != nil {
		return err
	}
	return blockcodec.Decode(payload, out)
}

// ---- PinStore ----

func (s *Store) Pin(_ context.Context, addr address.ContentAddress, name string) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(pinKey(addr), []byte(name))
	})
	if err != nil {
		return fmt.Errorf("blockstore/badger: pin: %w", err)
	}
	return nil
}

func (s *Store) Unpin(_ context.Context, addr address.ContentAddress) error {
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete(pinKey(addr))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("blockstore/badger: unpin: %w", err)
	}
	return nil
}

func (s *Store) IsPinned(_ context.Context, addr address.ContentAddress) (bool, error) {
	pinned := false
	err := s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(pinKey(addr))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		pinned = true
		return nil
	})
	return pinned, err
}

func (s *Store) ListPins(_ context.Context) ([]address.ContentAddress, error) {
	var out []address.ContentAddress
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(pinKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			addr, err := address.Parse(string(key[len(pinKeyPrefix):]))
			if err != nil {
				return fmt.Errorf("blockstore/badger: parsing pinned address: %w", err)
			}
			out = append(out, addr)
		}
		return nil
	})
	return out, err
}

func (s *Store) PinStatus(ctx context.Context, addr address.ContentAddress) (blockstore.PinStatus, error) {
	pinned, err := s.IsPinned(ctx, addr)
	if err != nil {
		return blockstore.PinStatusUnpinned, err
	}
	if pinned {
		return blockstore.PinStatusPinned, nil
	}
	return blockstore.PinStatusUnpinned, nil
}

var (
	_ blockstore.BlockStore = (*Store)(nil)
	_ blockstore.PinStore   = (*Store)(nil)
)
