// Package memory provides an in-memory BlockStore/PinStore implementation,
// used by core-package tests and by the dev/single-node deployment profile.
package memory

import (
	"context"
	"sync"

	"github.com/fula-project/gateway/pkg/address"
	"github.com/fula-project/gateway/pkg/blockcodec"
	"github.com/fula-project/gateway/pkg/blockstore"
)

// Store is an in-memory BlockStore and PinStore. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	blocks map[address.ContentAddress][]byte
	pins   map[address.ContentAddress]string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		blocks: make(map[address.ContentAddress][]byte),
		pins:   make(map[address.ContentAddress]string),
	}
}

func (s *Store) PutBlock(_ context.Context, payload []byte) (address.ContentAddress, error) {
	addr := address.OfRaw(payload)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blocks[addr]; !exists {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		s.blocks[addr] = cp
	}
	return addr, nil
}

func (s *Store) GetBlock(_ context.Context, addr address.ContentAddress) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blocks[addr]
	if !ok {
		return nil, blockstore.ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *Store) HasBlock(_ context.Context, addr address.ContentAddress) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blocks[addr]
	return ok, nil
}

func (s *Store) DeleteBlock(_ context.Context, addr address.ContentAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocks, addr)
	return nil
}

func (s *Store) BlockSize(_ context.Context, addr address.ContentAddress) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blocks[addr]
	if !ok {
		return 0, blockstore.ErrNotFound
	}
	return uint64(len(data)), nil
}

func (s *Store) PutIPLD(ctx context.Context, value any) (address.ContentAddress, error) {
	addr, payload, err := blockcodec.AddressOf(value)
	if err != nil {
		return address.ContentAddress{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blocks[addr]; !exists {
		s.blocks[addr] = payload
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
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pins[addr] = name
	return nil
}

func (s *Store) Unpin(_ context.Context, addr address.ContentAddress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pins, addr)
	return nil
}

func (s *Store) IsPinned(_ context.Context, addr address.ContentAddress) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pins[addr]
	return ok, nil
}

func (s *Store) ListPins(_ context.Context) ([]address.ContentAddress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]address.ContentAddress, 0, len(s.pins))
	for addr := range s.pins {
		out = append(out, addr)
	}
	return out, nil
}

func (s *Store) PinStatus(_ context.Context, addr address.ContentAddress) (blockstore.PinStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.pins[addr]; ok {
		return blockstore.PinStatusPinned, nil
	}
	return blockstore.PinStatusUnpinned, nil
}

// BlockCount returns the number of distinct blocks stored, for tests.
func (s *Store) BlockCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

var (
	_ blockstore.BlockStore = (*Store)(nil)
	_ blockstore.PinStore   = (*Store)(nil)
)
