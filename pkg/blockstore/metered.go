package blockstore

import (
	"context"
	"time"

	"github.com/fula-project/gateway/pkg/address"
	"github.com/fula-project/gateway/pkg/metrics"
)

// meteredStore decorates a BlockStore with per-operation metrics.
type meteredStore struct {
	inner   BlockStore
	m       metrics.BlockStoreMetrics
	backend string
}

// meteredPins decorates a PinStore with per-operation metrics.
type meteredPins struct {
	inner   PinStore
	m       metrics.BlockStoreMetrics
	backend string
}

// NewMetered wraps store and pins so every operation reports to m, labeled
// with backend. Either argument may be nil (and is returned nil); a nil m
// returns store and pins unwrapped.
func NewMetered(store BlockStore, pins PinStore, m metrics.BlockStoreMetrics, backend string) (BlockStore, PinStore) {
	if m == nil {
		return store, pins
	}
	var outStore BlockStore
	if store != nil {
		outStore = &meteredStore{inner: store, m: m, backend: backend}
	}
	var outPins PinStore
	if pins != nil {
		outPins = &meteredPins{inner: pins, m: m, backend: backend}
	}
	return outStore, outPins
}

func (s *meteredStore) PutBlock(ctx context.Context, payload []byte) (address.ContentAddress, error) {
	start := time.Now()
	addr, err := s.inner.PutBlock(ctx, payload)
	s.m.ObserveOperation(s.backend, "PutBlock", time.Since(start), err)
	if err == nil {
		s.m.RecordBytes(s.backend, "write", int64(len(payload)))
	}
	return addr, err
}

func (s *meteredStore) GetBlock(ctx context.Context, addr address.ContentAddress) ([]byte, error) {
	start := time.Now()
	data, err := s.inner.GetBlock(ctx, addr)
	s.m.ObserveOperation(s.backend, "GetBlock", time.Since(start), err)
	if err == nil {
		s.m.RecordBytes(s.backend, "read", int64(len(data)))
	}
	return data, err
}

func (s *meteredStore) HasBlock(ctx context.Context, addr address.ContentAddress) (bool, error) {
	start := time.Now()
	ok, err := s.inner.HasBlock(ctx, addr)
	s.m.ObserveOperation(s.backend, "HasBlock", time.Since(start), err)
	return ok, err
}

func (s *meteredStore) DeleteBlock(ctx context.Context, addr address.ContentAddress) error {
	start := time.Now()
	err := s.inner.DeleteBlock(ctx, addr)
	s.m.ObserveOperation(s.backend, "DeleteBlock", time.Since(start), err)
	return err
}

func (s *meteredStore) BlockSize(ctx context.Context, addr address.ContentAddress) (uint64, error) {
	start := time.Now()
	size, err := s.inner.BlockSize(ctx, addr)
	s.m.ObserveOperation(s.backend, "BlockSize", time.Since(start), err)
	return size, err
}

func (s *meteredStore) PutIPLD(ctx context.Context, value any) (address.ContentAddress, error) {
	start := time.Now()
	addr, err := s.inner.PutIPLD(ctx, value)
	s.m.ObserveOperation(s.backend, "PutIPLD", time.Since(start), err)
	return addr, err
}

func (s *meteredStore) GetIPLD(ctx context.Context, addr address.ContentAddress, out any) error {
	start := time.Now()
	err := s.inner.GetIPLD(ctx, addr, out)
	s.m.ObserveOperation(s.backend, "GetIPLD", time.Since(start), err)
	return err
}

func (p *meteredPins) Pin(ctx context.Context, addr address.ContentAddress, name string) error {
	start := time.Now()
	err := p.inner.Pin(ctx, addr, name)
	p.m.ObserveOperation(p.backend, "Pin", time.Since(start), err)
	return err
}

func (p *meteredPins) Unpin(ctx context.Context, addr address.ContentAddress) error {
	start := time.Now()
	err := p.inner.Unpin(ctx, addr)
	p.m.ObserveOperation(p.backend, "Unpin", time.Since(start), err)
	return err
}

func (p *meteredPins) IsPinned(ctx context.Context, addr address.ContentAddress) (bool, error) {
	start := time.Now()
	ok, err := p.inner.IsPinned(ctx, addr)
	p.m.ObserveOperation(p.backend, "IsPinned", time.Since(start), err)
	return ok, err
}

func (p *meteredPins) ListPins(ctx context.Context) ([]address.ContentAddress, error) {
	start := time.Now()
	pins, err := p.inner.ListPins(ctx)
	p.m.ObserveOperation(p.backend, "ListPins", time.Since(start), err)
	return pins, err
}

func (p *meteredPins) PinStatus(ctx context.Context, addr address.ContentAddress) (PinStatus, error) {
	start := time.Now()
	status, err := p.inner.PinStatus(ctx, addr)
	p.m.ObserveOperation(p.backend, "PinStatus", time.Since(start), err)
	return status, err
}

var (
	_ BlockStore = (*meteredStore)(nil)
	_ PinStore   = (*meteredPins)(nil)
)
