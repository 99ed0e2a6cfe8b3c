package blockstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fula-project/gateway/pkg/address"
	"github.com/fula-project/gateway/pkg/blockstore"
)

// slowPinStore walks a pin through a fixed status sequence, one step per
// PinStatus poll.
type slowPinStore struct {
	mu       sync.Mutex
	sequence []blockstore.PinStatus
	polls    int
}

func (s *slowPinStore) Pin(context.Context, address.ContentAddress, string) error { return nil }
func (s *slowPinStore) Unpin(context.Context, address.ContentAddress) error       { return nil }
func (s *slowPinStore) IsPinned(context.Context, address.ContentAddress) (bool, error) {
	return false, nil
}
func (s *slowPinStore) ListPins(context.Context) ([]address.ContentAddress, error) {
	return nil, nil
}

func (s *slowPinStore) PinStatus(context.Context, address.ContentAddress) (blockstore.PinStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.polls
	if idx >= len(s.sequence) {
		idx = len(s.sequence) - 1
	}
	s.polls++
	return s.sequence[idx], nil
}

func TestWaitForPinReachesPinned(t *testing.T) {
	store := &slowPinStore{sequence: []blockstore.PinStatus{
		blockstore.PinStatusQueued,
		blockstore.PinStatusPinning,
		blockstore.PinStatusPinned,
	}}
	addr := address.OfRaw([]byte("pinned block"))

	err := blockstore.WaitForPin(context.Background(), store, addr, time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 3, store.polls)
}

func TestWaitForPinSurfacesErrorStatus(t *testing.T) {
	store := &slowPinStore{sequence: []blockstore.PinStatus{
		blockstore.PinStatusQueued,
		blockstore.PinStatusError,
	}}
	addr := address.OfRaw([]byte("failing block"))

	err := blockstore.WaitForPin(context.Background(), store, addr, time.Millisecond)
	require.ErrorIs(t, err, blockstore.ErrPinFailed)
}

func TestWaitForPinTimesOut(t *testing.T) {
	store := &slowPinStore{sequence: []blockstore.PinStatus{blockstore.PinStatusPinning}}
	addr := address.OfRaw([]byte("stuck block"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := blockstore.WaitForPin(ctx, store, addr, 5*time.Millisecond)
	require.ErrorIs(t, err, blockstore.ErrTimeout)
}
