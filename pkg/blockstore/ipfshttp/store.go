// Package ipfshttp provides a BlockStore and PinStore backed by an IPFS
// node's HTTP RPC API (Kubo's /api/v0) plus a remote IPFS Pinning Service
// for durability beyond the node's own garbage collection.
package ipfshttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/fula-project/gateway/pkg/address"
	"github.com/fula-project/gateway/pkg/blockcodec"
	"github.com/fula-project/gateway/pkg/blockstore"
)

// Config configures the IPFS HTTP backend.
type Config struct {
	// APIEndpoint is the IPFS node's HTTP RPC API address, e.g.
	// "http://localhost:5001".
	APIEndpoint string

	// PinningServiceEndpoint is the remote pinning service's base URL.
	// When empty, Pin/Unpin operate against the local node's own
	// "pin/add" and "pin/rm" endpoints instead.
	PinningServiceEndpoint string

	// PinningServiceToken authenticates against PinningServiceEndpoint.
	PinningServiceToken string

	// HTTPClient is the client used for all requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
}

// Store is an IPFS-HTTP-backed BlockStore and PinStore. Safe for
// concurrent use; the underlying http.Client handles its own connection
// pooling.
type Store struct {
	cfg    Config
	client *http.Client
}

// New returns a Store talking to the IPFS node and pinning service
// described by cfg.
func New(cfg Config) *Store {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &Store{cfg: cfg, client: client}
}

// putBlockRaw uploads payload as a raw block using block/put, mirroring the
// gateway's "don't pin inline" policy: raw leaf blocks are protected later
// by the bucket root's recursive pin at flush time, not individually here.
func (s *Store) putBlockRaw(ctx context.Context, payload []byte) (address.ContentAddress, error) {
	addr := address.OfRaw(payload)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("data", "data")
	if err != nil {
		return address.ContentAddress{}, fmt.Errorf("blockstore/ipfshttp: building multipart body: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return address.ContentAddress{}, fmt.Errorf("blockstore/ipfshttp: writing multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return address.ContentAddress{}, fmt.Errorf("blockstore/ipfshttp: closing multipart body: %w", err)
	}

	endpoint := s.cfg.APIEndpoint + "/api/v0/block/put?cid-codec=raw&mhtype=blake3"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return address.ContentAddress{}, fmt.Errorf("blockstore/ipfshttp: building request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return address.ContentAddress{}, fmt.Errorf("%w: block/put: %v", blockstore.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return address.ContentAddress{}, fmt.Errorf("blockstore/ipfshttp: block/put returned %s", resp.Status)
	}

	// The node's own CID for the block is discarded: this gateway's
	// ContentAddress (BLAKE3 + its own codec tag) is the address of
	// record everywhere above this backend.
	return addr, nil
}

func (s *Store) PutBlock(ctx context.Context, payload []byte) (address.ContentAddress, error) {
	return s.putBlockRaw(ctx, payload)
}

func (s *Store) GetBlock(ctx context.Context, addr address.ContentAddress) ([]byte, error) {
	endpoint := s.cfg.APIEndpoint + "/api/v0/block/get?arg=" + url.QueryEscape(addr.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("blockstore/ipfshttp: building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: block/get: %v", blockstore.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, blockstore.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blockstore/ipfshttp: block/get returned %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("blockstore/ipfshttp: reading block/get body: %w", err)
	}
	return data, nil
}

type blockStatResponse struct {
	Size int64 `json:"Size"`
}

func (s *Store) blockStat(ctx context.Context, addr address.ContentAddress) (blockStatResponse, error) {
	endpoint := s.cfg.APIEndpoint + "/api/v0/block/stat?arg=" + url.QueryEscape(addr.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return blockStatResponse{}, fmt.Errorf("blockstore/ipfshttp: building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return blockStatResponse{}, fmt.Errorf("%w: block/stat: %v", blockstore.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return blockStatResponse{}, blockstore.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return blockStatResponse{}, fmt.Errorf("blockstore/ipfshttp: block/stat returned %s", resp.Status)
	}

	var stat blockStatResponse
	if err := json.NewDecoder(resp.Body).Decode(&stat); err != nil {
		return blockStatResponse{}, fmt.Errorf("blockstore/ipfshttp: decoding block/stat response: %w", err)
	}
	return stat, nil
}

func (s *Store) HasBlock(ctx context.Context, addr address.ContentAddress) (bool, error) {
	_, err := s.blockStat(ctx, addr)
	if err == blockstore.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) BlockSize(ctx context.Context, addr address.ContentAddress) (uint64, error) {
	stat, err := s.blockStat(ctx, addr)
	if err != nil {
		return 0, err
	}
	return uint64(stat.Size), nil
}

func (s *Store) DeleteBlock(ctx context.Context, addr address.ContentAddress) error {
	endpoint := s.cfg.APIEndpoint + "/api/v0/block/rm?arg=" + url.QueryEscape(addr.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("blockstore/ipfshttp: building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: block/rm: %v", blockstore.ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("blockstore/ipfshttp: block/rm returned %s", resp.Status)
	}
	return nil
}

func (s *Store) PutIPLD(ctx context.Context, value any) (address.ContentAddress, error) {
	addr, payload, err := blockcodec.AddressOf(value)
	if err != nil {
		return address.ContentAddress{}, err
	}
	if _, err := s.putBlockRaw(ctx, payload); err != nil {
		return address.ContentAddress{}, err
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
//
// Pin/Unpin/ListPins target the remote pinning service when one is
// configured (the durability guarantee a single IPFS node's local
// datastore can't offer on its own), falling back to the node's own
// pin/add, pin/rm, and pin/ls otherwise.

func (s *Store) pinAddEndpoint(addr address.ContentAddress) string {
	if s.cfg.PinningServiceEndpoint != "" {
		return s.cfg.PinningServiceEndpoint + "/pins"
	}
	return s.cfg.APIEndpoint + "/api/v0/pin/add?arg=" + url.QueryEscape(addr.String()) + "&recursive=true"
}

func (s *Store) authorize(req *http.Request) {
	if s.cfg.PinningServiceEndpoint != "" && s.cfg.PinningServiceToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.PinningServiceToken)
	}
}

func (s *Store) Pin(ctx context.Context, addr address.ContentAddress, name string) error {
	if s.cfg.PinningServiceEndpoint != "" {
		payload, err := json.Marshal(map[string]any{"cid": addr.String(), "name": name})
		if err != nil {
			return fmt.Errorf("blockstore/ipfshttp: encoding pin request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pinAddEndpoint(addr), bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("blockstore/ipfshttp: building request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		s.authorize(req)

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: pinning service add: %v", blockstore.ErrConnection, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("%w: pinning service returned %s", blockstore.ErrPinFailed, resp.Status)
		}
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.pinAddEndpoint(addr), nil)
	if err != nil {
		return fmt.Errorf("blockstore/ipfshttp: building request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: pin/add: %v", blockstore.ErrConnection, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: pin/add returned %s", blockstore.ErrPinFailed, resp.Status)
	}
	return nil
}

func (s *Store) Unpin(ctx context.Context, addr address.ContentAddress) error {
	var endpoint, method string
	if s.cfg.PinningServiceEndpoint != "" {
		endpoint = s.cfg.PinningServiceEndpoint + "/pins/" + url.PathEscape(addr.String())
		method = http.MethodDelete
	} else {
		endpoint = s.cfg.APIEndpoint + "/api/v0/pin/rm?arg=" + url.QueryEscape(addr.String())
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return fmt.Errorf("blockstore/ipfshttp: building request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: unpin: %v", blockstore.ErrConnection, err)
	}
	defer resp.Body.Close()

	// Idempotent: a 404 on an address that was never pinned is not an error.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("%w: unpin returned %s", blockstore.ErrUnpinFailed, resp.Status)
	}
	return nil
}

func (s *Store) IsPinned(ctx context.Context, addr address.ContentAddress) (bool, error) {
	status, err := s.PinStatus(ctx, addr)
	if err != nil {
		return false, err
	}
	return status == blockstore.PinStatusPinned, nil
}

func (s *Store) PinStatus(ctx context.Context, addr address.ContentAddress) (blockstore.PinStatus, error) {
	if s.cfg.PinningServiceEndpoint != "" {
		endpoint := s.cfg.PinningServiceEndpoint + "/pins/" + url.PathEscape(addr.String())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return blockstore.PinStatusError, fmt.Errorf("blockstore/ipfshttp: building request: %w", err)
		}
		s.authorize(req)

		resp, err := s.client.Do(req)
		if err != nil {
			return blockstore.PinStatusError, fmt.Errorf("%w: pin status: %v", blockstore.ErrConnection, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return blockstore.PinStatusUnpinned, nil
		}
		if resp.StatusCode != http.StatusOK {
			return blockstore.PinStatusError, nil
		}

		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return blockstore.PinStatusError, fmt.Errorf("blockstore/ipfshttp: decoding pin status: %w", err)
		}
		return pinningServiceStatus(body.Status), nil
	}

	pinned, err := s.localPinLs(ctx, addr)
	if err != nil {
		return blockstore.PinStatusError, err
	}
	if pinned {
		return blockstore.PinStatusPinned, nil
	}
	return blockstore.PinStatusUnpinned, nil
}

func pinningServiceStatus(status string) blockstore.PinStatus {
	switch status {
	case "pinned":
		return blockstore.PinStatusPinned
	case "pinning", "queued":
		return blockstore.PinStatusPinning
	case "failed":
		return blockstore.PinStatusError
	default:
		return blockstore.PinStatusUnpinned
	}
}

func (s *Store) localPinLs(ctx context.Context, addr address.ContentAddress) (bool, error) {
	endpoint := s.cfg.APIEndpoint + "/api/v0/pin/ls?arg=" + url.QueryEscape(addr.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("blockstore/ipfshttp: building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: pin/ls: %v", blockstore.ErrConnection, err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

func (s *Store) ListPins(ctx context.Context) ([]address.ContentAddress, error) {
	endpoint := s.cfg.APIEndpoint + "/api/v0/pin/ls?type=recursive"
	method := http.MethodPost
	if s.cfg.PinningServiceEndpoint != "" {
		endpoint = s.cfg.PinningServiceEndpoint + "/pins"
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("blockstore/ipfshttp: building request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: list pins: %v", blockstore.ErrConnection, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blockstore/ipfshttp: list pins returned %s", resp.Status)
	}

	if s.cfg.PinningServiceEndpoint != "" {
		var body struct {
			Results []struct {
				Pin struct {
					CID string `json:"cid"`
				} `json:"pin"`
			} `json:"results"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("blockstore/ipfshttp: decoding pin list: %w", err)
		}
		out := make([]address.ContentAddress, 0, len(body.Results))
		for _, r := range body.Results {
			addr, err := address.Parse(r.Pin.CID)
			if err != nil {
				continue
			}
			out = append(out, addr)
		}
		return out, nil
	}

	var body struct {
		Keys map[string]struct {
			Type string `json:"Type"`
		} `json:"Keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("blockstore/ipfshttp: decoding pin/ls response: %w", err)
	}
	out := make([]address.ContentAddress, 0, len(body.Keys))
	for key := range body.Keys {
		addr, err := address.Parse(key)
		if err != nil {
			continue
		}
		out = append(out, addr)
	}
	return out, nil
}

var (
	_ blockstore.BlockStore = (*Store)(nil)
	_ blockstore.PinStore   = (*Store)(nil)
)
