// Package subtreekeys implements the shallow Cryptree-style key hierarchy:
// major subtrees (folders) get their own DEK, wrapped under the bucket's
// master DEK, so that sharing or revoking a folder only re-keys that
// folder instead of the whole bucket.
package subtreekeys

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fula-project/gateway/pkg/crypto/aead"
	"github.com/fula-project/gateway/pkg/crypto/keys"
)

// ErrMasterKeyNotSet is returned by any operation that needs the manager's
// master DEK before one has been provided.
var ErrMasterKeyNotSet = errors.New("subtreekeys: master DEK not set")

const dekWrapAAD = "fula:v2:subtree-dek-wrap"

// EncryptedSubtreeDEK is a subtree's DEK, AEAD-sealed under a parent DEK,
// as stored in a directory entry. Manager seals every subtree DEK, nested
// ones included, under the bucket's master DEK.
type EncryptedSubtreeDEK struct {
	Ciphertext []byte `cbor:"ciphertext"`
	Nonce      []byte `cbor:"nonce"`
	Version    uint32 `cbor:"version"`
	CreatedAt  int64  `cbor:"created_at"`
}

// EncryptSubtreeDEK seals subtreeDEK under parentDEK.
func EncryptSubtreeDEK(subtreeDEK, parentDEK keys.DekKey, version uint32, now time.Time) (*EncryptedSubtreeDEK, error) {
	key, err := parentDEK.AsAEADKey(aead.AlgorithmAESGCM)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("subtreekeys: generating nonce: %w", err)
	}
	ciphertext, err := aead.Seal(key, nonce, subtreeDEK.Bytes(), []byte(dekWrapAAD))
	if err != nil {
		return nil, fmt.Errorf("subtreekeys: encrypting subtree DEK: %w", err)
	}
	return &EncryptedSubtreeDEK{Ciphertext: ciphertext, Nonce: nonce, Version: version, CreatedAt: now.Unix()}, nil
}

// Decrypt recovers the subtree DEK using parentDEK.
func (e *EncryptedSubtreeDEK) Decrypt(parentDEK keys.DekKey) (keys.DekKey, error) {
	key, err := parentDEK.AsAEADKey(aead.AlgorithmAESGCM)
	if err != nil {
		return keys.DekKey{}, err
	}
	plaintext, err := aead.Open(key, e.Nonce, e.Ciphertext, []byte(dekWrapAAD))
	if err != nil {
		return keys.DekKey{}, fmt.Errorf("subtreekeys: decrypting subtree DEK: %w", err)
	}
	return keys.DekKeyFromBytes(plaintext)
}

// KeyInfo is the runtime (in-memory, decrypted) record of one subtree's
// key.
type KeyInfo struct {
	PathPrefix string
	DEK        keys.DekKey
	Version    uint32
	CreatedAt  int64
}

// RotationResult is returned by Manager.Rotate: the freshly generated key
// plus its encrypted form for persistence.
type RotationResult struct {
	PathPrefix string
	NewDEK     keys.DekKey
	Encrypted  *EncryptedSubtreeDEK
	OldVersion uint32
	NewVersion uint32
}

// Manager holds the decrypted subtree-key hierarchy for one bucket: a
// master DEK plus zero or more path-scoped subtree DEKs layered over it.
// All lookups resolve to the most specific (longest-prefix) registered
// subtree, falling back to the master DEK.
type Manager struct {
	mu      sync.RWMutex
	keys    map[string]KeyInfo
	master  *keys.DekKey
}

// NewManager returns an empty manager with no master DEK set.
func NewManager() *Manager {
	return &Manager{keys: make(map[string]KeyInfo)}
}

// NewManagerWithMasterDEK returns a manager seeded with master.
func NewManagerWithMasterDEK(master keys.DekKey) *Manager {
	m := NewManager()
	m.SetMasterDEK(master)
	return m
}

// SetMasterDEK installs (or replaces) the manager's master DEK.
func (m *Manager) SetMasterDEK(dek keys.DekKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.master = &dek
}

// MasterDEK returns the manager's master DEK, if set.
func (m *Manager) MasterDEK() (keys.DekKey, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.master == nil {
		return keys.DekKey{}, false
	}
	return *m.master, true
}

// NormalizePath canonicalizes a subtree path prefix to "/segments/" form:
// a leading slash and a trailing slash, matching the comparison form used
// internally by ResolveDEK.
func NormalizePath(prefix string) string {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// CreateSubtree generates a fresh DEK for pathPrefix, wraps it under the
// master DEK, and registers it, returning both the plaintext DEK (for
// immediate use) and its encrypted form (for persistence in the directory
// entry).
func (m *Manager) CreateSubtree(pathPrefix string, now time.Time) (keys.DekKey, *EncryptedSubtreeDEK, error) {
	master, ok := m.MasterDEK()
	if !ok {
		return keys.DekKey{}, nil, ErrMasterKeyNotSet
	}

	normalized := NormalizePath(pathPrefix)
	subtreeDEK, err := keys.GenerateDEK()
	if err != nil {
		return keys.DekKey{}, nil, err
	}
	const version = 1
	encrypted, err := EncryptSubtreeDEK(subtreeDEK, master, version, now)
	if err != nil {
		return keys.DekKey{}, nil, err
	}

	m.mu.Lock()
	m.keys[normalized] = KeyInfo{PathPrefix: normalized, DEK: subtreeDEK, Version: version, CreatedAt: now.Unix()}
	m.mu.Unlock()

	return subtreeDEK, encrypted, nil
}

// LoadSubtree decrypts and registers an existing subtree key, e.g. when
// reopening a bucket whose forest already records subtree entries.
func (m *Manager) LoadSubtree(pathPrefix string, encrypted *EncryptedSubtreeDEK) (keys.DekKey, error) {
	master, ok := m.MasterDEK()
	if !ok {
		return keys.DekKey{}, ErrMasterKeyNotSet
	}

	normalized := NormalizePath(pathPrefix)
	subtreeDEK, err := encrypted.Decrypt(master)
	if err != nil {
		return keys.DekKey{}, err
	}

	m.mu.Lock()
	m.keys[normalized] = KeyInfo{PathPrefix: normalized, DEK: subtreeDEK, Version: encrypted.Version, CreatedAt: encrypted.CreatedAt}
	m.mu.Unlock()

	return subtreeDEK, nil
}

// ResolveDEK returns the DEK that should encrypt content at path: the
// longest registered subtree prefix containing path, or the master DEK if
// no subtree matches.
func (m *Manager) ResolveDEK(path string) (keys.DekKey, bool) {
	normalized := NormalizePath(path)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *KeyInfo
	for prefix, info := range m.keys {
		if strings.HasPrefix(normalized, prefix) && (best == nil || len(prefix) > len(best.PathPrefix)) {
			info := info
			best = &info
		}
	}
	if best != nil {
		return best.DEK, true
	}
	if m.master != nil {
		return *m.master, true
	}
	return keys.DekKey{}, false
}

// GetSubtreeKey returns the registered key info for pathPrefix, if any.
func (m *Manager) GetSubtreeKey(pathPrefix string) (KeyInfo, bool) {
	normalized := NormalizePath(pathPrefix)
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.keys[normalized]
	return info, ok
}

// HasSubtreeKey reports whether pathPrefix has its own registered key.
func (m *Manager) HasSubtreeKey(pathPrefix string) bool {
	_, ok := m.GetSubtreeKey(pathPrefix)
	return ok
}

// ListSubtrees returns every registered subtree prefix, sorted.
func (m *Manager) ListSubtrees() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.keys))
	for prefix := range m.keys {
		out = append(out, prefix)
	}
	sort.Strings(out)
	return out
}

// RemoveSubtree unregisters pathPrefix's key; subsequent lookups for paths
// under it fall back to whatever their next-longest ancestor (or the
// master DEK) resolves to. Reports whether a key was present.
func (m *Manager) RemoveSubtree(pathPrefix string) bool {
	normalized := NormalizePath(pathPrefix)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[normalized]; !ok {
		return false
	}
	delete(m.keys, normalized)
	return true
}

// Rotate generates a new DEK for pathPrefix, bumping its version. Callers
// are responsible for re-encrypting every object under pathPrefix with the
// new DEK and persisting RotationResult.Encrypted in the directory entry.
func (m *Manager) Rotate(pathPrefix string, now time.Time) (*RotationResult, error) {
	master, ok := m.MasterDEK()
	if !ok {
		return nil, ErrMasterKeyNotSet
	}

	normalized := NormalizePath(pathPrefix)

	m.mu.Lock()
	currentVersion := uint32(0)
	if info, ok := m.keys[normalized]; ok {
		currentVersion = info.Version
	}
	m.mu.Unlock()

	newDEK, err := keys.GenerateDEK()
	if err != nil {
		return nil, err
	}
	newVersion := currentVersion + 1
	encrypted, err := EncryptSubtreeDEK(newDEK, master, newVersion, now)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.keys[normalized] = KeyInfo{PathPrefix: normalized, DEK: newDEK, Version: newVersion, CreatedAt: now.Unix()}
	m.mu.Unlock()

	return &RotationResult{
		PathPrefix: normalized,
		NewDEK:     newDEK,
		Encrypted:  encrypted,
		OldVersion: currentVersion,
		NewVersion: newVersion,
	}, nil
}
