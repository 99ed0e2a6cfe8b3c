package sharing

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fula-project/gateway/pkg/crypto/hpke"
	"github.com/fula-project/gateway/pkg/crypto/keys"
)

// AccessValidation is the outcome of FolderManager.ValidateAccess.
type AccessValidation int

const (
	AccessValid AccessValidation = iota
	AccessExpired
	AccessRevoked
	AccessOutOfScope
)

// ErrFolderNotFound is returned by CreateShare for an unregistered folder.
var ErrFolderNotFound = errors.New("sharing: folder not registered")

type folderKeyInfo struct {
	dek    keys.DekKey
	shares []*Token
}

// FolderManager tracks a set of folders' DEKs and the live share tokens
// issued against each, so shares can be listed and revoked by ID without
// the caller needing to hold every token it ever issued.
type FolderManager struct {
	mu      sync.Mutex
	folders map[string]*folderKeyInfo
}

// NewFolderManager returns an empty manager.
func NewFolderManager() *FolderManager {
	return &FolderManager{folders: make(map[string]*folderKeyInfo)}
}

// RegisterFolder associates path with dek, the key new shares against that
// path will be wrapped from.
func (m *FolderManager) RegisterFolder(path string, dek keys.DekKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders[path] = &folderKeyInfo{dek: dek}
}

// CreateShare builds and records a share token for folderPath's DEK.
func (m *FolderManager) CreateShare(recipient hpke.PublicKey, folderPath string, expiresIn *time.Duration, permissions Permissions) (*Token, error) {
	m.mu.Lock()
	info, ok := m.folders[folderPath]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folderPath)
	}

	builder := NewBuilder(recipient, info.dek).PathScope(folderPath).WithPermissions(permissions)
	if expiresIn != nil {
		builder = builder.ExpiresIn(*expiresIn)
	}
	token, err := builder.Build()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	info.shares = append(info.shares, token)
	m.mu.Unlock()
	return token, nil
}

// RevokeShare removes shareID from folderPath's live share list, reporting
// whether a matching share was found.
func (m *FolderManager) RevokeShare(folderPath, shareID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.folders[folderPath]
	if !ok {
		return false
	}
	before := len(info.shares)
	kept := info.shares[:0:0]
	for _, s := range info.shares {
		if s.ID != shareID {
			kept = append(kept, s)
		}
	}
	info.shares = kept
	return len(info.shares) < before
}

// ListShares returns the live shares registered against folderPath.
func (m *FolderManager) ListShares(folderPath string) []*Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.folders[folderPath]
	if !ok {
		return nil
	}
	out := make([]*Token, len(info.shares))
	copy(out, info.shares)
	return out
}

// CleanupExpired drops every share past its expiry across all folders.
func (m *FolderManager) CleanupExpired(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.folders {
		kept := info.shares[:0:0]
		for _, s := range info.shares {
			if !s.IsExpired(now) {
				kept = append(kept, s)
			}
		}
		info.shares = kept
	}
}

// ValidateAccess checks token against path and the manager's live-share
// bookkeeping (so a revoked token is rejected even before its expiry).
func (m *FolderManager) ValidateAccess(now time.Time, token *Token, path string) AccessValidation {
	if token.IsExpired(now) {
		return AccessExpired
	}
	if !token.IsValidForPath(now, path) {
		return AccessOutOfScope
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.folders[token.PathScope]
	if !ok {
		return AccessRevoked
	}
	for _, s := range info.shares {
		if s.ID == token.ID {
			return AccessValid
		}
	}
	return AccessRevoked
}
