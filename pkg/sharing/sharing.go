// Package sharing implements capability-style share tokens: a DEK wrapped
// to a single recipient's HPKE public key, scoped to a path prefix,
// carrying an expiry and a permission set, with an optional snapshot
// binding for WNFS-style "pin to this exact version" shares.
package sharing

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fula-project/gateway/pkg/crypto/hpke"
	"github.com/fula-project/gateway/pkg/crypto/keys"
)

// Mode determines how a share's access evolves over time.
type Mode int

const (
	// ModeTemporal (the default) always resolves to the latest version
	// under the share's path scope.
	ModeTemporal Mode = iota
	// ModeSnapshot binds the share to the exact content state recorded in
	// SnapshotBinding at creation time.
	ModeSnapshot
)

func (m Mode) String() string {
	if m == ModeSnapshot {
		return "snapshot"
	}
	return "temporal"
}

// SnapshotVerification is the outcome of comparing a snapshot-mode token's
// binding against an object's current state.
type SnapshotVerification int

const (
	SnapshotValid SnapshotVerification = iota
	SnapshotContentChanged
	SnapshotSizeChanged
	SnapshotTimestampChanged
)

// SnapshotBinding captures the exact content state a snapshot share is
// pinned to.
type SnapshotBinding struct {
	ContentHash string `cbor:"content_hash"` // hex
	Size        uint64 `cbor:"size"`
	ModifiedAt  int64  `cbor:"modified_at"` // unix seconds
	StorageKey  string `cbor:"storage_key,omitempty"`
}

// Verify compares the binding against an object's current state.
func (b SnapshotBinding) Verify(currentHash string, currentSize uint64, currentModifiedAt int64) SnapshotVerification {
	switch {
	case b.ContentHash != currentHash:
		return SnapshotContentChanged
	case b.Size != currentSize:
		return SnapshotSizeChanged
	case b.ModifiedAt != currentModifiedAt:
		return SnapshotTimestampChanged
	default:
		return SnapshotValid
	}
}

// HashMatches is a cheap check against only the content hash, the field
// that matters most for deciding whether a share's content has moved on.
func (b SnapshotBinding) HashMatches(currentHash string) bool { return b.ContentHash == currentHash }

const currentVersion = 2

var (
	// ErrExpired is returned by AcceptShare (and usable by callers of
	// IsExpired) when a token's expiry has passed.
	ErrExpired = errors.New("sharing: share token expired")
	// ErrSnapshotBindingRequired is returned by Builder.Build when Mode is
	// ModeSnapshot but no binding was set.
	ErrSnapshotBindingRequired = errors.New("sharing: snapshot share requires a binding")
	// ErrMissingSnapshotBinding is returned by VerifySnapshot on a
	// snapshot-mode token that somehow has no binding attached.
	ErrMissingSnapshotBinding = errors.New("sharing: snapshot token missing binding data")
)

// Token grants a recipient access to one DEK, scoped to a path prefix,
// subject to an optional expiry and a permission set.
type Token struct {
	ID              string           `cbor:"id"`
	WrappedKey      hpke.Sealed      `cbor:"wrapped_key"`
	PathScope       string           `cbor:"path_scope"`
	ExpiresAt       *int64           `cbor:"expires_at,omitempty"`
	CreatedAt       int64            `cbor:"created_at"`
	Permissions     Permissions      `cbor:"permissions"`
	Version         uint8            `cbor:"version"`
	Mode            Mode             `cbor:"mode"`
	SnapshotBinding *SnapshotBinding `cbor:"snapshot_binding,omitempty"`
}

// IsExpired reports whether now is past the token's expiry (false if the
// token never expires).
func (t *Token) IsExpired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return now.Unix() > *t.ExpiresAt
}

// IsValidForPath reports whether path falls under the token's scope and
// the token has not expired.
func (t *Token) IsValidForPath(now time.Time, path string) bool {
	return !t.IsExpired(now) && strings.HasPrefix(path, t.PathScope)
}

func (t *Token) CanRead(now time.Time) bool   { return !t.IsExpired(now) && t.Permissions.CanRead }
func (t *Token) CanWrite(now time.Time) bool  { return !t.IsExpired(now) && t.Permissions.CanWrite }
func (t *Token) CanDelete(now time.Time) bool { return !t.IsExpired(now) && t.Permissions.CanDelete }

// TimeUntilExpiry returns seconds remaining before expiry, or false if the
// token never expires or has already expired.
func (t *Token) TimeUntilExpiry(now time.Time) (int64, bool) {
	if t.ExpiresAt == nil {
		return 0, false
	}
	remaining := *t.ExpiresAt - now.Unix()
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

func (t *Token) IsSnapshot() bool { return t.Mode == ModeSnapshot }
func (t *Token) IsTemporal() bool { return t.Mode == ModeTemporal }

// VerifySnapshot checks a snapshot-mode token's binding against the
// object's current state. Temporal tokens are always SnapshotValid.
func (t *Token) VerifySnapshot(currentHash string, currentSize uint64, currentModifiedAt int64) (SnapshotVerification, error) {
	if t.Mode == ModeTemporal {
		return SnapshotValid, nil
	}
	if t.SnapshotBinding == nil {
		return 0, ErrMissingSnapshotBinding
	}
	return t.SnapshotBinding.Verify(currentHash, currentSize, currentModifiedAt), nil
}

// IsSnapshotValid is the cheap, hash-only form of VerifySnapshot. Temporal
// tokens always report true.
func (t *Token) IsSnapshotValid(currentHash string) bool {
	if t.Mode == ModeTemporal {
		return true
	}
	return t.SnapshotBinding != nil && t.SnapshotBinding.HashMatches(currentHash)
}

// Builder constructs Tokens.
type Builder struct {
	recipient       hpke.PublicKey
	dek             keys.DekKey
	pathScope       string
	expiresAt       *int64
	permissions     Permissions
	mode            Mode
	snapshotBinding *SnapshotBinding
	now             time.Time
}

// NewBuilder starts a Builder for a DEK wrapped to recipient, defaulting to
// a read-only, never-expiring, temporal share scoped to "/".
func NewBuilder(recipient hpke.PublicKey, dek keys.DekKey) *Builder {
	return &Builder{
		recipient:   recipient,
		dek:         dek,
		pathScope:   "/",
		permissions: ReadOnlyPermissions(),
		mode:        ModeTemporal,
		now:         time.Now(),
	}
}

// PathScope sets the path prefix the share grants access to.
func (b *Builder) PathScope(path string) *Builder { b.pathScope = path; return b }

// ExpiresIn sets expiry as a duration from now.
func (b *Builder) ExpiresIn(d time.Duration) *Builder {
	exp := b.now.Add(d).Unix()
	b.expiresAt = &exp
	return b
}

// ExpiresAt sets an absolute expiry timestamp.
func (b *Builder) ExpiresAt(t time.Time) *Builder {
	exp := t.Unix()
	b.expiresAt = &exp
	return b
}

func (b *Builder) ReadOnly() *Builder     { b.permissions = ReadOnlyPermissions(); return b }
func (b *Builder) ReadWrite() *Builder    { b.permissions = ReadWritePermissions(); return b }
func (b *Builder) FullAccess() *Builder   { b.permissions = FullPermissions(); return b }
func (b *Builder) WithPermissions(p Permissions) *Builder { b.permissions = p; return b }

// Temporal sets the share to track the latest version (the default).
func (b *Builder) Temporal() *Builder {
	b.mode = ModeTemporal
	b.snapshotBinding = nil
	return b
}

// Snapshot pins the share to binding's exact content state.
func (b *Builder) Snapshot(binding SnapshotBinding) *Builder {
	b.mode = ModeSnapshot
	b.snapshotBinding = &binding
	return b
}

// Build wraps the DEK to the recipient and returns the completed token.
func (b *Builder) Build() (*Token, error) {
	if b.mode == ModeSnapshot && b.snapshotBinding == nil {
		return nil, ErrSnapshotBindingRequired
	}

	id, err := generateID()
	if err != nil {
		return nil, err
	}

	wrapped, err := hpke.WrapDEK(b.recipient, b.dek.Bytes())
	if err != nil {
		return nil, fmt.Errorf("sharing: wrapping DEK: %w", err)
	}

	return &Token{
		ID:              id,
		WrappedKey:      wrapped,
		PathScope:       b.pathScope,
		ExpiresAt:       b.expiresAt,
		CreatedAt:       b.now.Unix(),
		Permissions:     b.permissions,
		Version:         currentVersion,
		Mode:            b.mode,
		SnapshotBinding: b.snapshotBinding,
	}, nil
}

func generateID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("sharing: generating share id: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// Recipient decrypts tokens addressed to a specific HPKE private key.
type Recipient struct {
	private hpke.PrivateKey
}

// NewRecipient constructs a Recipient from its HPKE key pair.
func NewRecipient(private hpke.PrivateKey) *Recipient {
	return &Recipient{private: private}
}

// Accepted is the result of successfully accepting a Token: the decrypted
// DEK plus the scoping/permission fields the caller needs to enforce.
type Accepted struct {
	DEK         keys.DekKey
	PathScope   string
	ExpiresAt   *int64
	Permissions Permissions
}

// IsValid reports whether the acceptance is still within its expiry.
func (a *Accepted) IsValid(now time.Time) bool {
	return a.ExpiresAt == nil || now.Unix() <= *a.ExpiresAt
}

// IsPathAllowed reports whether path is both in scope and the acceptance
// hasn't expired.
func (a *Accepted) IsPathAllowed(now time.Time, path string) bool {
	return a.IsValid(now) && strings.HasPrefix(path, a.PathScope)
}

// AcceptShare decrypts token's wrapped DEK under r's private key, failing
// if the token has already expired or the key doesn't match.
func (r *Recipient) AcceptShare(now time.Time, token *Token) (*Accepted, error) {
	if token.IsExpired(now) {
		return nil, ErrExpired
	}
	raw, err := hpke.UnwrapDEK(r.private, token.WrappedKey)
	if err != nil {
		return nil, fmt.Errorf("sharing: unwrapping DEK: %w", err)
	}
	dek, err := keys.DekKeyFromBytes(raw)
	if err != nil {
		return nil, err
	}
	return &Accepted{
		DEK:         dek,
		PathScope:   token.PathScope,
		ExpiresAt:   token.ExpiresAt,
		Permissions: token.Permissions,
	}, nil
}
