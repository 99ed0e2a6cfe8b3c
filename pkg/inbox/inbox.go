// Package inbox implements asynchronous, store-and-forward sharing: a
// sharer writes an encrypted share descriptor into a recipient's inbox in
// storage, and the recipient discovers and accepts it later without the
// sharer or gateway needing to be online at the same time. Inbox entries
// are HPKE-sealed to the recipient's public key, so storage never sees
// their contents.
package inbox

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/fula-project/gateway/pkg/blockcodec"
	"github.com/fula-project/gateway/pkg/crypto/hpke"
	"github.com/fula-project/gateway/pkg/crypto/keys"
	"github.com/fula-project/gateway/pkg/sharing"
)

// DefaultTTL is how long an inbox entry is considered live before Cleanup
// drops it.
const DefaultTTL = 30 * 24 * time.Hour

// Prefix is the storage namespace inbox entries live under.
const Prefix = "/.fula/inbox/"

const envelopeAAD = "fula:v2:inbox-envelope"

// ErrEntryNotFound is returned by operations addressing an entry ID that
// isn't registered.
var ErrEntryNotFound = errors.New("inbox: entry not found")

// ErrWrongRecipient is returned by AcceptEntry when the supplied keys
// don't match the entry's recorded recipient.
var ErrWrongRecipient = errors.New("inbox: entry is not for this recipient")

// Envelope is the share descriptor a sharer encrypts into a recipient's
// inbox: the share token itself plus human-facing context about the
// share.
type Envelope struct {
	Token      *sharing.Token    `cbor:"token"`
	Label      string            `cbor:"label,omitempty"`
	Message    string            `cbor:"message,omitempty"`
	SharerID   string            `cbor:"sharer_id,omitempty"`
	SharerName string            `cbor:"sharer_name,omitempty"`
	CreatedAt  int64             `cbor:"created_at"`
	Metadata   map[string]string `cbor:"metadata,omitempty"`
}

// NewEnvelope wraps token in an envelope with no metadata set.
func NewEnvelope(token *sharing.Token, now time.Time) *Envelope {
	return &Envelope{Token: token, CreatedAt: now.Unix()}
}

func (e *Envelope) WithLabel(label string) *Envelope      { e.Label = label; return e }
func (e *Envelope) WithMessage(message string) *Envelope  { e.Message = message; return e }
func (e *Envelope) WithSharerID(id string) *Envelope      { e.SharerID = id; return e }
func (e *Envelope) WithSharerName(name string) *Envelope  { e.SharerName = name; return e }

// WithMetadata sets a single custom metadata key/value.
func (e *Envelope) WithMetadata(key, value string) *Envelope {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// PathScope returns the underlying token's path scope.
func (e *Envelope) PathScope() string { return e.Token.PathScope }

// IsExpired reports whether the underlying token has expired.
func (e *Envelope) IsExpired(now time.Time) bool { return e.Token.IsExpired(now) }

// Status is the lifecycle state of an inbox entry.
type Status int

const (
	StatusPending Status = iota
	StatusRead
	StatusAccepted
	StatusDismissed
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusRead:
		return "read"
	case StatusAccepted:
		return "accepted"
	case StatusDismissed:
		return "dismissed"
	case StatusExpired:
		return "expired"
	default:
		return "pending"
	}
}

// Entry is an encrypted envelope as stored in a recipient's inbox.
type Entry struct {
	ID                string      `cbor:"id"`
	EncryptedEnvelope hpke.Sealed `cbor:"encrypted_envelope"`
	CreatedAt         int64       `cbor:"created_at"`
	Status            Status      `cbor:"status"`
	RecipientKeyHash  string      `cbor:"recipient_key_hash"`
}

func recipientKeyHash(public hpke.PublicKey) (string, error) {
	raw, err := public.MarshalPublic()
	if err != nil {
		return "", fmt.Errorf("inbox: marshaling recipient key: %w", err)
	}
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:16]), nil
}

// CreateEntry encrypts envelope to recipientPublic and returns the
// resulting Entry.
func CreateEntry(envelope *Envelope, recipientPublic hpke.PublicKey, now time.Time) (*Entry, error) {
	plaintext, err := blockcodec.Encode(envelope)
	if err != nil {
		return nil, fmt.Errorf("inbox: encoding envelope: %w", err)
	}
	sealed, err := hpke.Seal(recipientPublic, []byte(hpke.InfoDefault), []byte(envelopeAAD), plaintext)
	if err != nil {
		return nil, fmt.Errorf("inbox: sealing envelope: %w", err)
	}
	hash, err := recipientKeyHash(recipientPublic)
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:                uuid.NewString(),
		EncryptedEnvelope: sealed,
		CreatedAt:         now.Unix(),
		Status:            StatusPending,
		RecipientKeyHash:  hash,
	}, nil
}

// Decrypt recovers e's envelope using the recipient's private key.
func (e *Entry) Decrypt(recipientPrivate hpke.PrivateKey) (*Envelope, error) {
	plaintext, err := hpke.Open(recipientPrivate, []byte(hpke.InfoDefault), []byte(envelopeAAD), e.EncryptedEnvelope)
	if err != nil {
		return nil, fmt.Errorf("inbox: decrypting envelope: %w", err)
	}
	var envelope Envelope
	if err := blockcodec.Decode(plaintext, &envelope); err != nil {
		return nil, fmt.Errorf("inbox: decoding envelope: %w", err)
	}
	return &envelope, nil
}

// IsForRecipient reports whether e was addressed to recipientPublic.
func (e *Entry) IsForRecipient(recipientPublic hpke.PublicKey) bool {
	hash, err := recipientKeyHash(recipientPublic)
	if err != nil {
		return false
	}
	return e.RecipientKeyHash == hash
}

// IsStale reports whether e is older than maxAge.
func (e *Entry) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Unix()-e.CreatedAt > int64(maxAge.Seconds())
}

// ToBytes serializes e for storage.
func (e *Entry) ToBytes() ([]byte, error) {
	b, err := blockcodec.Encode(e)
	if err != nil {
		return nil, fmt.Errorf("inbox: encoding entry: %w", err)
	}
	return b, nil
}

// LoadEntry deserializes the form produced by ToBytes.
func LoadEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := blockcodec.Decode(data, &e); err != nil {
		return nil, fmt.Errorf("inbox: decoding entry: %w", err)
	}
	return &e, nil
}

// PathForRecipient returns the inbox directory recipientPublic's entries
// are stored under.
func PathForRecipient(recipientPublic hpke.PublicKey) (string, error) {
	hash, err := recipientKeyHash(recipientPublic)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s/", Prefix, hash), nil
}

// EntryStoragePath returns the full storage path for one entry.
func EntryStoragePath(recipientPublic hpke.PublicKey, entryID string) (string, error) {
	dir, err := PathForRecipient(recipientPublic)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s.share", dir, entryID), nil
}

// Inbox manages the sharer and recipient flows for store-and-forward
// sharing. Persistence is the caller's responsibility (typically via the
// private forest); Inbox itself is an in-memory index over entries loaded
// from or destined for storage.
type Inbox struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	ttlSeconds int64
}

// New returns an empty Inbox using DefaultTTL.
func New() *Inbox {
	return &Inbox{entries: make(map[string]*Entry), ttlSeconds: int64(DefaultTTL.Seconds())}
}

// NewWithTTL returns an empty Inbox using a custom entry lifetime.
func NewWithTTL(ttl time.Duration) *Inbox {
	return &Inbox{entries: make(map[string]*Entry), ttlSeconds: int64(ttl.Seconds())}
}

// SetTTL updates the inbox's entry lifetime.
func (ib *Inbox) SetTTL(ttl time.Duration) {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	ib.ttlSeconds = int64(ttl.Seconds())
}

// EnqueueShare encrypts envelope to recipientPublic and registers the
// resulting entry (the sharer flow).
func (ib *Inbox) EnqueueShare(envelope *Envelope, recipientPublic hpke.PublicKey, now time.Time) (*Entry, error) {
	entry, err := CreateEntry(envelope, recipientPublic, now)
	if err != nil {
		return nil, err
	}
	ib.mu.Lock()
	ib.entries[entry.ID] = entry
	ib.mu.Unlock()
	return entry, nil
}

// AddEntry registers an entry loaded from storage (the recipient flow).
func (ib *Inbox) AddEntry(entry *Entry) {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	ib.entries[entry.ID] = entry
}

// ListPending returns every non-stale, pending entry addressed to
// recipientPublic.
func (ib *Inbox) ListPending(recipientPublic hpke.PublicKey, now time.Time) []*Entry {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	var out []*Entry
	for _, e := range ib.entries {
		if e.Status == StatusPending && e.IsForRecipient(recipientPublic) && !e.IsStale(now, time.Duration(ib.ttlSeconds)*time.Second) {
			out = append(out, e)
		}
	}
	return out
}

// ListAll returns every registered entry regardless of status.
func (ib *Inbox) ListAll() []*Entry {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	out := make([]*Entry, 0, len(ib.entries))
	for _, e := range ib.entries {
		out = append(out, e)
	}
	return out
}

// GetEntry returns the registered entry with id, if any.
func (ib *Inbox) GetEntry(id string) (*Entry, bool) {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	e, ok := ib.entries[id]
	return e, ok
}

// AcceptEntry decrypts and returns entryID's envelope, marking the entry
// Accepted. Fails if the entry isn't registered, isn't addressed to the
// supplied recipient key, or fails to decrypt.
func (ib *Inbox) AcceptEntry(entryID string, recipientPublic hpke.PublicKey, recipientPrivate hpke.PrivateKey) (*Envelope, error) {
	ib.mu.Lock()
	defer ib.mu.Unlock()

	entry, ok := ib.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
	}
	if !entry.IsForRecipient(recipientPublic) {
		return nil, ErrWrongRecipient
	}

	envelope, err := entry.Decrypt(recipientPrivate)
	if err != nil {
		return nil, err
	}
	entry.Status = StatusAccepted
	return envelope, nil
}

// MarkRead transitions a Pending entry to Read, reporting whether it did.
func (ib *Inbox) MarkRead(entryID string) bool {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	entry, ok := ib.entries[entryID]
	if !ok || entry.Status != StatusPending {
		return false
	}
	entry.Status = StatusRead
	return true
}

// DismissEntry marks an entry Dismissed, reporting whether it existed.
func (ib *Inbox) DismissEntry(entryID string) bool {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	entry, ok := ib.entries[entryID]
	if !ok {
		return false
	}
	entry.Status = StatusDismissed
	return true
}

// RemoveEntry deletes an entry outright, returning it if it existed.
func (ib *Inbox) RemoveEntry(entryID string) (*Entry, bool) {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	entry, ok := ib.entries[entryID]
	if ok {
		delete(ib.entries, entryID)
	}
	return entry, ok
}

// Cleanup removes every stale or dismissed/expired entry, returning the
// count removed.
func (ib *Inbox) Cleanup(now time.Time) int {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	ttl := time.Duration(ib.ttlSeconds) * time.Second
	removed := 0
	for id, entry := range ib.entries {
		if entry.IsStale(now, ttl) || entry.Status == StatusDismissed || entry.Status == StatusExpired {
			delete(ib.entries, id)
			removed++
		}
	}
	return removed
}

// PendingCount returns the number of non-stale pending entries addressed
// to recipientPublic.
func (ib *Inbox) PendingCount(recipientPublic hpke.PublicKey, now time.Time) int {
	return len(ib.ListPending(recipientPublic, now))
}

// EnvelopeBuilder composes a sharing.Builder (for the underlying share
// token) with the human-facing context an inbox envelope carries, then
// produces the encrypted Entry in one step.
type EnvelopeBuilder struct {
	tokenBuilder *sharing.Builder
	recipient    hpke.PublicKey
	label        string
	message      string
	sharerID     string
	sharerName   string
	metadata     map[string]string
}

// NewEnvelopeBuilder starts a builder for dek wrapped to recipient,
// defaulting to the same read-only, never-expiring, temporal share
// sharing.NewBuilder does.
func NewEnvelopeBuilder(recipient hpke.PublicKey, dek keys.DekKey) *EnvelopeBuilder {
	return &EnvelopeBuilder{
		tokenBuilder: sharing.NewBuilder(recipient, dek),
		recipient:    recipient,
	}
}

func (b *EnvelopeBuilder) PathScope(path string) *EnvelopeBuilder {
	b.tokenBuilder.PathScope(path)
	return b
}

func (b *EnvelopeBuilder) ExpiresIn(d time.Duration) *EnvelopeBuilder {
	b.tokenBuilder.ExpiresIn(d)
	return b
}

func (b *EnvelopeBuilder) ExpiresAt(t time.Time) *EnvelopeBuilder {
	b.tokenBuilder.ExpiresAt(t)
	return b
}

func (b *EnvelopeBuilder) ReadOnly() *EnvelopeBuilder {
	b.tokenBuilder.ReadOnly()
	return b
}

func (b *EnvelopeBuilder) ReadWrite() *EnvelopeBuilder {
	b.tokenBuilder.ReadWrite()
	return b
}

func (b *EnvelopeBuilder) FullAccess() *EnvelopeBuilder {
	b.tokenBuilder.FullAccess()
	return b
}

func (b *EnvelopeBuilder) WithPermissions(p sharing.Permissions) *EnvelopeBuilder {
	b.tokenBuilder.WithPermissions(p)
	return b
}

func (b *EnvelopeBuilder) Snapshot(binding sharing.SnapshotBinding) *EnvelopeBuilder {
	b.tokenBuilder.Snapshot(binding)
	return b
}

func (b *EnvelopeBuilder) Label(label string) *EnvelopeBuilder     { b.label = label; return b }
func (b *EnvelopeBuilder) Message(message string) *EnvelopeBuilder { b.message = message; return b }
func (b *EnvelopeBuilder) SharerID(id string) *EnvelopeBuilder     { b.sharerID = id; return b }
func (b *EnvelopeBuilder) SharerName(name string) *EnvelopeBuilder { b.sharerName = name; return b }

// Metadata sets a single custom metadata key/value.
func (b *EnvelopeBuilder) Metadata(key, value string) *EnvelopeBuilder {
	if b.metadata == nil {
		b.metadata = make(map[string]string)
	}
	b.metadata[key] = value
	return b
}

// Build constructs the underlying share token, wraps it in an envelope
// with the builder's metadata, and encrypts the result into an Entry
// addressed to the recipient.
func (b *EnvelopeBuilder) Build(now time.Time) (*Envelope, *Entry, error) {
	token, err := b.tokenBuilder.Build()
	if err != nil {
		return nil, nil, err
	}

	envelope := NewEnvelope(token, now)
	envelope.Label = b.label
	envelope.Message = b.message
	envelope.SharerID = b.sharerID
	envelope.SharerName = b.sharerName
	if b.metadata != nil {
		envelope.Metadata = make(map[string]string, len(b.metadata))
		for k, v := range b.metadata {
			envelope.Metadata[k] = v
		}
	}

	entry, err := CreateEntry(envelope, b.recipient, now)
	if err != nil {
		return nil, nil, err
	}
	return envelope, entry, nil
}
