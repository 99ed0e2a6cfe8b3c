// Package keys implements the owner's key manager: the long-term
// KEM keypair that wraps per-file and per-subtree data-encryption keys, and
// the deterministic derivations that let a client recompute a path's
// obfuscated storage key or a bucket's forest key without reading anything
// first.
package keys

import (
	"crypto/rand"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/fula-project/gateway/pkg/crypto/aead"
	"github.com/fula-project/gateway/pkg/crypto/hpke"
)

// Domain-separation strings for keyed BLAKE3 derivation. Each derivation
// uses a distinct domain so that, for example, a forest key can never
// collide with a path key even given the same master secret and the same
// byte string as input.
const (
	domainPathKey   = "fula/path-key/v1"
	domainForestKey = "forest:"
)

// DekKey is a 32-byte data-encryption key, generated fresh per file or
// subtree, or derived deterministically for paths/forests that must be
// locatable before anything has been read.
type DekKey [aead.KeySize]byte

// GenerateDEK returns a uniformly random key suitable for use as an
// aead.Key (via AsAEADKey) or as an HPKE-wrapped payload.
func GenerateDEK() (DekKey, error) {
	var k DekKey
	if _, err := rand.Read(k[:]); err != nil {
		return DekKey{}, fmt.Errorf("keys: generating DEK: %w", err)
	}
	return k, nil
}

// Bytes returns the raw key material.
func (k DekKey) Bytes() []byte {
	out := make([]byte, len(k))
	copy(out, k[:])
	return out
}

// AsAEADKey wraps k for use with pkg/crypto/aead under algorithm.
func (k DekKey) AsAEADKey(algorithm aead.Algorithm) (aead.Key, error) {
	return aead.NewKey(algorithm, k[:])
}

// DekKeyFromBytes wraps raw key bytes, failing if they are not exactly 32
// bytes long.
func DekKeyFromBytes(raw []byte) (DekKey, error) {
	var k DekKey
	if len(raw) != len(k) {
		return DekKey{}, fmt.Errorf("keys: DEK must be %d bytes, got %d", len(k), len(raw))
	}
	copy(k[:], raw)
	return k, nil
}

// Zero overwrites k's bytes. Callers holding a DekKey in a struct they are
// about to discard should call this explicitly; Go has no destructor to do
// it for them.
func (k *DekKey) Zero() {
	for i := range k {
		k[i] = 0
	}
}

func derive(domain string, parts ...[]byte) DekKey {
	h := blake3.NewDeriveKey(domain)
	for _, p := range parts {
		h.Write(p) //nolint:errcheck // hash.Hash.Write never returns an error
	}
	var out DekKey
	sum := h.Sum(nil)
	copy(out[:], sum[:len(out)])
	return out
}

// Manager holds an owner's long-term key material: the KEK keypair shared
// tokens are wrapped to, and the master secret from which path and forest
// keys are derived. It never exposes the master secret or the KEK private
// key outside the owning process.
type Manager struct {
	masterSecret [32]byte
	public       hpke.PublicKey
	private      hpke.PrivateKey
}

// New constructs a Manager from an existing KEK keypair and master secret.
func New(public hpke.PublicKey, private hpke.PrivateKey, masterSecret [32]byte) *Manager {
	return &Manager{masterSecret: masterSecret, public: public, private: private}
}

// Generate creates a brand-new owner identity: a fresh KEK keypair and a
// fresh random master secret.
func Generate() (*Manager, error) {
	pub, priv, err := hpke.GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("keys: generating KEK: %w", err)
	}
	var master [32]byte
	if _, err := rand.Read(master[:]); err != nil {
		return nil, fmt.Errorf("keys: generating master secret: %w", err)
	}
	return New(pub, priv, master), nil
}

// GenerateDEK returns a fresh random data-encryption key, independent of
// the manager's own key material.
func (m *Manager) GenerateDEK() (DekKey, error) {
	return GenerateDEK()
}

// DerivePathKey deterministically derives the key associated with path,
// letting a client recompute a file's obfuscated storage key without first
// reading the private forest.
func (m *Manager) DerivePathKey(path string) DekKey {
	return derive(domainPathKey, m.masterSecret[:], []byte(path))
}

// DeriveForestKey deterministically derives the key used to locate and
// decrypt bucket's private forest index.
func (m *Manager) DeriveForestKey(bucket string) DekKey {
	return derive(domainForestKey, m.masterSecret[:], []byte(bucket))
}

// Keypair returns the manager's KEK keypair. The private half must never
// leave the owner's process; callers that only need to hand out the public
// key should prefer PublicKey.
func (m *Manager) Keypair() (hpke.PublicKey, hpke.PrivateKey) {
	return m.public, m.private
}

// PublicKey returns the manager's KEK public key, safe to share with
// anyone the owner wants to be able to send them a share token.
func (m *Manager) PublicKey() hpke.PublicKey {
	return m.public
}

// MasterSecretBytes returns a copy of the manager's master secret, the
// root input to every deterministic path/forest key derivation. Exists
// for callers that must persist and later restore an identity (see
// pkg/client); everyday derivation should go through DerivePathKey /
// DeriveForestKey instead of handling this directly.
func (m *Manager) MasterSecretBytes() []byte {
	out := make([]byte, len(m.masterSecret))
	copy(out, m.masterSecret[:])
	return out
}
