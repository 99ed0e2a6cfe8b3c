package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/fula-project/gateway/pkg/crypto/hpke"
	"github.com/fula-project/gateway/pkg/crypto/keys"
	"github.com/fula-project/gateway/pkg/rotation"
	"github.com/fula-project/gateway/pkg/subtreekeys"
)

// Keyring is the owner-side ledger of wrapped key material: which file's
// DEK is wrapped under which KEK generation, and which path prefixes carry
// their own subtree DEK. Without a durable record of previously wrapped
// DEKs there is nothing to rewrap, so this ledger is what makes KEK
// rotation possible. It persists alongside the identity file, encrypted only to
// the extent its contents already are (every DEK in it is HPKE- or
// AEAD-wrapped; the file holds no plaintext keys except the KEK private
// halves, which the identity file exposes identically).
type Keyring struct {
	fs       *rotation.FileSystemRotation
	subtrees *subtreekeys.Manager

	// subtreeRecords retains each subtree DEK's encrypted form for
	// persistence; the decrypted copies live in subtrees.
	subtreeRecords map[string]*subtreekeys.EncryptedSubtreeDEK
}

// NewKeyring starts an empty keyring for mgr's identity: KEK version 1 is
// mgr's own keypair, and the subtree hierarchy's master DEK is the
// deterministic root path key, so a restored identity rebuilds the same
// hierarchy root without any stored state.
func NewKeyring(mgr *keys.Manager) *Keyring {
	pub, priv := mgr.Keypair()
	return &Keyring{
		fs:             rotation.NewFileSystemRotation(pub, priv),
		subtrees:       subtreekeys.NewManagerWithMasterDEK(mgr.DerivePathKey("/")),
		subtreeRecords: make(map[string]*subtreekeys.EncryptedSubtreeDEK),
	}
}

// TrackFile wraps dek under the current KEK and records it for path.
func (k *Keyring) TrackFile(path string, dek keys.DekKey) error {
	_, err := k.fs.WrapNewFile(path, dek)
	return err
}

// FileDEK recovers path's tracked DEK, unwrapping under whichever KEK
// generation it was last wrapped to.
func (k *Keyring) FileDEK(path string) (keys.DekKey, error) {
	return k.fs.UnwrapFile(path)
}

// TrackedFiles returns every tracked path in sorted order.
func (k *Keyring) TrackedFiles() []string {
	infos := k.fs.AllWrappedKeys()
	out := make([]string, 0, len(infos))
	for _, info := range infos {
		out = append(out, info.ObjectPath)
	}
	sort.Strings(out)
	return out
}

// CreateSubtree registers a fresh DEK for pathPrefix, wrapped under the
// hierarchy's master DEK, and returns the plaintext key for immediate use.
func (k *Keyring) CreateSubtree(pathPrefix string, now time.Time) (keys.DekKey, error) {
	dek, encrypted, err := k.subtrees.CreateSubtree(pathPrefix, now)
	if err != nil {
		return keys.DekKey{}, err
	}
	k.subtreeRecords[subtreekeys.NormalizePath(pathPrefix)] = encrypted
	return dek, nil
}

// ResolveDEK returns the most specific subtree DEK covering path, falling
// back to the hierarchy's master DEK.
func (k *Keyring) ResolveDEK(path string) (keys.DekKey, bool) {
	return k.subtrees.ResolveDEK(path)
}

// RotateSubtree issues pathPrefix a new DEK at the next version. Objects
// under the prefix must be re-encrypted by the caller; the keyring only
// tracks the key and its version.
func (k *Keyring) RotateSubtree(pathPrefix string, now time.Time) (*subtreekeys.RotationResult, error) {
	result, err := k.subtrees.Rotate(pathPrefix, now)
	if err != nil {
		return nil, err
	}
	k.subtreeRecords[result.PathPrefix] = result.Encrypted
	return result, nil
}

// Subtrees returns every registered subtree prefix.
func (k *Keyring) Subtrees() []string {
	return k.subtrees.ListSubtrees()
}

// RotateKEK starts a KEK rotation: a fresh keypair becomes current, and
// the old one is retained until every tracked DEK has been rewrapped.
func (k *Keyring) RotateKEK() (hpke.PublicKey, error) {
	return k.fs.Rotate()
}

// RotateBatch rewraps up to the configured batch of outdated DEKs.
func (k *Keyring) RotateBatch() *rotation.Result {
	return k.fs.RotateBatch()
}

// RotateAll rewraps every outdated DEK, clearing the previous KEK once
// nothing remains wrapped under it.
func (k *Keyring) RotateAll() *rotation.Result {
	return k.fs.RotateAll()
}

// RotationProgress returns (rewrapped, total) counts.
func (k *Keyring) RotationProgress() (int, int) {
	return k.fs.RotationProgress()
}

// IsRotationComplete reports whether every tracked DEK is at the current
// KEK version.
func (k *Keyring) IsRotationComplete() bool {
	return k.fs.IsRotationComplete()
}

// ClearPreviousKEK drops the retained previous KEK; any DEK still wrapped
// under it becomes unrecoverable through this keyring.
func (k *Keyring) ClearPreviousKEK() {
	k.fs.ClearPrevious()
}

// KEKVersion returns the current KEK generation.
func (k *Keyring) KEKVersion() uint32 {
	return k.fs.CurrentVersion()
}

// keyringFile is the on-disk JSON form of a Keyring.
type keyringFile struct {
	KEK      kekStateRecord              `json:"kek"`
	Files    map[string]wrappedKeyRecord `json:"files"`
	Subtrees map[string]subtreeRecord    `json:"subtrees,omitempty"`
}

type kekStateRecord struct {
	CurrentPublic  string  `json:"current_public"`
	CurrentPrivate string  `json:"current_private"`
	CurrentVersion uint32  `json:"current_version"`

	PreviousPublic  string  `json:"previous_public,omitempty"`
	PreviousPrivate string  `json:"previous_private,omitempty"`
	PreviousVersion *uint32 `json:"previous_version,omitempty"`
}

type wrappedKeyRecord struct {
	Encapsulation string `json:"encapsulation"`
	Ciphertext    string `json:"ciphertext"`
	KEKVersion    uint32 `json:"kek_version"`
}

type subtreeRecord struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
	Version    uint32 `json:"version"`
	CreatedAt  int64  `json:"created_at"`
}

// SaveKeyring writes k to path as JSON, user-read-write-only.
func SaveKeyring(path string, k *Keyring) error {
	st := k.fs.Snapshot()

	currentPub, err := st.CurrentPublic.MarshalPublic()
	if err != nil {
		return fmt.Errorf("client: marshaling current KEK public key: %w", err)
	}
	currentPriv, err := st.CurrentPrivate.MarshalPrivate()
	if err != nil {
		return fmt.Errorf("client: marshaling current KEK private key: %w", err)
	}

	out := keyringFile{
		KEK: kekStateRecord{
			CurrentPublic:  base64.StdEncoding.EncodeToString(currentPub),
			CurrentPrivate: base64.StdEncoding.EncodeToString(currentPriv),
			CurrentVersion: st.CurrentVersion,
		},
		Files: make(map[string]wrappedKeyRecord),
	}

	if st.PreviousPublic != nil && st.PreviousPrivate != nil && st.PreviousVersion != nil {
		prevPub, err := st.PreviousPublic.MarshalPublic()
		if err != nil {
			return fmt.Errorf("client: marshaling previous KEK public key: %w", err)
		}
		prevPriv, err := st.PreviousPrivate.MarshalPrivate()
		if err != nil {
			return fmt.Errorf("client: marshaling previous KEK private key: %w", err)
		}
		out.KEK.PreviousPublic = base64.StdEncoding.EncodeToString(prevPub)
		out.KEK.PreviousPrivate = base64.StdEncoding.EncodeToString(prevPriv)
		out.KEK.PreviousVersion = st.PreviousVersion
	}

	for _, info := range k.fs.AllWrappedKeys() {
		out.Files[info.ObjectPath] = wrappedKeyRecord{
			Encapsulation: base64.StdEncoding.EncodeToString(info.WrappedDEK.Encapsulation),
			Ciphertext:    base64.StdEncoding.EncodeToString(info.WrappedDEK.Ciphertext),
			KEKVersion:    info.KEKVersion,
		}
	}

	if len(k.subtreeRecords) > 0 {
		out.Subtrees = make(map[string]subtreeRecord, len(k.subtreeRecords))
		for prefix, enc := range k.subtreeRecords {
			out.Subtrees[prefix] = subtreeRecord{
				Ciphertext: base64.StdEncoding.EncodeToString(enc.Ciphertext),
				Nonce:      base64.StdEncoding.EncodeToString(enc.Nonce),
				Version:    enc.Version,
				CreatedAt:  enc.CreatedAt,
			}
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("client: encoding keyring: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadKeyring reads the ledger SaveKeyring wrote, reconstructing the
// rotation state (including an interrupted rotation's previous KEK) and
// re-deriving the subtree hierarchy's master DEK from mgr.
func LoadKeyring(path string, mgr *keys.Manager) (*Keyring, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("client: reading keyring file: %w", err)
	}
	var f keyringFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("client: decoding keyring file: %w", err)
	}

	st, err := kekStateFromRecord(f.KEK)
	if err != nil {
		return nil, err
	}

	wrapped := make([]*rotation.WrappedKeyInfo, 0, len(f.Files))
	for objectPath, rec := range f.Files {
		encap, err := base64.StdEncoding.DecodeString(rec.Encapsulation)
		if err != nil {
			return nil, fmt.Errorf("client: decoding wrapped key for %q: %w", objectPath, err)
		}
		ct, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
		if err != nil {
			return nil, fmt.Errorf("client: decoding wrapped key for %q: %w", objectPath, err)
		}
		wrapped = append(wrapped, &rotation.WrappedKeyInfo{
			WrappedDEK: hpke.Sealed{Encapsulation: encap, Ciphertext: ct},
			KEKVersion: rec.KEKVersion,
			ObjectPath: objectPath,
		})
	}

	k := &Keyring{
		fs:             rotation.FileSystemRotationFromState(st, wrapped),
		subtrees:       subtreekeys.NewManagerWithMasterDEK(mgr.DerivePathKey("/")),
		subtreeRecords: make(map[string]*subtreekeys.EncryptedSubtreeDEK),
	}

	for prefix, rec := range f.Subtrees {
		ct, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
		if err != nil {
			return nil, fmt.Errorf("client: decoding subtree key for %q: %w", prefix, err)
		}
		nonce, err := base64.StdEncoding.DecodeString(rec.Nonce)
		if err != nil {
			return nil, fmt.Errorf("client: decoding subtree nonce for %q: %w", prefix, err)
		}
		enc := &subtreekeys.EncryptedSubtreeDEK{
			Ciphertext: ct,
			Nonce:      nonce,
			Version:    rec.Version,
			CreatedAt:  rec.CreatedAt,
		}
		if _, err := k.subtrees.LoadSubtree(prefix, enc); err != nil {
			return nil, fmt.Errorf("client: loading subtree key for %q: %w", prefix, err)
		}
		k.subtreeRecords[prefix] = enc
	}

	return k, nil
}

func kekStateFromRecord(rec kekStateRecord) (rotation.State, error) {
	currentPubRaw, err := base64.StdEncoding.DecodeString(rec.CurrentPublic)
	if err != nil {
		return rotation.State{}, fmt.Errorf("client: decoding current KEK public key: %w", err)
	}
	currentPub, err := hpke.ParsePublicKey(currentPubRaw)
	if err != nil {
		return rotation.State{}, fmt.Errorf("client: parsing current KEK public key: %w", err)
	}
	currentPrivRaw, err := base64.StdEncoding.DecodeString(rec.CurrentPrivate)
	if err != nil {
		return rotation.State{}, fmt.Errorf("client: decoding current KEK private key: %w", err)
	}
	currentPriv, err := hpke.ParsePrivateKey(currentPrivRaw)
	if err != nil {
		return rotation.State{}, fmt.Errorf("client: parsing current KEK private key: %w", err)
	}

	st := rotation.State{
		CurrentPublic:  currentPub,
		CurrentPrivate: currentPriv,
		CurrentVersion: rec.CurrentVersion,
	}

	if rec.PreviousPublic != "" && rec.PreviousPrivate != "" && rec.PreviousVersion != nil {
		prevPubRaw, err := base64.StdEncoding.DecodeString(rec.PreviousPublic)
		if err != nil {
			return rotation.State{}, fmt.Errorf("client: decoding previous KEK public key: %w", err)
		}
		prevPub, err := hpke.ParsePublicKey(prevPubRaw)
		if err != nil {
			return rotation.State{}, fmt.Errorf("client: parsing previous KEK public key: %w", err)
		}
		prevPrivRaw, err := base64.StdEncoding.DecodeString(rec.PreviousPrivate)
		if err != nil {
			return rotation.State{}, fmt.Errorf("client: decoding previous KEK private key: %w", err)
		}
		prevPriv, err := hpke.ParsePrivateKey(prevPrivRaw)
		if err != nil {
			return rotation.State{}, fmt.Errorf("client: parsing previous KEK private key: %w", err)
		}
		st.PreviousPublic = &prevPub
		st.PreviousPrivate = &prevPriv
		st.PreviousVersion = rec.PreviousVersion
	}

	return st, nil
}
