package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fula-project/gateway/pkg/crypto/hpke"
	"github.com/fula-project/gateway/pkg/crypto/keys"
)

// identityFile is the on-disk form of an owner's long-term key material:
// the KEK keypair Manager wraps share tokens to, and the master secret its
// path/forest key derivations depend on. Anyone holding this file can
// decrypt everything the owner has ever stored.
type identityFile struct {
	PublicKey    string `json:"public_key"`
	PrivateKey   string `json:"private_key"`
	MasterSecret string `json:"master_secret"`
}

// SaveIdentity writes mgr's key material to path as JSON, overwriting any
// existing file. The file is created (or re-chmod'd) user-read-write-only.
func SaveIdentity(path string, mgr *keys.Manager) error {
	pub, priv := mgr.Keypair()
	pubBytes, err := pub.MarshalPublic()
	if err != nil {
		return fmt.Errorf("client: marshaling public key: %w", err)
	}
	privBytes, err := priv.MarshalPrivate()
	if err != nil {
		return fmt.Errorf("client: marshaling private key: %w", err)
	}

	data, err := json.MarshalIndent(identityFile{
		PublicKey:    base64.StdEncoding.EncodeToString(pubBytes),
		PrivateKey:   base64.StdEncoding.EncodeToString(privBytes),
		MasterSecret: base64.StdEncoding.EncodeToString(mgr.MasterSecretBytes()),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("client: encoding identity: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadIdentity reads the key material SaveIdentity wrote.
func LoadIdentity(path string) (*keys.Manager, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("client: reading identity file: %w", err)
	}
	var f identityFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("client: decoding identity file: %w", err)
	}

	pubBytes, err := base64.StdEncoding.DecodeString(f.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("client: decoding public key: %w", err)
	}
	privBytes, err := base64.StdEncoding.DecodeString(f.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("client: decoding private key: %w", err)
	}
	masterBytes, err := base64.StdEncoding.DecodeString(f.MasterSecret)
	if err != nil {
		return nil, fmt.Errorf("client: decoding master secret: %w", err)
	}
	if len(masterBytes) != 32 {
		return nil, fmt.Errorf("client: master secret must be 32 bytes, got %d", len(masterBytes))
	}

	pub, err := hpke.ParsePublicKey(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("client: parsing public key: %w", err)
	}
	priv, err := hpke.ParsePrivateKey(privBytes)
	if err != nil {
		return nil, fmt.Errorf("client: parsing private key: %w", err)
	}
	var master [32]byte
	copy(master[:], masterBytes)

	return keys.New(pub, priv, master), nil
}
