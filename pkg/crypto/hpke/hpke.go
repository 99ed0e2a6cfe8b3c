// Package hpke implements RFC 9180 base-mode hybrid public-key encryption
// used to wrap a DEK to a recipient's public key: share tokens,
// inbox envelopes, and secret links are all HPKE-sealed to the recipient.
package hpke

import (
	"crypto/rand"
	"fmt"

	"github.com/cloudflare/circl/hpke"
	"github.com/cloudflare/circl/kem"
)

// Suite is the one HPKE ciphersuite this gateway speaks: X25519-HKDF-SHA256
// KEM, HKDF-SHA256 KDF, ChaCha20-Poly1305 AEAD.
var suite = hpke.NewSuite(hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_ChaCha20Poly1305)

// Default domain-separation strings.
const (
	InfoDefault    = "fula-storage-v2"
	AADDefault     = "fula:v2:default"
	AADDekWrap     = "fula:v2:dek-wrap"
)

// PublicKey and PrivateKey are opaque wrappers around the KEM's native key
// types, kept here so callers never import circl/kem directly.
type PublicKey struct{ key kem.PublicKey }
type PrivateKey struct{ key kem.PrivateKey }

// GenerateKeyPair creates a fresh X25519 HPKE key pair.
func GenerateKeyPair() (PublicKey, PrivateKey, error) {
	pub, priv, err := hpke.KEM_X25519_HKDF_SHA256.Scheme().GenerateKeyPair()
	if err != nil {
		return PublicKey{}, PrivateKey{}, fmt.Errorf("hpke: generating key pair: %w", err)
	}
	return PublicKey{key: pub}, PrivateKey{key: priv}, nil
}

// MarshalPublic returns the wire encoding of pub.
func (pub PublicKey) MarshalPublic() ([]byte, error) {
	return pub.key.MarshalBinary()
}

// ParsePublicKey decodes a wire-encoded public key.
func ParsePublicKey(raw []byte) (PublicKey, error) {
	pub, err := hpke.KEM_X25519_HKDF_SHA256.Scheme().UnmarshalBinaryPublicKey(raw)
	if err != nil {
		return PublicKey{}, fmt.Errorf("hpke: parsing public key: %w", err)
	}
	return PublicKey{key: pub}, nil
}

// MarshalPrivate returns the wire encoding of priv.
func (priv PrivateKey) MarshalPrivate() ([]byte, error) {
	return priv.key.MarshalBinary()
}

// ParsePrivateKey decodes a wire-encoded private key.
func ParsePrivateKey(raw []byte) (PrivateKey, error) {
	priv, err := hpke.KEM_X25519_HKDF_SHA256.Scheme().UnmarshalBinaryPrivateKey(raw)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("hpke: parsing private key: %w", err)
	}
	return PrivateKey{key: priv}, nil
}

// Sealed is the output of Seal: the KEM encapsulation plus the AEAD
// ciphertext, both of which must travel together to the recipient.
type Sealed struct {
	Encapsulation []byte
	Ciphertext    []byte
}

// Seal encrypts plaintext to recipient's public key in a single-shot HPKE
// base-mode operation, binding associatedData into the AEAD tag.
func Seal(recipient PublicKey, info, associatedData, plaintext []byte) (Sealed, error) {
	sender, err := suite.NewSender(recipient.key, info)
	if err != nil {
		return Sealed{}, fmt.Errorf("hpke: creating sender: %w", err)
	}
	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return Sealed{}, fmt.Errorf("hpke: sender setup: %w", err)
	}
	ciphertext, err := sealer.Seal(plaintext, associatedData)
	if err != nil {
		return Sealed{}, fmt.Errorf("hpke: sealing: %w", err)
	}
	return Sealed{Encapsulation: enc, Ciphertext: ciphertext}, nil
}

// Open decrypts a Sealed payload using the recipient's private key. Returns
// an error if the encapsulation or ciphertext has been tampered with, or if
// priv is not the key Seal targeted.
func Open(recipient PrivateKey, info, associatedData []byte, sealed Sealed) ([]byte, error) {
	receiver, err := suite.NewReceiver(recipient.key, info)
	if err != nil {
		return nil, fmt.Errorf("hpke: creating receiver: %w", err)
	}
	opener, err := receiver.Setup(sealed.Encapsulation)
	if err != nil {
		return nil, fmt.Errorf("hpke: receiver setup: %w", err)
	}
	plaintext, err := opener.Open(sealed.Ciphertext, associatedData)
	if err != nil {
		return nil, fmt.Errorf("hpke: opening: %w", err)
	}
	return plaintext, nil
}

// WrapDEK seals a 32-byte data-encryption key to recipient, using the
// dek-wrap AAD so a wrapped DEK can never be confused with a general
// default-AAD payload.
func WrapDEK(recipient PublicKey, dek []byte) (Sealed, error) {
	return Seal(recipient, []byte(InfoDefault), []byte(AADDekWrap), dek)
}

// UnwrapDEK reverses WrapDEK.
func UnwrapDEK(recipient PrivateKey, sealed Sealed) ([]byte, error) {
	return Open(recipient, []byte(InfoDefault), []byte(AADDekWrap), sealed)
}
