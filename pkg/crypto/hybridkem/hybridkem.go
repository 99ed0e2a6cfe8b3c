// Package hybridkem implements the post-quantum hybrid key encapsulation
// mechanism: X25519 combined with ML-KEM-768 (NIST FIPS
// 203), whose shared secrets are mixed with HKDF-SHA256. A hybrid-wrapped
// DEK stays confidential even if one of the two underlying primitives is
// eventually broken.
package hybridkem

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"golang.org/x/crypto/hkdf"
)

// Wire sizes. A hybrid public key is the concatenation of an X25519
// public key and an ML-KEM-768 public key; a hybrid encapsulation is an
// X25519 ephemeral public key concatenated with an ML-KEM-768 ciphertext.
const (
	X25519PublicKeySize     = 32
	MLKEMPublicKeySize      = mlkem768.PublicKeySize
	MLKEMCiphertextSize     = mlkem768.CiphertextSize
	HybridPublicKeySize     = X25519PublicKeySize + MLKEMPublicKeySize
	HybridEncapsulationSize = X25519PublicKeySize + MLKEMCiphertextSize
	SharedSecretSize        = 32
)

// hkdfInfo is the domain-separation string mixed into the HKDF expansion
// that combines the two component shared secrets.
const hkdfInfo = "fula-hybrid-kem-v1"

var x25519Curve = ecdh.X25519()

// PublicKey is a hybrid X25519 ∥ ML-KEM-768 public key.
type PublicKey struct {
	x25519 *ecdh.PublicKey
	mlkem  *mlkem768.PublicKey
}

// PrivateKey is a hybrid X25519 ∥ ML-KEM-768 private key.
type PrivateKey struct {
	x25519 *ecdh.PrivateKey
	mlkem  *mlkem768.PrivateKey
	public PublicKey
}

// GenerateKeyPair creates a fresh hybrid key pair.
func GenerateKeyPair() (PrivateKey, error) {
	x25519Priv, err := x25519Curve.GenerateKey(rand.Reader)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("hybridkem: generating X25519 key: %w", err)
	}
	mlkemPub, mlkemPriv, err := mlkem768.GenerateKeyPair(rand.Reader)
	if err != nil {
		return PrivateKey{}, fmt.Errorf("hybridkem: generating ML-KEM key: %w", err)
	}
	pub := PublicKey{x25519: x25519Priv.PublicKey(), mlkem: mlkemPub}
	return PrivateKey{x25519: x25519Priv, mlkem: mlkemPriv, public: pub}, nil
}

// PublicKey returns the public half of priv.
func (priv PrivateKey) PublicKey() PublicKey {
	return priv.public
}

// Bytes encodes pub as HybridPublicKeySize bytes: X25519 key then ML-KEM key.
func (pub PublicKey) Bytes() []byte {
	out := make([]byte, 0, HybridPublicKeySize)
	out = append(out, pub.x25519.Bytes()...)
	mlkemBytes, _ := pub.mlkem.MarshalBinary()
	return append(out, mlkemBytes...)
}

// ParsePublicKey decodes bytes produced by PublicKey.Bytes.
func ParsePublicKey(raw []byte) (PublicKey, error) {
	if len(raw) != HybridPublicKeySize {
		return PublicKey{}, fmt.Errorf("hybridkem: public key must be %d bytes, got %d", HybridPublicKeySize, len(raw))
	}
	x25519Pub, err := x25519Curve.NewPublicKey(raw[:X25519PublicKeySize])
	if err != nil {
		return PublicKey{}, fmt.Errorf("hybridkem: parsing X25519 public key: %w", err)
	}
	var mlkemPub mlkem768.PublicKey
	if err := mlkemPub.Unpack(raw[X25519PublicKeySize:]); err != nil {
		return PublicKey{}, fmt.Errorf("hybridkem: parsing ML-KEM public key: %w", err)
	}
	return PublicKey{x25519: x25519Pub, mlkem: &mlkemPub}, nil
}

// Bytes encodes priv as its two component private keys concatenated.
func (priv PrivateKey) Bytes() []byte {
	out := make([]byte, 0)
	out = append(out, priv.x25519.Bytes()...)
	mlkemBytes, _ := priv.mlkem.MarshalBinary()
	return append(out, mlkemBytes...)
}

// ParsePrivateKey decodes bytes produced by PrivateKey.Bytes. x25519Len and
// mlkemLen are fixed (32 and mlkem768's private key size respectively); the
// caller does not need to know them to call this function.
func ParsePrivateKey(raw []byte) (PrivateKey, error) {
	const mlkemSecretSize = mlkem768.PrivateKeySize
	if len(raw) != X25519PublicKeySize+mlkemSecretSize {
		return PrivateKey{}, fmt.Errorf("hybridkem: private key must be %d bytes, got %d", X25519PublicKeySize+mlkemSecretSize, len(raw))
	}
	x25519Priv, err := x25519Curve.NewPrivateKey(raw[:X25519PublicKeySize])
	if err != nil {
		return PrivateKey{}, fmt.Errorf("hybridkem: parsing X25519 private key: %w", err)
	}
	var mlkemPriv mlkem768.PrivateKey
	if err := mlkemPriv.Unpack(raw[X25519PublicKeySize:]); err != nil {
		return PrivateKey{}, fmt.Errorf("hybridkem: parsing ML-KEM private key: %w", err)
	}
	pub := PublicKey{x25519: x25519Priv.PublicKey(), mlkem: mlkemPriv.Public().(*mlkem768.PublicKey)}
	return PrivateKey{x25519: x25519Priv, mlkem: &mlkemPriv, public: pub}, nil
}

// Encapsulation is what a sender transmits to the recipient: an ephemeral
// X25519 public key plus an ML-KEM-768 ciphertext.
type Encapsulation struct {
	X25519Ephemeral []byte
	MLKEMCiphertext []byte
}

// Bytes encodes enc as HybridEncapsulationSize bytes.
func (enc Encapsulation) Bytes() []byte {
	out := make([]byte, 0, HybridEncapsulationSize)
	out = append(out, enc.X25519Ephemeral...)
	return append(out, enc.MLKEMCiphertext...)
}

// ParseEncapsulation decodes bytes produced by Encapsulation.Bytes.
func ParseEncapsulation(raw []byte) (Encapsulation, error) {
	if len(raw) != HybridEncapsulationSize {
		return Encapsulation{}, fmt.Errorf("hybridkem: encapsulation must be %d bytes, got %d", HybridEncapsulationSize, len(raw))
	}
	return Encapsulation{
		X25519Ephemeral: append([]byte(nil), raw[:X25519PublicKeySize]...),
		MLKEMCiphertext: append([]byte(nil), raw[X25519PublicKeySize:]...),
	}, nil
}

// Encapsulate derives a shared secret for recipientPublic and returns both
// it and the encapsulation to send alongside whatever it protects.
func Encapsulate(recipientPublic PublicKey) (Encapsulation, []byte, error) {
	ephemeralPriv, err := x25519Curve.GenerateKey(rand.Reader)
	if err != nil {
		return Encapsulation{}, nil, fmt.Errorf("hybridkem: generating ephemeral X25519 key: %w", err)
	}
	x25519Shared, err := ephemeralPriv.ECDH(recipientPublic.x25519)
	if err != nil {
		return Encapsulation{}, nil, fmt.Errorf("hybridkem: X25519 ECDH: %w", err)
	}

	mlkemCiphertext := make([]byte, mlkem768.CiphertextSize)
	mlkemShared := make([]byte, mlkem768.SharedKeySize)
	seed := make([]byte, mlkem768.EncapsulationSeedSize)
	if _, err := rand.Read(seed); err != nil {
		return Encapsulation{}, nil, fmt.Errorf("hybridkem: generating ML-KEM seed: %w", err)
	}
	recipientPublic.mlkem.EncapsulateTo(mlkemCiphertext, mlkemShared, seed)

	shared, err := combineSharedSecrets(x25519Shared, mlkemShared)
	if err != nil {
		return Encapsulation{}, nil, err
	}

	return Encapsulation{
		X25519Ephemeral: ephemeralPriv.PublicKey().Bytes(),
		MLKEMCiphertext: mlkemCiphertext,
	}, shared, nil
}

// Decapsulate recovers the shared secret from enc using recipientSecret.
func Decapsulate(enc Encapsulation, recipientSecret PrivateKey) ([]byte, error) {
	ephemeralPub, err := x25519Curve.NewPublicKey(enc.X25519Ephemeral)
	if err != nil {
		return nil, fmt.Errorf("hybridkem: parsing ephemeral X25519 key: %w", err)
	}
	x25519Shared, err := recipientSecret.x25519.ECDH(ephemeralPub)
	if err != nil {
		return nil, fmt.Errorf("hybridkem: X25519 ECDH: %w", err)
	}

	mlkemShared := make([]byte, mlkem768.SharedKeySize)
	recipientSecret.mlkem.DecapsulateTo(mlkemShared, enc.MLKEMCiphertext)

	return combineSharedSecrets(x25519Shared, mlkemShared)
}

// combineSharedSecrets mixes the two component secrets with HKDF-SHA256
// over IKM = x25519_shared || mlkem_shared.
func combineSharedSecrets(x25519Shared, mlkemShared []byte) ([]byte, error) {
	ikm := make([]byte, 0, len(x25519Shared)+len(mlkemShared))
	ikm = append(ikm, x25519Shared...)
	ikm = append(ikm, mlkemShared...)

	reader := hkdf.New(sha256.New, ikm, nil, []byte(hkdfInfo))
	shared := make([]byte, SharedSecretSize)
	if _, err := io.ReadFull(reader, shared); err != nil {
		return nil, fmt.Errorf("hybridkem: HKDF expansion: %w", err)
	}
	return shared, nil
}
