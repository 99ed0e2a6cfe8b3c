// Package aead implements the symmetric authenticated encryption used to
// protect block payloads once a DEK has been resolved: AES-256-GCM
// by default, with ChaCha20-Poly1305 as an alternate cipher, both using
// 12-byte nonces and 128-bit tags.
package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm selects the underlying AEAD cipher.
type Algorithm int

const (
	// AlgorithmAESGCM is AES-256-GCM, the default cipher.
	AlgorithmAESGCM Algorithm = iota
	// AlgorithmChaCha20Poly1305 is the alternate cipher.
	AlgorithmChaCha20Poly1305
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmChaCha20Poly1305:
		return "chacha20-poly1305"
	default:
		return "aes-256-gcm"
	}
}

// KeySize is the length in bytes of every key used by this package,
// regardless of algorithm: both ciphers take a 256-bit key.
const KeySize = 32

// NonceSize is the length in bytes of every nonce used by this package.
const NonceSize = 12

var (
	// ErrInvalidKeySize is returned when a key is not exactly KeySize bytes.
	ErrInvalidKeySize = errors.New("aead: key must be 32 bytes")

	// ErrInvalidNonceSize is returned when a nonce is not exactly NonceSize bytes.
	ErrInvalidNonceSize = errors.New("aead: nonce must be 12 bytes")

	// ErrAuthenticationFailed is returned by Open when the ciphertext or
	// associated data has been tampered with.
	ErrAuthenticationFailed = errors.New("aead: authentication failed")
)

// Key is a 256-bit symmetric key bound to a specific Algorithm.
type Key struct {
	Algorithm Algorithm
	bytes     [KeySize]byte
}

// NewKey wraps raw key bytes for use with algorithm.
func NewKey(algorithm Algorithm, raw []byte) (Key, error) {
	if len(raw) != KeySize {
		return Key{}, ErrInvalidKeySize
	}
	var k Key
	k.Algorithm = algorithm
	copy(k.bytes[:], raw)
	return k, nil
}

// GenerateKey produces a fresh random key for algorithm using crypto/rand.
func GenerateKey(algorithm Algorithm) (Key, error) {
	var raw [KeySize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return Key{}, fmt.Errorf("aead: generating key: %w", err)
	}
	return Key{Algorithm: algorithm, bytes: raw}, nil
}

// Bytes returns the raw key material.
func (k Key) Bytes() []byte {
	out := make([]byte, KeySize)
	copy(out, k.bytes[:])
	return out
}

func (k Key) aead() (cipher.AEAD, error) {
	switch k.Algorithm {
	case AlgorithmChaCha20Poly1305:
		return chacha20poly1305.New(k.bytes[:])
	default:
		block, err := aes.NewCipher(k.bytes[:])
		if err != nil {
			return nil, fmt.Errorf("aead: constructing AES cipher: %w", err)
		}
		return cipher.NewGCM(block)
	}
}

// Seal encrypts plaintext under key, authenticating associatedData, using
// nonce (which the caller must never reuse for the same key).
func Seal(key Key, nonce, plaintext, associatedData []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	a, err := key.aead()
	if err != nil {
		return nil, err
	}
	return a.Seal(nil, nonce, plaintext, associatedData), nil
}

// Open decrypts ciphertext under key, verifying associatedData and the
// authentication tag. Returns ErrAuthenticationFailed on any tampering.
func Open(key Key, nonce, ciphertext, associatedData []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	a, err := key.aead()
	if err != nil {
		return nil, err
	}
	plaintext, err := a.Open(nil, nonce, ciphertext, associatedData)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// NonceSequence generates a monotonically increasing sequence of nonces
// from a random starting point, incrementing by one over the full 96-bit
// width on each call after the first, which returns the starting nonce
// itself. Used by the streaming codec to give each chunk a fresh nonce;
// the codec records every chunk's nonce in its ChunkedFileIndex.
type NonceSequence struct {
	current [NonceSize]byte
	started bool
}

// NewNonceSequence seeds a sequence with a random starting nonce.
func NewNonceSequence() (*NonceSequence, error) {
	var start [NonceSize]byte
	if _, err := rand.Read(start[:]); err != nil {
		return nil, fmt.Errorf("aead: generating starting nonce: %w", err)
	}
	return &NonceSequence{current: start}, nil
}

// NonceSequenceFrom seeds a sequence with an explicit starting nonce,
// typically one persisted alongside a stream's first chunk.
func NonceSequenceFrom(start []byte) (*NonceSequence, error) {
	if len(start) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	s := &NonceSequence{}
	copy(s.current[:], start)
	return s, nil
}

// Next returns the next nonce in the sequence and advances it.
func (s *NonceSequence) Next() []byte {
	if !s.started {
		s.started = true
	} else {
		incrementBigEndian(&s.current)
	}
	out := make([]byte, NonceSize)
	copy(out, s.current[:])
	return out
}

func incrementBigEndian(nonce *[NonceSize]byte) {
	// Treat the nonce as a single 96-bit big-endian counter so it wraps
	// as one number rather than per-byte.
	hi := binary.BigEndian.Uint32(nonce[0:4])
	lo := binary.BigEndian.Uint64(nonce[4:12])
	lo++
	if lo == 0 {
		hi++
	}
	binary.BigEndian.PutUint32(nonce[0:4], hi)
	binary.BigEndian.PutUint64(nonce[4:12], lo)
}
