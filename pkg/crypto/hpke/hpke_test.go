package hpke

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	plaintext := []byte("hello, recipient")
	sealed, err := Seal(pub, []byte(InfoDefault), []byte(AADDefault), plaintext)
	require.NoError(t, err)
	require.NotEmpty(t, sealed.Encapsulation)
	require.NotEmpty(t, sealed.Ciphertext)

	opened, err := Open(priv, []byte(InfoDefault), []byte(AADDefault), sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestSealIsNonDeterministic(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)

	plaintext := []byte("same plaintext")
	a, err := Seal(pub, []byte(InfoDefault), []byte(AADDefault), plaintext)
	require.NoError(t, err)
	b, err := Seal(pub, []byte(InfoDefault), []byte(AADDefault), plaintext)
	require.NoError(t, err)

	// Each call uses a fresh ephemeral key, so both halves differ.
	require.NotEqual(t, a.Encapsulation, b.Encapsulation)
	require.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestOpenFailsWithWrongRecipient(t *testing.T) {
	pub, _, err := GenerateKeyPair()
	require.NoError(t, err)
	_, otherPriv, err := GenerateKeyPair()
	require.NoError(t, err)

	sealed, err := Seal(pub, []byte(InfoDefault), []byte(AADDefault), []byte("secret"))
	require.NoError(t, err)

	_, err = Open(otherPriv, []byte(InfoDefault), []byte(AADDefault), sealed)
	require.Error(t, err)
}

func TestOpenFailsWithWrongAAD(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	sealed, err := Seal(pub, []byte(InfoDefault), []byte("aad-one"), []byte("secret"))
	require.NoError(t, err)

	_, err = Open(priv, []byte(InfoDefault), []byte("aad-two"), sealed)
	require.Error(t, err)
}

func TestOpenFailsOnTamperedCiphertext(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	sealed, err := Seal(pub, []byte(InfoDefault), []byte(AADDefault), []byte("secret"))
	require.NoError(t, err)
	sealed.Ciphertext[0] ^= 0x01

	_, err = Open(priv, []byte(InfoDefault), []byte(AADDefault), sealed)
	require.Error(t, err)
}

func TestWrapUnwrapDEK(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	dek := make([]byte, 32)
	_, err = rand.Read(dek)
	require.NoError(t, err)

	sealed, err := WrapDEK(pub, dek)
	require.NoError(t, err)

	unwrapped, err := UnwrapDEK(priv, sealed)
	require.NoError(t, err)
	require.Equal(t, dek, unwrapped)
}

func TestWrappedDEKNotOpenableUnderDefaultAAD(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	dek := make([]byte, 32)
	_, err = rand.Read(dek)
	require.NoError(t, err)

	sealed, err := WrapDEK(pub, dek)
	require.NoError(t, err)

	// The dek-wrap AAD domain-separates wrapped DEKs from general payloads.
	_, err = Open(priv, []byte(InfoDefault), []byte(AADDefault), sealed)
	require.Error(t, err)
}

func TestPublicKeyMarshalRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	require.NoError(t, err)

	pubRaw, err := pub.MarshalPublic()
	require.NoError(t, err)
	require.Len(t, pubRaw, 32)

	parsedPub, err := ParsePublicKey(pubRaw)
	require.NoError(t, err)

	sealed, err := Seal(parsedPub, []byte(InfoDefault), []byte(AADDefault), []byte("via parsed key"))
	require.NoError(t, err)

	privRaw, err := priv.MarshalPrivate()
	require.NoError(t, err)
	parsedPriv, err := ParsePrivateKey(privRaw)
	require.NoError(t, err)

	opened, err := Open(parsedPriv, []byte(InfoDefault), []byte(AADDefault), sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("via parsed key"), opened)
}
