package hybridkem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncapsulateDecapsulate(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	enc, senderShared, err := Encapsulate(priv.PublicKey())
	require.NoError(t, err)
	require.Len(t, senderShared, SharedSecretSize)

	recipientShared, err := Decapsulate(enc, priv)
	require.NoError(t, err)
	require.Equal(t, senderShared, recipientShared)
}

func TestSharedSecretsDifferAcrossEncapsulations(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	_, a, err := Encapsulate(priv.PublicKey())
	require.NoError(t, err)
	_, b, err := Encapsulate(priv.PublicKey())
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDecapsulateWithWrongKeyDiverges(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)
	other, err := GenerateKeyPair()
	require.NoError(t, err)

	enc, senderShared, err := Encapsulate(priv.PublicKey())
	require.NoError(t, err)

	// ML-KEM decapsulation is implicit-rejection: it returns a secret, just
	// not the sender's.
	got, err := Decapsulate(enc, other)
	require.NoError(t, err)
	require.NotEqual(t, senderShared, got)
}

func TestWireSizes(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	pubBytes := priv.PublicKey().Bytes()
	require.Len(t, pubBytes, HybridPublicKeySize)
	require.Equal(t, 32+1184, HybridPublicKeySize)

	enc, _, err := Encapsulate(priv.PublicKey())
	require.NoError(t, err)
	require.Len(t, enc.Bytes(), HybridEncapsulationSize)
	require.Equal(t, 32+1088, HybridEncapsulationSize)
}

func TestPublicKeyParseRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	parsed, err := ParsePublicKey(priv.PublicKey().Bytes())
	require.NoError(t, err)

	enc, senderShared, err := Encapsulate(parsed)
	require.NoError(t, err)

	recipientShared, err := Decapsulate(enc, priv)
	require.NoError(t, err)
	require.Equal(t, senderShared, recipientShared)
}

func TestPrivateKeyParseRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	parsed, err := ParsePrivateKey(priv.Bytes())
	require.NoError(t, err)

	enc, senderShared, err := Encapsulate(priv.PublicKey())
	require.NoError(t, err)

	recipientShared, err := Decapsulate(enc, parsed)
	require.NoError(t, err)
	require.Equal(t, senderShared, recipientShared)
}

func TestEncapsulationParseRoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	enc, senderShared, err := Encapsulate(priv.PublicKey())
	require.NoError(t, err)

	parsed, err := ParseEncapsulation(enc.Bytes())
	require.NoError(t, err)

	recipientShared, err := Decapsulate(parsed, priv)
	require.NoError(t, err)
	require.Equal(t, senderShared, recipientShared)
}

func TestParseRejectsWrongLengths(t *testing.T) {
	_, err := ParsePublicKey(make([]byte, HybridPublicKeySize-1))
	require.Error(t, err)

	_, err = ParseEncapsulation(make([]byte, HybridEncapsulationSize+1))
	require.Error(t, err)
}
