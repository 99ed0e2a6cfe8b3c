package forest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fula-project/gateway/pkg/crypto/keys"
)

func TestObfuscateKeyDeterministicHash(t *testing.T) {
	dek, err := keys.GenerateDEK()
	require.NoError(t, err)
	salt := []byte("salt")

	a, err := ObfuscateKey(DeterministicHash, "/photos/beach.jpg", dek, salt)
	require.NoError(t, err)
	b, err := ObfuscateKey(DeterministicHash, "/photos/beach.jpg", dek, salt)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.True(t, strings.HasPrefix(a, "Qm"))
	require.NotContains(t, a, "photos")
}

func TestObfuscateKeyRandomUUID(t *testing.T) {
	dek, err := keys.GenerateDEK()
	require.NoError(t, err)

	a, err := ObfuscateKey(RandomUUID, "/photos/beach.jpg", dek, nil)
	require.NoError(t, err)
	b, err := ObfuscateKey(RandomUUID, "/photos/beach.jpg", dek, nil)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "Qm"))
}

func TestObfuscateKeyPreserveStructure(t *testing.T) {
	dek, err := keys.GenerateDEK()
	require.NoError(t, err)
	salt := []byte("salt")

	key, err := ObfuscateKey(PreserveStructure, "/photos/2024/beach.jpg", dek, salt)
	require.NoError(t, err)

	// Directory segments survive; the filename does not.
	require.True(t, strings.HasPrefix(key, "/photos/2024/"))
	require.NotContains(t, key, "beach")
	require.True(t, strings.HasPrefix(strings.TrimPrefix(key, "/photos/2024/"), "Qm"))

	// Deterministic for the same inputs.
	again, err := ObfuscateKey(PreserveStructure, "/photos/2024/beach.jpg", dek, salt)
	require.NoError(t, err)
	require.Equal(t, key, again)
}

func TestObfuscateKeyRejectsUnknownMode(t *testing.T) {
	dek, err := keys.GenerateDEK()
	require.NoError(t, err)
	_, err = ObfuscateKey(KeyObfuscationMode(99), "/p", dek, nil)
	require.Error(t, err)
}
