package keys

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fula-project/gateway/pkg/crypto/aead"
	"github.com/fula-project/gateway/pkg/crypto/hpke"
)

func TestGenerateDEKIsRandom(t *testing.T) {
	a, err := GenerateDEK()
	require.NoError(t, err)
	b, err := GenerateDEK()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestDekKeyFromBytes(t *testing.T) {
	raw := make([]byte, 32)
	raw[0] = 0xab
	k, err := DekKeyFromBytes(raw)
	require.NoError(t, err)
	require.Equal(t, raw, k.Bytes())

	_, err = DekKeyFromBytes(make([]byte, 16))
	require.Error(t, err)
}

func TestDekKeyZero(t *testing.T) {
	k, err := GenerateDEK()
	require.NoError(t, err)
	k.Zero()
	require.Equal(t, make([]byte, 32), k.Bytes())
}

func TestDekKeyAsAEADKey(t *testing.T) {
	dek, err := GenerateDEK()
	require.NoError(t, err)

	key, err := dek.AsAEADKey(aead.AlgorithmAESGCM)
	require.NoError(t, err)
	require.Equal(t, dek.Bytes(), key.Bytes())
}

func TestDerivePathKeyIsDeterministic(t *testing.T) {
	mgr, err := Generate()
	require.NoError(t, err)

	a := mgr.DerivePathKey("/photos/vacation/beach.jpg")
	b := mgr.DerivePathKey("/photos/vacation/beach.jpg")
	require.Equal(t, a, b)

	other := mgr.DerivePathKey("/photos/vacation/sunset.jpg")
	require.NotEqual(t, a, other)
}

func TestDeriveForestKeyIsDeterministic(t *testing.T) {
	mgr, err := Generate()
	require.NoError(t, err)

	a := mgr.DeriveForestKey("my-bucket")
	b := mgr.DeriveForestKey("my-bucket")
	require.Equal(t, a, b)

	require.NotEqual(t, a, mgr.DeriveForestKey("other-bucket"))
}

func TestDerivationsAreDomainSeparated(t *testing.T) {
	mgr, err := Generate()
	require.NoError(t, err)

	// The same input string through the two derivations must not collide.
	require.NotEqual(t, mgr.DerivePathKey("same-input"), mgr.DeriveForestKey("same-input"))
}

func TestDerivationsDependOnMasterSecret(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	require.NotEqual(t, a.DerivePathKey("/p"), b.DerivePathKey("/p"))
	require.NotEqual(t, a.DeriveForestKey("bkt"), b.DeriveForestKey("bkt"))
}

func TestManagerRestoredFromPartsDerivesSameKeys(t *testing.T) {
	mgr, err := Generate()
	require.NoError(t, err)

	var master [32]byte
	copy(master[:], mgr.MasterSecretBytes())
	pub, priv := mgr.Keypair()

	restored := New(pub, priv, master)
	require.Equal(t, mgr.DerivePathKey("/a/b"), restored.DerivePathKey("/a/b"))
	require.Equal(t, mgr.DeriveForestKey("bkt"), restored.DeriveForestKey("bkt"))
}

func TestKeypairWrapsAndUnwraps(t *testing.T) {
	mgr, err := Generate()
	require.NoError(t, err)

	dek, err := mgr.GenerateDEK()
	require.NoError(t, err)

	sealed, err := hpke.WrapDEK(mgr.PublicKey(), dek.Bytes())
	require.NoError(t, err)

	_, priv := mgr.Keypair()
	unwrapped, err := hpke.UnwrapDEK(priv, sealed)
	require.NoError(t, err)
	require.Equal(t, dek.Bytes(), unwrapped)
}
