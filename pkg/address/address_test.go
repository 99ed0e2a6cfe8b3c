package address

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressIsPureFunctionOfPayload(t *testing.T) {
	payload := []byte("some block bytes")
	require.Equal(t, OfRaw(payload), OfRaw(payload))
	require.Equal(t, Of(payload, CodecDagCBOR), Of(payload, CodecDagCBOR))
}

func TestAddressVariesWithPayloadAndCodec(t *testing.T) {
	payload := []byte("some block bytes")
	require.NotEqual(t, OfRaw(payload), OfRaw([]byte("other bytes")))
	require.NotEqual(t, OfRaw(payload), Of(payload, CodecDagCBOR))
}

func TestVerify(t *testing.T) {
	payload := []byte("payload")
	addr := OfRaw(payload)
	require.True(t, addr.Verify(payload))
	require.False(t, addr.Verify([]byte("tampered")))
}

func TestCodecTagSurvives(t *testing.T) {
	require.Equal(t, CodecRaw, OfRaw(nil).Codec())
	require.Equal(t, CodecDagCBOR, Of(nil, CodecDagCBOR).Codec())
}

func TestStringParseRoundTrip(t *testing.T) {
	addr := OfRaw([]byte("round trip me"))

	parsed, err := Parse(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr, parsed)
}

func TestParseEmptyYieldsZero(t *testing.T) {
	parsed, err := Parse("")
	require.NoError(t, err)
	require.True(t, parsed.IsZero())
	require.Equal(t, "", parsed.String())
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not-a-cid")
	require.Error(t, err)
}

func TestBytesRoundTrip(t *testing.T) {
	addr := Of([]byte("structured"), CodecDagCBOR)
	parsed, err := FromBytes(addr.Bytes())
	require.NoError(t, err)
	require.Equal(t, addr, parsed)
}

func TestTextMarshalingRoundTrip(t *testing.T) {
	addr := OfRaw([]byte("text me"))

	text, err := addr.MarshalText()
	require.NoError(t, err)

	var back ContentAddress
	require.NoError(t, back.UnmarshalText(text))
	require.Equal(t, addr, back)
}

func TestBinaryMarshalingRoundTrip(t *testing.T) {
	addr := OfRaw([]byte("binary me"))

	raw, err := addr.MarshalBinary()
	require.NoError(t, err)

	var back ContentAddress
	require.NoError(t, back.UnmarshalBinary(raw))
	require.Equal(t, addr, back)

	// The zero address round-trips through empty bytes.
	var zero ContentAddress
	raw, err = zero.MarshalBinary()
	require.NoError(t, err)
	require.Empty(t, raw)
	var backZero ContentAddress
	require.NoError(t, backZero.UnmarshalBinary(raw))
	require.True(t, backZero.IsZero())
}

func TestDigestIsRawBlake3(t *testing.T) {
	addr := OfRaw([]byte("digest me"))

	digest, err := addr.Digest()
	require.NoError(t, err)
	require.Len(t, digest, 32)

	hexDigest, err := addr.HexDigest()
	require.NoError(t, err)
	require.Len(t, hexDigest, 64)
}
