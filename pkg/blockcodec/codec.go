// Package blockcodec serializes structured values (Prolly Tree nodes,
// private-forest indices, wrapped-key records) to and from the bytes a
// BlockStore persists, and computes the resulting ContentAddress.
package blockcodec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/fula-project/gateway/pkg/address"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	opts := cbor.CanonicalEncOptions()
	var err error
	encMode, err = opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("blockcodec: building canonical encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("blockcodec: building decoder: %v", err))
	}
}

// Encode serializes v to its canonical CBOR form. Canonical encoding is
// used so that two equal values always produce byte-identical output,
// which is required for ContentAddress to be a pure function of the
// logical value, not just of the encoder's mood.
func Encode(v any) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("blockcodec: encode: %w", err)
	}
	return b, nil
}

// Decode deserializes bytes produced by Encode into v (a pointer).
func Decode(b []byte, v any) error {
	if err := decMode.Unmarshal(b, v); err != nil {
		return fmt.Errorf("blockcodec: decode: %w", err)
	}
	return nil
}

// AddressOf encodes v and returns the structured-block ContentAddress of
// the result, without requiring the caller to hold onto the bytes.
func AddressOf(v any) (address.ContentAddress, []byte, error) {
	b, err := Encode(v)
	if err != nil {
		return address.ContentAddress{}, nil, err
	}
	return address.Of(b, address.CodecDagCBOR), b, nil
}
