package ss58

import (
	"encoding/hex"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known dev account (Alice) on the generic network format.
const (
	alicePubHex  = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
	aliceAddress = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
)

func TestEncodeKnownAccount(t *testing.T) {
	pub, err := hex.DecodeString(alicePubHex)
	require.NoError(t, err)

	addr, err := Encode(pub, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, aliceAddress, addr)
}

func TestFromHex(t *testing.T) {
	addr, err := FromHex("0x"+alicePubHex, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, aliceAddress, addr)

	// bare hex without the 0x prefix works too
	addr, err = FromHex(alicePubHex, FormatGeneric)
	require.NoError(t, err)
	assert.Equal(t, aliceAddress, addr)
}

func TestFromHexRejectsGarbage(t *testing.T) {
	_, err := FromHex("0xzz", FormatGeneric)
	require.Error(t, err)

	// wrong key length
	_, err = FromHex("0xd435", FormatGeneric)
	require.Error(t, err)
}

func TestDecodeRoundTrip(t *testing.T) {
	pub, format, err := Decode(aliceAddress)
	require.NoError(t, err)
	assert.Equal(t, FormatGeneric, format)
	assert.Equal(t, alicePubHex, hex.EncodeToString(pub))
}

func TestDecodeRejectsCorruptedChecksum(t *testing.T) {
	corrupted := aliceAddress[:len(aliceAddress)-1] + "R"
	_, _, err := Decode(corrupted)
	require.Error(t, err)
}

func TestEncodeRejectsBadInput(t *testing.T) {
	_, err := Encode(make([]byte, 31), FormatGeneric)
	require.Error(t, err)

	_, err = Encode(make([]byte, 32), 16384)
	require.Error(t, err)
}

func TestEncodeDecodeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("encode then decode returns the key and format", prop.ForAll(
		func(key []byte, format uint16) bool {
			addr, err := Encode(key, format)
			if err != nil {
				return false
			}
			pub, decodedFormat, err := Decode(addr)
			if err != nil {
				return false
			}
			if decodedFormat != format {
				return false
			}
			for i := range key {
				if pub[i] != key[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(32, gen.UInt8()),
		gen.UInt16Range(0, 16383),
	))

	properties.TestingRun(t)
}
