// Package ss58 implements the SS58 checksummed address codec used by
// Substrate-based networks. Addresses carry a network format prefix, the
// 32-byte account public key and a 2-byte blake2b checksum, base58-encoded.
package ss58

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// FormatGeneric is the generic Substrate network format used for the feed.
const FormatGeneric uint16 = 42

// checksumPrefix is the domain separator mixed into every address checksum.
var checksumPrefix = []byte("SS58PRE")

const pubKeyLen = 32

// Encode renders a 32-byte public key as a checksummed address for the given
// network format.
func Encode(pub []byte, format uint16) (string, error) {
	if len(pub) != pubKeyLen {
		return "", fmt.Errorf("public key must be %d bytes, got %d", pubKeyLen, len(pub))
	}
	if format >= 16384 {
		return "", fmt.Errorf("network format %d out of range", format)
	}

	var payload []byte
	if format < 64 {
		payload = append([]byte{byte(format)}, pub...)
	} else {
		// two-byte prefix encoding for formats 64..16383
		b0 := byte(((format & 0x00fc) >> 2) | 0x40)
		b1 := byte((format >> 8) | ((format & 0x0003) << 6))
		payload = append([]byte{b0, b1}, pub...)
	}

	return base58.Encode(append(payload, checksum(payload)...)), nil
}

// Decode parses a checksummed address back into the public key and network
// format it was encoded with.
func Decode(addr string) ([]byte, uint16, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding base58: %w", err)
	}
	if len(raw) < 1 {
		return nil, 0, fmt.Errorf("address too short")
	}

	prefixLen := 1
	var format uint16
	switch {
	case raw[0] < 64:
		format = uint16(raw[0])
	case raw[0] < 128:
		if len(raw) < 2 {
			return nil, 0, fmt.Errorf("address too short")
		}
		prefixLen = 2
		lower := (uint16(raw[0]&0x3f) << 2) | (uint16(raw[1]) >> 6)
		upper := uint16(raw[1]&0x3f) << 8
		format = lower | upper
	default:
		return nil, 0, fmt.Errorf("invalid address prefix byte %d", raw[0])
	}

	if len(raw) != prefixLen+pubKeyLen+2 {
		return nil, 0, fmt.Errorf("unexpected address length %d", len(raw))
	}

	payload := raw[:len(raw)-2]
	if !bytes.Equal(raw[len(raw)-2:], checksum(payload)) {
		return nil, 0, fmt.Errorf("checksum mismatch")
	}

	pub := make([]byte, pubKeyLen)
	copy(pub, raw[prefixLen:prefixLen+pubKeyLen])
	return pub, format, nil
}

// FromHex converts an explorer-style hex account id ("0x" prefixed or bare)
// into a checksummed address.
func FromHex(account string, format uint16) (string, error) {
	account = strings.TrimPrefix(account, "0x")
	pub, err := hex.DecodeString(account)
	if err != nil {
		return "", fmt.Errorf("decoding account hex: %w", err)
	}
	return Encode(pub, format)
}

func checksum(payload []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(checksumPrefix)
	h.Write(payload)
	return h.Sum(nil)[:2]
}
