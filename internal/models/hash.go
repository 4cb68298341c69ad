package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashMessage returns the digest of a rendered feed message, used for
// duplicate suppression across poll cycles.
func HashMessage(text string) string {
	return digest(text)
}

// formatAmount renders a float without trailing zeros so the hash input is
// stable across parse/format round trips.
func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
