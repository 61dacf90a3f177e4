// Package helpers provides hex-quantity and amount formatting used by
// the ledger adapters.
package helpers

import (
	"math/big"
	"strings"
)

// HexToInt64 converts a hex quantity (with or without 0x prefix) to int64.
func HexToInt64(s string) int64 {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0
	}
	val, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return 0
	}
	return val.Int64()
}

// HexToUint64 converts a hex quantity (with or without 0x prefix) to uint64.
func HexToUint64(s string) uint64 {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0
	}
	val, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return 0
	}
	return val.Uint64()
}

// HexToBigInt converts a hex quantity (with or without 0x prefix) to *big.Int.
func HexToBigInt(s string) *big.Int {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0)
	}
	val, ok := new(big.Int).SetString(s, 16)
	if !ok || val == nil {
		return big.NewInt(0)
	}
	return val
}

// Uint64ToHex converts a uint64 to a hex quantity with 0x prefix.
func Uint64ToHex(n uint64) string {
	if n == 0 {
		return "0x0"
	}
	return "0x" + new(big.Int).SetUint64(n).Text(16)
}

// IsHex reports whether s is a non-empty string of hex digits.
func IsHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
