package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	JoinCodeLength   = 6
	joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateJoinCode returns a random upper-case alphanumeric join code.
func GenerateJoinCode() string {
	var sb strings.Builder
	sb.Grow(JoinCodeLength)
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := 0; i < JoinCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("join code: entropy source failed: " + err.Error())
		}
		sb.WriteByte(joinCodeAlphabet[n.Int64()])
	}
	return sb.String()
}

// NormalizeJoinCode upper-cases a user supplied code so comparisons are case-insensitive.
func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValidJoinCode reports whether code is exactly six ASCII letters or digits.
func IsValidJoinCode(code string) bool {
	if len(code) != JoinCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
