package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// CharsetUpperAlphaNum omits 0, O, 1 and I so references read back cleanly
// over the phone.
const CharsetUpperAlphaNum = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// String generates a random string from the given charset.
func String(length int, charset string) (string, error) {
	if length <= 0 {
		return "", nil
	}
	if charset == "" {
		charset = CharsetUpperAlphaNum
	}

	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("generate random index: %w", err)
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

// UpperAlphaNum generates a random uppercase alphanumeric string.
func UpperAlphaNum(length int) string {
	s, _ := String(length, CharsetUpperAlphaNum)
	return s
}

// OrderReference generates a customer-facing order reference such as
// GP-260316-7KQ2MX.
func OrderReference(now time.Time) string {
	return fmt.Sprintf("GP-%s-%s", now.UTC().Format("060102"), UpperAlphaNum(6))
}
