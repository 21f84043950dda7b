package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// minTokenBytes is the floor of entropy for opaque verification tokens.
const minTokenBytes = 32

// GenerateSecureToken returns a URL-safe random string carrying at least 32
// bytes of entropy. Smaller requests are rounded up to the floor.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength < minTokenBytes {
		byteLength = minTokenBytes
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateNumericCode returns a fixed-width numeric OTP drawn from
// crypto/rand. Bytes >= 250 are rejected and redrawn so every digit is
// equally likely.
func GenerateNumericCode(width int) (string, error) {
	if width <= 0 {
		return "", fmt.Errorf("width must be positive")
	}

	digits := make([]byte, 0, width)
	buf := make([]byte, width)
	for len(digits) < width {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		for _, b := range buf {
			if b >= 250 {
				continue
			}
			digits = append(digits, '0'+b%10)
			if len(digits) == width {
				break
			}
		}
	}

	return string(digits), nil
}

// HashToken calculates a SHA-256 hex digest of the provided value, for
// callers that persist hashed artifacts rather than raw ones.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
