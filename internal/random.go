package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	oneTimeTokenBytes = 32
	proofTokenBytes   = 24
	maxTokenLength    = 128

	minOTPDigits = 6
	maxOTPDigits = 10
)

var tokenEncoding = base64.RawURLEncoding

// NewOneTimeToken returns a URL-safe activation or reset token and the hex
// SHA-256 that gets persisted in place of it.
func NewOneTimeToken() (token, hash string, err error) {
	return randomToken(oneTimeTokenBytes)
}

// NewProofToken returns a shorter token used for email ownership proofs.
func NewProofToken() (token, hash string, err error) {
	return randomToken(proofTokenBytes)
}

func randomToken(n int) (string, string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read random token: %w", err)
	}
	token := tokenEncoding.EncodeToString(buf)
	return token, HashToken(token), nil
}

// HashToken is the storage form of a one-time token. Only the hash is ever
// written to the account store or cache.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidTokenShape rejects obviously malformed tokens before any store lookup.
func ValidTokenShape(token string) bool {
	if token == "" || len(token) > maxTokenLength {
		return false
	}
	_, err := tokenEncoding.DecodeString(token)
	return err == nil
}

// NewOTP returns a uniformly random numeric code of the given length.
func NewOTP(digits int) (string, error) {
	if digits < minOTPDigits || digits > maxOTPDigits {
		return "", fmt.Errorf("otp length must be %d-%d digits, got %d", minOTPDigits, maxOTPDigits, digits)
	}

	code := make([]byte, 0, digits)
	var buf [16]byte
	for len(code) < digits {
		if _, err := rand.Read(buf[:]); err != nil {
			return "", fmt.Errorf("read random otp: %w", err)
		}
		for _, b := range buf {
			// 250 is the largest multiple of 10 below 256; rejecting the
			// rest keeps every digit equally likely
			if b >= 250 || len(code) == digits {
				continue
			}
			code = append(code, '0'+b%10)
		}
	}
	return string(code), nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
