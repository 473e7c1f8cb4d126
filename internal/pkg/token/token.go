package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeLength is the length of a verification code.
const CodeLength = 12

// NewVerificationCode returns a cryptographically random alphanumeric code,
// safe to embed in a URL path segment.
func NewVerificationCode() (string, error) {
	b := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate verification code: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
