package proof

import (
	"crypto/rand"
	"fmt"
)

// CodeLength is the fixed length of a manual attendance code.
const CodeLength = 6

// codeAlphabet avoids characters that read ambiguously on a projector
// (0/O, 1/I/L).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewCode generates a random manual code. Uniqueness among active sessions is
// enforced by the storage layer, not here.
func NewCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate manual code: %w", err)
	}

	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return string(buf), nil
}
