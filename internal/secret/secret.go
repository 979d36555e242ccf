// Package secret generates random credentials from a fixed alphabet using
// a cryptographically secure source. It is stateless; a secret is generated
// only when the operator does not supply one.
package secret

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Alphabet matches the character set the original panel issued passwords
// from: letters, digits and a small punctuation set.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%_-."

// DefaultLength is the issued credential length.
const DefaultLength = 12

// Generate returns a random string of the given length drawn uniformly
// from Alphabet. A non-positive length falls back to DefaultLength.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	max := big.NewInt(int64(len(Alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("rand: %w", err)
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}
