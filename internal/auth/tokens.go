package auth

import (
	"fmt"

	"github.com/mkanilsson/workout-backend/pkg"
)

const (
	// TokenLength is the length of the opaque session token value. 64
	// symbols out of a 26 letter alphabet is roughly 300 bits of entropy.
	TokenLength = 64

	tokenAlphabet = "abcdefghijklmnopqrstuvwxyz"
)

// GenerateToken produces a new opaque session token value from the OS
// CSPRNG. Uniqueness is not guaranteed here; the sessions table carries a
// unique index on the value as a backstop.
func GenerateToken() (string, error) {
	randBytes, err := pkg.GenerateRandomBytes(TokenLength)
	if err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	token := make([]byte, TokenLength)
	for i, b := range randBytes {
		token[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return string(token), nil
}
