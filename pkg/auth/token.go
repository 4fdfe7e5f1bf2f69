package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

const (
	// TokenLength is the number of random bytes in a session or CSRF token
	// (32 bytes = 256 bits)
	TokenLength = 32
)

// GenerateToken produces an opaque URL-safe token from byteLength random
// bytes. Output is base64url without padding, so a 32-byte token is a fixed
// 43 characters. The only failure mode is the entropy source being
// unavailable.
func GenerateToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		byteLength = TokenLength
	}

	randomBytes := make([]byte, byteLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// NewID produces an opaque unique identifier for users and other records.
func NewID() string {
	return uuid.NewString()
}
