package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateSessionToken creates a new opaque session token and its hash.
// The real token is shown to the client once; only the hash is stored.
func GenerateSessionToken() (string, string, error) {
	// 32 random bytes from crypto/rand
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	realToken := fmt.Sprintf("pa_sess_%s", hex.EncodeToString(bytes))
	return realToken, HashToken(realToken), nil
}

// HashToken is the SHA256 hex digest stored and looked up in the token table.
// We never compare or persist plain tokens.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
