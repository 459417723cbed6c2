package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// NewOneTimeToken returns a random token for email links and its SHA256 hash.
// The raw token goes into the email, the hash is stored in the DB.
func NewOneTimeToken() (token string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(b)
	return token, HashToken(token), nil
}

// HashToken calculates the SHA256 hash of a token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
