// Package secure provides the password hash and random identifier
// primitives used by authentication and the session store.
package secure

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hasher derives password hashes with HMAC-SHA256 keyed by a single
// process-wide secret. The transform is deterministic, so credential checks
// are a plain comparison of hashes.
type Hasher struct {
	secret []byte
}

func NewHasher(secret string) *Hasher {
	return &Hasher{secret: []byte(secret)}
}

// Hash returns the hex-encoded HMAC of the plaintext.
func (h *Hasher) Hash(plaintext string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

// Match compares a candidate plaintext against a stored hash.
func (h *Hasher) Match(candidate, storedHash string) bool {
	return hmac.Equal([]byte(h.Hash(candidate)), []byte(storedHash))
}

// RandomHex returns n random bytes encoded as a hex string.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
