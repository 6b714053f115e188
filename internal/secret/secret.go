// Package secret generates refresh-token secrets and their storable
// fingerprints.
package secret

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// secretBytes gives 256 bits of entropy per generated secret.
const secretBytes = 32

// Generate returns an opaque, URL-safe secret from a CSPRNG source.
func Generate() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Hash computes the keyed HMAC-SHA256 fingerprint of a secret as lowercase
// hex. It is deterministic for a given (secret, key) pair; an empty secret
// hashes to the HMAC of the empty string rather than failing.
func Hash(secret, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(secret))
	return hex.EncodeToString(mac.Sum(nil))
}
