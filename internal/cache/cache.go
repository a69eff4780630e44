package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key derives a cache key from embedded text
func Key(text string) string {
	hash := sha256.Sum256([]byte(text))
	return "claimfold:v1:" + hex.EncodeToString(hash[:])
}
