// Package cache stores captured screenshots so repeated scans of the same page
// within a short window do not hit the capture service again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a fixed-length cache key from a namespace and an arbitrary identifier
func Key(namespace, id string) string {
	hash := sha256.Sum256([]byte(id))
	return "darklens:" + namespace + ":v1:" + hex.EncodeToString(hash[:])
}
