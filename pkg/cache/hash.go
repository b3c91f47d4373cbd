package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashBytes generates a SHA256 hash of data, used as the cache key for
// a module file's raw bytes.
func HashBytes(data []byte) string {
	h := sha256.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
