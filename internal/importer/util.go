package importer

import (
	"crypto/sha1"
	"encoding/hex"
)

// urlSlug derives a stable filesystem/object-safe name for a URL.
func urlSlug(raw string) string {
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])[:16]
}
