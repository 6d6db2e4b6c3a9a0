package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashPrefixLen is how many hex characters of a reader hash are retained for
// audit display.
const HashPrefixLen = 12

// ReaderHash returns the salted SHA-256 of a reader identity (an IP address)
// as lowercase hex. The same salt and identity always produce the same hash,
// which is what makes the per-reader read receipt idempotent.
func ReaderHash(salt, identity string) string {
	sum := sha256.Sum256([]byte(salt + ":" + identity))
	return hex.EncodeToString(sum[:])
}

// HashPrefix truncates a reader hash for audit display.
func HashPrefix(hash string) string {
	if len(hash) <= HashPrefixLen {
		return hash
	}
	return hash[:HashPrefixLen]
}
