package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// ContentHash hashes normalized submission content for proof metadata.
// The full hash is stored so duplicate payloads can be correlated later.
func ContentHash(normalized string) string {
	return SHA256Hex(normalized)
}

// ShortHash returns the first n hex characters of SHA256(input). Used to
// derive a stable, non-reversible origin key from a client IP when no origin
// identifier is supplied.
func ShortHash(input string, n int) string {
	full := SHA256Hex(input)
	if n > len(full) {
		return full
	}
	return full[:n]
}
