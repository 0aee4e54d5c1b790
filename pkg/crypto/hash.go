package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Hash generates a BLAKE2b-256 hash
func Hash(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// HashString generates a BLAKE2b hash and returns hex string
func HashString(data []byte) string {
	return hex.EncodeToString(Hash(data))
}

// Fingerprint identifies a public key in logs without revealing it.
// It is the first 8 bytes of the BLAKE2b-256 hash, hex encoded.
func Fingerprint(pub []byte) string {
	if len(pub) == 0 {
		return ""
	}
	sum := blake2b.Sum256(pub)
	return hex.EncodeToString(sum[:8])
}
