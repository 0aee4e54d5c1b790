package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// AESKeySize is the AES-256 key length used by every transport cipher.
const AESKeySize = 32

// NewGCM returns an AES-256-GCM AEAD for key.
func NewGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: AES key is %d bytes", ErrInvalidKey, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: create GCM: %w", err)
	}
	return aead, nil
}
