package noise

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/ZentaChain/wasocket/pkg/crypto"
)

// NoiseStartPattern names the protocol. It is exactly 32 bytes, so it is
// used as the initial hash directly.
const NoiseStartPattern = "Noise_XX_25519_AESGCM_SHA256\x00\x00\x00\x00"

// SymmetricState holds the handshake hash, the chaining key (salt) and the
// cipher state used to encrypt handshake fields.
type SymmetricState struct {
	hash   [sha256.Size]byte
	salt   [sha256.Size]byte
	cipher *CipherState
}

// Start initializes the state from the protocol name and mixes in prologue.
func (ss *SymmetricState) Start(pattern string, prologue []byte) error {
	if len(pattern) == sha256.Size {
		copy(ss.hash[:], pattern)
	} else {
		ss.hash = sha256.Sum256([]byte(pattern))
	}
	ss.salt = ss.hash
	cs, err := NewCipherState(ss.hash[:])
	if err != nil {
		return err
	}
	ss.cipher = cs
	ss.MixHash(prologue)
	return nil
}

// Hash returns a copy of the current handshake hash.
func (ss *SymmetricState) Hash() []byte {
	out := make([]byte, sha256.Size)
	copy(out, ss.hash[:])
	return out
}

// MixHash sets hash = SHA-256(hash || data).
func (ss *SymmetricState) MixHash(data []byte) {
	h := sha256.New()
	h.Write(ss.hash[:])
	h.Write(data)
	h.Sum(ss.hash[:0])
}

// MixSharedSecretIntoKey performs X25519 between the local key pair and the
// remote public key and mixes the result into the salt and cipher key.
func (ss *SymmetricState) MixSharedSecretIntoKey(local *crypto.KeyPair, remote []byte) error {
	if len(remote) != crypto.KeySize {
		return fmt.Errorf("%w: remote public key is %d bytes", ErrInvalidKeyLength, len(remote))
	}
	secret, err := local.DH(remote)
	if err != nil {
		return err
	}
	defer crypto.Zero(secret)
	return ss.mixIntoKey(secret)
}

func (ss *SymmetricState) mixIntoKey(secret []byte) error {
	salt, key, err := extractAndExpand(ss.salt[:], secret)
	if err != nil {
		return err
	}
	defer crypto.Zero(key)
	copy(ss.salt[:], salt)
	crypto.Zero(salt)

	cs, err := NewCipherState(key)
	if err != nil {
		return err
	}
	ss.cipher.Zero()
	ss.cipher = cs
	return nil
}

// EncryptAndHash encrypts plaintext with the handshake hash as additional
// data, then mixes the ciphertext into the hash.
func (ss *SymmetricState) EncryptAndHash(plaintext []byte) ([]byte, error) {
	ciphertext, err := ss.cipher.Encrypt(ss.hash[:], plaintext)
	if err != nil {
		return nil, err
	}
	ss.MixHash(ciphertext)
	return ciphertext, nil
}

// DecryptAndHash is the inverse of EncryptAndHash.
func (ss *SymmetricState) DecryptAndHash(ciphertext []byte) ([]byte, error) {
	plaintext, err := ss.cipher.Decrypt(ss.hash[:], ciphertext)
	if err != nil {
		return nil, err
	}
	ss.MixHash(ciphertext)
	return plaintext, nil
}

// Split derives the two transport cipher states. The first is used by the
// initiator for writing and by the responder for reading.
func (ss *SymmetricState) Split() (first, second *CipherState, err error) {
	k1, k2, err := extractAndExpand(ss.salt[:], nil)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.Zero(k1)
	defer crypto.Zero(k2)
	if first, err = NewCipherState(k1); err != nil {
		return nil, nil, err
	}
	if second, err = NewCipherState(k2); err != nil {
		return nil, nil, err
	}
	return first, second, nil
}

// Zero wipes the hash, salt and handshake cipher key.
func (ss *SymmetricState) Zero() {
	crypto.Zero(ss.hash[:])
	crypto.Zero(ss.salt[:])
	ss.cipher.Zero()
	ss.cipher = nil
}

func extractAndExpand(salt, data []byte) (write, read []byte, err error) {
	h := hkdf.New(sha256.New, data, salt, nil)
	write = make([]byte, 32)
	read = make([]byte, 32)
	if _, err = io.ReadFull(h, write); err != nil {
		return nil, nil, fmt.Errorf("noise: derive write key: %w", err)
	}
	if _, err = io.ReadFull(h, read); err != nil {
		return nil, nil, fmt.Errorf("noise: derive read key: %w", err)
	}
	return write, read, nil
}
