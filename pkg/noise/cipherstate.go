package noise

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/ZentaChain/wasocket/pkg/crypto"
)

// TagSize is the AES-GCM authentication tag appended to every ciphertext.
const TagSize = 16

// CipherState is one direction of the transport: an AES-256-GCM key and a
// counter that is used as the nonce of every message exactly once.
//
// Both directions use the 12 byte IV 00000000 00000000 || counter (big endian).
type CipherState struct {
	mu        sync.Mutex
	aead      cipher.AEAD
	key       [crypto.AESKeySize]byte
	counter   uint32
	exhausted bool
}

// NewCipherState creates a cipher state with the counter at zero.
func NewCipherState(key []byte) (*CipherState, error) {
	if len(key) != crypto.AESKeySize {
		return nil, fmt.Errorf("%w: cipher key is %d bytes", ErrInvalidKeyLength, len(key))
	}
	aead, err := crypto.NewGCM(key)
	if err != nil {
		return nil, err
	}
	cs := &CipherState{aead: aead}
	copy(cs.key[:], key)
	return cs, nil
}

// nextIV returns the IV for the current counter and advances it. Running out
// of nonces would mean reusing one, so it panics instead.
func (cs *CipherState) nextIV() []byte {
	if cs.exhausted {
		panic("noise: cipher state nonce space exhausted")
	}
	iv := make([]byte, 12)
	binary.BigEndian.PutUint32(iv[8:], cs.counter)
	if cs.counter == math.MaxUint32 {
		cs.exhausted = true
	} else {
		cs.counter++
	}
	return iv
}

// Encrypt seals plaintext with ad as additional data.
func (cs *CipherState) Encrypt(ad, plaintext []byte) ([]byte, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.aead == nil {
		return nil, ErrCipherWiped
	}
	return cs.aead.Seal(nil, cs.nextIV(), plaintext, ad), nil
}

// Decrypt opens ciphertext with ad as additional data. The counter advances
// even when authentication fails, since the peer consumed the nonce too.
func (cs *CipherState) Decrypt(ad, ciphertext []byte) ([]byte, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.aead == nil {
		return nil, ErrCipherWiped
	}
	plaintext, err := cs.aead.Open(nil, cs.nextIV(), ciphertext, ad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	return plaintext, nil
}

// Zero wipes the key. Any later Encrypt or Decrypt fails with ErrCipherWiped.
func (cs *CipherState) Zero() {
	if cs == nil {
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	crypto.Zero(cs.key[:])
	cs.aead = nil
	cs.counter = 0
}
