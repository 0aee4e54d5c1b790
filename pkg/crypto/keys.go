package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// KeySize is the length of X25519 public and private keys.
const KeySize = curve25519.ScalarSize

var ErrInvalidKey = errors.New("crypto: invalid key")

// KeyPair is an X25519 key pair used for the static identity and the
// per-connection ephemeral key.
type KeyPair struct {
	Pub  [KeySize]byte
	Priv [KeySize]byte
}

// NewKeyPairFromPrivateKey clamps priv and derives its public key.
func NewKeyPairFromPrivateKey(priv [KeySize]byte) (*KeyPair, error) {
	kp := &KeyPair{Priv: priv}
	kp.Priv[0] &= 248
	kp.Priv[31] &= 127
	kp.Priv[31] |= 64

	pub, err := curve25519.X25519(kp.Priv[:], curve25519.Basepoint)
	if err != nil {
		kp.Zero()
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	copy(kp.Pub[:], pub)
	return kp, nil
}

// GenerateKeyPair reads a private key from r, or crypto/rand when r is nil.
func GenerateKeyPair(r io.Reader) (*KeyPair, error) {
	if r == nil {
		r = rand.Reader
	}
	var priv [KeySize]byte
	if _, err := io.ReadFull(r, priv[:]); err != nil {
		return nil, fmt.Errorf("crypto: read private key: %w", err)
	}
	defer Zero(priv[:])
	return NewKeyPairFromPrivateKey(priv)
}

// DH computes the X25519 shared secret with a peer public key. Low order
// peer points yield an error instead of an all-zero secret.
func (kp *KeyPair) DH(peer []byte) ([]byte, error) {
	if len(peer) != KeySize {
		return nil, fmt.Errorf("%w: public key is %d bytes", ErrInvalidKey, len(peer))
	}
	secret, err := curve25519.X25519(kp.Priv[:], peer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return secret, nil
}

// Zero wipes the private key.
func (kp *KeyPair) Zero() {
	if kp == nil {
		return
	}
	Zero(kp.Priv[:])
}

// Zero overwrites b with zeros.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
