package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair(nil)
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	if kp.Pub == [KeySize]byte{} {
		t.Error("public key is all zeros")
	}
	if kp.Priv[0]&7 != 0 || kp.Priv[31]&128 != 0 || kp.Priv[31]&64 == 0 {
		t.Error("private key is not clamped")
	}
}

func TestGenerateKeyPairDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, KeySize)
	a, err := GenerateKeyPair(bytes.NewReader(seed))
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	b, err := GenerateKeyPair(bytes.NewReader(seed))
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	if a.Pub != b.Pub || a.Priv != b.Priv {
		t.Error("same seed produced different key pairs")
	}
}

func TestGenerateKeyPairShortRead(t *testing.T) {
	if _, err := GenerateKeyPair(bytes.NewReader([]byte{1, 2, 3})); err == nil {
		t.Error("expected error for short random source")
	}
}

func TestDHAgreement(t *testing.T) {
	alice, _ := GenerateKeyPair(nil)
	bob, _ := GenerateKeyPair(nil)

	s1, err := alice.DH(bob.Pub[:])
	if err != nil {
		t.Fatalf("DH() error = %v", err)
	}
	s2, err := bob.DH(alice.Pub[:])
	if err != nil {
		t.Fatalf("DH() error = %v", err)
	}
	if !bytes.Equal(s1, s2) {
		t.Error("shared secrets differ")
	}
}

func TestDHRejectsBadPeers(t *testing.T) {
	kp, _ := GenerateKeyPair(nil)
	tests := []struct {
		name string
		peer []byte
	}{
		{"short key", make([]byte, 31)},
		{"long key", make([]byte, 33)},
		{"low order point", make([]byte, KeySize)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := kp.DH(tt.peer)
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("DH() error = %v, want ErrInvalidKey", err)
			}
		})
	}
}

func TestKeyPairZero(t *testing.T) {
	kp, _ := GenerateKeyPair(nil)
	kp.Zero()
	if kp.Priv != [KeySize]byte{} {
		t.Error("private key not wiped")
	}
	var nilPair *KeyPair
	nilPair.Zero()
}

func TestNewGCM(t *testing.T) {
	if _, err := NewGCM(make([]byte, 16)); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("NewGCM(16 bytes) error = %v, want ErrInvalidKey", err)
	}
	aead, err := NewGCM(make([]byte, AESKeySize))
	if err != nil {
		t.Fatalf("NewGCM() error = %v", err)
	}
	if aead.NonceSize() != 12 || aead.Overhead() != 16 {
		t.Errorf("unexpected GCM parameters: nonce %d overhead %d", aead.NonceSize(), aead.Overhead())
	}
}
