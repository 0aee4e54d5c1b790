package noise

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"time"
)

// Verifier checks a signature made by the holder of pub over message.
type Verifier interface {
	Verify(pub, message, sig []byte) bool
}

// VerifierFunc adapts a function to the Verifier interface.
type VerifierFunc func(pub, message, sig []byte) bool

func (f VerifierFunc) Verify(pub, message, sig []byte) bool {
	return f(pub, message, sig)
}

// Ed25519Verifier verifies plain Ed25519 signatures. The production service
// signs with XEdDSA over its X25519 root key; callers that talk to it plug a
// matching Verifier into the TrustAnchor.
var Ed25519Verifier Verifier = VerifierFunc(func(pub, message, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
})

// TrustAnchor is the root the server certificate chain must lead to.
type TrustAnchor struct {
	PublicKey    []byte
	IssuerSerial uint32
	Verifier     Verifier
}

// ServerCertificate is the verified server certificate chain.
type ServerCertificate struct {
	Intermediate CertDetails
	Leaf         CertDetails
}

func (a *TrustAnchor) verifier() Verifier {
	if a.Verifier != nil {
		return a.Verifier
	}
	return Ed25519Verifier
}

func untrusted(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUntrustedCertificate, fmt.Sprintf(format, args...))
}

// VerifyChain checks that raw is a chain issued by the anchor whose leaf key
// is serverStatic. A non-zero now also enforces the validity windows.
func (a *TrustAnchor) VerifyChain(raw, serverStatic []byte, now time.Time) (*ServerCertificate, error) {
	if a == nil || len(a.PublicKey) == 0 {
		return nil, untrusted("no trust anchor configured")
	}
	chain, err := UnmarshalCertChain(raw)
	if err != nil {
		return nil, err
	}
	if chain.Intermediate == nil || chain.Leaf == nil {
		return nil, fmt.Errorf("%w: incomplete certificate chain", ErrMalformedMessage)
	}

	v := a.verifier()
	if !v.Verify(a.PublicKey, chain.Intermediate.Details, chain.Intermediate.Signature) {
		return nil, untrusted("invalid intermediate signature")
	}
	intermediate, err := UnmarshalCertDetails(chain.Intermediate.Details)
	if err != nil {
		return nil, err
	}
	if intermediate.IssuerSerial != a.IssuerSerial {
		return nil, untrusted("intermediate issuer serial %d, expected %d", intermediate.IssuerSerial, a.IssuerSerial)
	}
	if len(intermediate.Key) != 32 {
		return nil, untrusted("intermediate key is %d bytes", len(intermediate.Key))
	}

	if !v.Verify(intermediate.Key, chain.Leaf.Details, chain.Leaf.Signature) {
		return nil, untrusted("invalid leaf signature")
	}
	leaf, err := UnmarshalCertDetails(chain.Leaf.Details)
	if err != nil {
		return nil, err
	}
	if leaf.IssuerSerial != intermediate.Serial {
		return nil, untrusted("leaf issuer serial %d, expected %d", leaf.IssuerSerial, intermediate.Serial)
	}
	if !bytes.Equal(leaf.Key, serverStatic) {
		return nil, untrusted("leaf key does not match server static key")
	}

	if !now.IsZero() {
		for name, d := range map[string]*CertDetails{"intermediate": intermediate, "leaf": leaf} {
			if err := checkValidity(name, d, now); err != nil {
				return nil, err
			}
		}
	}
	return &ServerCertificate{Intermediate: *intermediate, Leaf: *leaf}, nil
}

func checkValidity(name string, d *CertDetails, now time.Time) error {
	ts := uint64(now.Unix())
	if d.NotBefore != 0 && ts < d.NotBefore {
		return untrusted("%s certificate not valid before %d", name, d.NotBefore)
	}
	if d.NotAfter != 0 && ts > d.NotAfter {
		return untrusted("%s certificate expired at %d", name, d.NotAfter)
	}
	return nil
}
