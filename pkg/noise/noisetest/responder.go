// Package noisetest provides the server side of the handshake for tests and
// local loopback runs. It signs its own certificate chain with a throwaway
// Ed25519 root, so clients must trust Responder.TrustAnchor.
package noisetest

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/ZentaChain/wasocket/pkg/crypto"
	"github.com/ZentaChain/wasocket/pkg/noise"
)

const (
	RootSerial         = 0
	IntermediateSerial = 1
	LeafSerial         = 2
)

// Responder answers a client handshake. Hooks let tests corrupt the
// exchange at well defined points.
type Responder struct {
	Static   *crypto.KeyPair
	Prologue []byte
	Random   io.Reader

	// TamperServerHello is called on the outgoing message 2 before encoding.
	TamperServerHello func(msg *noise.HandshakeMessage)
	// CertChain overrides the encoded chain sent in message 2.
	CertChain []byte

	root   ed25519.PrivateKey
	anchor noise.TrustAnchor
	chain  []byte
}

// Result is what the responder learned from a completed handshake.
type Result struct {
	Write        *noise.CipherState
	Read         *noise.CipherState
	ClientStatic []byte
	Payload      []byte
}

// NewResponder creates a responder with a fresh static key and certificate
// chain drawn from random, or crypto/rand when random is nil.
func NewResponder(prologue []byte, random io.Reader) (*Responder, error) {
	if random == nil {
		random = rand.Reader
	}
	static, err := crypto.GenerateKeyPair(random)
	if err != nil {
		return nil, err
	}
	rootPub, rootPriv, err := ed25519.GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("noisetest: generate root key: %w", err)
	}
	interPub, interPriv, err := ed25519.GenerateKey(random)
	if err != nil {
		return nil, fmt.Errorf("noisetest: generate intermediate key: %w", err)
	}

	r := &Responder{
		Static:   static,
		Prologue: prologue,
		Random:   random,
		root:     rootPriv,
		anchor: noise.TrustAnchor{
			PublicKey:    rootPub,
			IssuerSerial: RootSerial,
			Verifier:     noise.Ed25519Verifier,
		},
	}
	r.chain = BuildChain(rootPriv, interPriv, interPub, static.Pub[:], RootSerial)
	return r, nil
}

// BuildChain signs an intermediate certificate with root and a leaf
// certificate for leafKey with the intermediate key.
func BuildChain(root, inter ed25519.PrivateKey, interPub ed25519.PublicKey, leafKey []byte, rootSerial uint32) []byte {
	interDetails := (&noise.CertDetails{
		Serial:       IntermediateSerial,
		IssuerSerial: rootSerial,
		Key:          interPub,
	}).Marshal()
	leafDetails := (&noise.CertDetails{
		Serial:       LeafSerial,
		IssuerSerial: IntermediateSerial,
		Key:          leafKey,
	}).Marshal()
	chain := &noise.CertChain{
		Intermediate: &noise.NoiseCertificate{Details: interDetails, Signature: ed25519.Sign(root, interDetails)},
		Leaf:         &noise.NoiseCertificate{Details: leafDetails, Signature: ed25519.Sign(inter, leafDetails)},
	}
	return chain.Marshal()
}

// TrustAnchor returns the anchor that validates this responder's chain.
func (r *Responder) TrustAnchor() *noise.TrustAnchor {
	anchor := r.anchor
	return &anchor
}

// RootKey returns the Ed25519 root private key, for tests that forge chains.
func (r *Responder) RootKey() ed25519.PrivateKey {
	return r.root
}

// Handshake runs the responder side over conn. The returned cipher states
// are the mirror of the client's: Write encrypts what the client reads.
func (r *Responder) Handshake(conn noise.FrameConn) (*Result, error) {
	var ss noise.SymmetricState
	if err := ss.Start(noise.NoiseStartPattern, r.Prologue); err != nil {
		return nil, err
	}
	defer ss.Zero()

	frame, err := conn.ReceiveFrame()
	if err != nil {
		return nil, fmt.Errorf("noisetest: receive client hello: %w", err)
	}
	msg, err := noise.UnmarshalHandshakeMessage(frame)
	if err != nil {
		return nil, err
	}
	if msg.ClientHello == nil || len(msg.ClientHello.Ephemeral) != crypto.KeySize {
		return nil, fmt.Errorf("%w: bad client hello", noise.ErrMalformedMessage)
	}
	clientEphemeral := msg.ClientHello.Ephemeral
	ss.MixHash(clientEphemeral)

	ephemeral, err := crypto.GenerateKeyPair(r.Random)
	if err != nil {
		return nil, err
	}
	defer ephemeral.Zero()
	ss.MixHash(ephemeral.Pub[:])
	if err = ss.MixSharedSecretIntoKey(ephemeral, clientEphemeral); err != nil {
		return nil, err
	}
	encStatic, err := ss.EncryptAndHash(r.Static.Pub[:])
	if err != nil {
		return nil, err
	}
	if err = ss.MixSharedSecretIntoKey(r.Static, clientEphemeral); err != nil {
		return nil, err
	}
	chain := r.chain
	if r.CertChain != nil {
		chain = r.CertChain
	}
	encChain, err := ss.EncryptAndHash(chain)
	if err != nil {
		return nil, err
	}
	reply := &noise.HandshakeMessage{ServerHello: &noise.Hello{
		Ephemeral: ephemeral.Pub[:],
		Static:    encStatic,
		Payload:   encChain,
	}}
	if r.TamperServerHello != nil {
		r.TamperServerHello(reply)
	}
	if err = conn.SendFrame(reply.Marshal()); err != nil {
		return nil, fmt.Errorf("noisetest: send server hello: %w", err)
	}

	frame, err = conn.ReceiveFrame()
	if err != nil {
		return nil, fmt.Errorf("noisetest: receive client finish: %w", err)
	}
	msg, err = noise.UnmarshalHandshakeMessage(frame)
	if err != nil {
		return nil, err
	}
	if msg.ClientFinish == nil {
		return nil, fmt.Errorf("%w: missing client finish", noise.ErrMalformedMessage)
	}
	clientStatic, err := ss.DecryptAndHash(msg.ClientFinish.Static)
	if err != nil {
		return nil, err
	}
	if err = ss.MixSharedSecretIntoKey(ephemeral, clientStatic); err != nil {
		return nil, err
	}
	payload, err := ss.DecryptAndHash(msg.ClientFinish.Payload)
	if err != nil {
		return nil, err
	}
	read, write, err := ss.Split()
	if err != nil {
		return nil, err
	}
	return &Result{Write: write, Read: read, ClientStatic: clientStatic, Payload: payload}, nil
}
