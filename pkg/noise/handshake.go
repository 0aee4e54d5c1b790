// Package noise implements the client side of the Noise XX handshake used to
// secure the frame socket, and the per-direction cipher states it produces.
package noise

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZentaChain/wasocket/pkg/crypto"
)

// Stage is the position of an Initiator in the handshake.
type Stage int

const (
	StageStart Stage = iota
	StageSentMessage1
	StageReceivedMessage2
	StageSentMessage3
	StageComplete
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageSentMessage1:
		return "sent-message-1"
	case StageReceivedMessage2:
		return "received-message-2"
	case StageSentMessage3:
		return "sent-message-3"
	case StageComplete:
		return "complete"
	case StageFailed:
		return "failed"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// FrameConn is the framed transport the handshake runs over.
type FrameConn interface {
	SendFrame(payload []byte) error
	ReceiveFrame() ([]byte, error)
	Close() error
}

// InitiatorConfig configures a client handshake.
type InitiatorConfig struct {
	// Static is the long-term identity key. The Initiator never wipes it.
	Static *crypto.KeyPair
	// Ephemeral overrides the per-connection key; it is wiped after Split.
	Ephemeral *crypto.KeyPair
	// Random is the source for the ephemeral key when Ephemeral is nil.
	Random io.Reader
	// Prologue is mixed into the handshake hash before the first message.
	// It must equal the connection header sent on the wire.
	Prologue []byte
	// TrustAnchor validates the server certificate chain.
	TrustAnchor *TrustAnchor
	// Now enables certificate validity checks when set.
	Now func() time.Time
	Log zerolog.Logger
}

// Initiator drives the client side of the handshake one message at a time.
type Initiator struct {
	stage     Stage
	ss        SymmetricState
	static    *crypto.KeyPair
	ephemeral *crypto.KeyPair
	anchor    *TrustAnchor
	now       func() time.Time
	log       zerolog.Logger

	remoteEphemeral []byte
	remoteStatic    []byte
	cert            *ServerCertificate
}

// NewInitiator validates cfg, generates the ephemeral key if needed and
// starts the symmetric state.
func NewInitiator(cfg InitiatorConfig) (*Initiator, error) {
	if cfg.Static == nil {
		return nil, fmt.Errorf("%w: static key pair is required", ErrInvalidKeyLength)
	}
	if len(cfg.Prologue) == 0 {
		return nil, errors.New("noise: prologue is required")
	}
	if cfg.TrustAnchor == nil {
		return nil, fmt.Errorf("%w: trust anchor is required", ErrUntrustedCertificate)
	}
	ephemeral := cfg.Ephemeral
	if ephemeral == nil {
		var err error
		if ephemeral, err = crypto.GenerateKeyPair(cfg.Random); err != nil {
			return nil, err
		}
	}
	h := &Initiator{
		stage:     StageStart,
		static:    cfg.Static,
		ephemeral: ephemeral,
		anchor:    cfg.TrustAnchor,
		now:       cfg.Now,
		log:       cfg.Log.With().Str("component", "noise").Logger(),
	}
	if err := h.ss.Start(NoiseStartPattern, cfg.Prologue); err != nil {
		ephemeral.Zero()
		return nil, err
	}
	return h, nil
}

// Stage returns the current handshake stage.
func (h *Initiator) Stage() Stage {
	return h.stage
}

// ServerCertificate returns the verified chain once message 2 was accepted.
func (h *Initiator) ServerCertificate() *ServerCertificate {
	return h.cert
}

func (h *Initiator) fail(err error) error {
	stage := h.stage
	h.stage = StageFailed
	h.wipe()
	h.log.Debug().Str("stage", stage.String()).Err(err).Msg("handshake failed")
	return &HandshakeError{Stage: stage, Err: err}
}

func (h *Initiator) wipe() {
	h.ss.Zero()
	h.ephemeral.Zero()
}

func (h *Initiator) expect(stage Stage) error {
	if h.stage != stage {
		return h.fail(fmt.Errorf("%w: at %s, expected %s", ErrUnexpectedStage, h.stage, stage))
	}
	return nil
}

// WriteMessage1 returns the ClientHello frame carrying the ephemeral key.
func (h *Initiator) WriteMessage1() ([]byte, error) {
	if err := h.expect(StageStart); err != nil {
		return nil, err
	}
	h.ss.MixHash(h.ephemeral.Pub[:])
	msg := &HandshakeMessage{ClientHello: &Hello{Ephemeral: cloneBytes(h.ephemeral.Pub[:])}}
	h.stage = StageSentMessage1
	h.log.Debug().Str("ephemeral", crypto.Fingerprint(h.ephemeral.Pub[:])).Msg("sent client hello")
	return msg.Marshal(), nil
}

// ReadMessage2 processes the ServerHello frame and verifies the server's
// certificate chain.
func (h *Initiator) ReadMessage2(frame []byte) (*ServerCertificate, error) {
	if err := h.expect(StageSentMessage1); err != nil {
		return nil, err
	}
	msg, err := UnmarshalHandshakeMessage(frame)
	if err != nil {
		return nil, h.fail(err)
	}
	hello := msg.ServerHello
	if hello == nil {
		return nil, h.fail(fmt.Errorf("%w: missing server hello", ErrMalformedMessage))
	}
	if len(hello.Ephemeral) != crypto.KeySize {
		return nil, h.fail(fmt.Errorf("%w: server ephemeral is %d bytes", ErrInvalidKeyLength, len(hello.Ephemeral)))
	}
	if len(hello.Static) == 0 || len(hello.Payload) == 0 {
		return nil, h.fail(fmt.Errorf("%w: server hello is missing fields", ErrMalformedMessage))
	}
	h.remoteEphemeral = cloneBytes(hello.Ephemeral)

	h.ss.MixHash(h.remoteEphemeral)
	if err = h.ss.MixSharedSecretIntoKey(h.ephemeral, h.remoteEphemeral); err != nil {
		return nil, h.fail(err)
	}
	remoteStatic, err := h.ss.DecryptAndHash(hello.Static)
	if err != nil {
		return nil, h.fail(err)
	}
	if len(remoteStatic) != crypto.KeySize {
		return nil, h.fail(fmt.Errorf("%w: server static is %d bytes", ErrInvalidKeyLength, len(remoteStatic)))
	}
	h.remoteStatic = remoteStatic
	if err = h.ss.MixSharedSecretIntoKey(h.ephemeral, h.remoteStatic); err != nil {
		return nil, h.fail(err)
	}
	certPayload, err := h.ss.DecryptAndHash(hello.Payload)
	if err != nil {
		return nil, h.fail(err)
	}

	var now time.Time
	if h.now != nil {
		now = h.now()
	}
	cert, err := h.anchor.VerifyChain(certPayload, h.remoteStatic, now)
	if err != nil {
		return nil, h.fail(err)
	}
	h.cert = cert
	h.stage = StageReceivedMessage2
	h.log.Debug().
		Str("server_static", crypto.Fingerprint(h.remoteStatic)).
		Uint32("leaf_serial", cert.Leaf.Serial).
		Msg("verified server hello")
	return cert, nil
}

// WriteMessage3 returns the ClientFinish frame with the encrypted static key
// and the encrypted client payload.
func (h *Initiator) WriteMessage3(payload []byte) ([]byte, error) {
	if err := h.expect(StageReceivedMessage2); err != nil {
		return nil, err
	}
	encryptedStatic, err := h.ss.EncryptAndHash(h.static.Pub[:])
	if err != nil {
		return nil, h.fail(err)
	}
	if err = h.ss.MixSharedSecretIntoKey(h.static, h.remoteEphemeral); err != nil {
		return nil, h.fail(err)
	}
	encryptedPayload, err := h.ss.EncryptAndHash(payload)
	if err != nil {
		return nil, h.fail(err)
	}
	msg := &HandshakeMessage{ClientFinish: &Finish{Static: encryptedStatic, Payload: encryptedPayload}}
	h.stage = StageSentMessage3
	return msg.Marshal(), nil
}

// Split returns the transport cipher states and wipes the handshake secrets.
func (h *Initiator) Split() (write, read *CipherState, err error) {
	if err = h.expect(StageSentMessage3); err != nil {
		return nil, nil, err
	}
	write, read, err = h.ss.Split()
	if err != nil {
		return nil, nil, h.fail(err)
	}
	h.wipe()
	h.stage = StageComplete
	return write, read, nil
}

// Run performs the whole handshake over conn. Cancelling ctx closes conn so
// a blocked ReceiveFrame returns.
func (h *Initiator) Run(ctx context.Context, conn FrameConn, payload []byte) (write, read *CipherState, err error) {
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()
	defer func() {
		if err != nil && ctx.Err() != nil {
			err = fmt.Errorf("%w (%w)", ctx.Err(), err)
		}
	}()

	msg1, err := h.WriteMessage1()
	if err != nil {
		return nil, nil, err
	}
	if err = conn.SendFrame(msg1); err != nil {
		return nil, nil, h.fail(fmt.Errorf("send client hello: %w", err))
	}
	msg2, err := conn.ReceiveFrame()
	if err != nil {
		return nil, nil, h.fail(fmt.Errorf("receive server hello: %w", err))
	}
	if _, err = h.ReadMessage2(msg2); err != nil {
		return nil, nil, err
	}
	msg3, err := h.WriteMessage3(payload)
	if err != nil {
		return nil, nil, err
	}
	if err = conn.SendFrame(msg3); err != nil {
		return nil, nil, h.fail(fmt.Errorf("send client finish: %w", err))
	}
	return h.Split()
}
