// Package network runs an authenticated connection: it performs the
// handshake over a frame socket and then exchanges binary nodes through
// an encrypted NoiseSocket.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/ZentaChain/wasocket/pkg/binary"
	"github.com/ZentaChain/wasocket/pkg/crypto"
	"github.com/ZentaChain/wasocket/pkg/metrics"
	"github.com/ZentaChain/wasocket/pkg/noise"
	"github.com/ZentaChain/wasocket/pkg/socket"
)

var (
	ErrSessionClosed = errors.New("network: session closed")
	ErrNilNode       = errors.New("network: nil node")
)

const (
	DefaultSendQueueSize    = 32
	DefaultHandshakeTimeout = 20 * time.Second
)

// ServerKeyRecorder is told about every server key a handshake accepted.
// *storage.KeyStore implements it.
type ServerKeyRecorder interface {
	RecordServerKey(pub []byte, leafSerial uint32, seen time.Time) error
}

// SessionConfig configures Connect and Dial.
type SessionConfig struct {
	// Static is the long-term client key pair. Required.
	Static *crypto.KeyPair
	// TrustAnchor verifies the server certificate chain. Required.
	TrustAnchor *noise.TrustAnchor
	// Payload is sent encrypted in the final handshake message.
	Payload []byte
	// Header is the connection header, socket.WAConnHeader when nil.
	Header []byte

	SendQueueSize    int
	HandshakeTimeout time.Duration

	// WebSocket is only used by Dial.
	WebSocket socket.WebSocketConfig
	// ServerKeys is optional.
	ServerKeys ServerKeyRecorder

	Random io.Reader
	Now    func() time.Time
	Log    zerolog.Logger
}

func (cfg *SessionConfig) applyDefaults() {
	if len(cfg.Header) == 0 {
		cfg.Header = socket.WAConnHeader
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = DefaultSendQueueSize
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
}

type outbound struct {
	payload []byte
	result  chan error
}

// Session is an established connection. SendNode and ReceiveNode are safe
// for concurrent use.
type Session struct {
	log  zerolog.Logger
	ns   *socket.NoiseSocket
	cert *noise.ServerCertificate

	sendQueue chan *outbound
	inbound   chan *binary.Node

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}

	errLock  sync.Mutex
	err      error
	closeErr error
}

// Dial opens a WebSocket to cfg.WebSocket.URL and connects over it.
func Dial(ctx context.Context, cfg SessionConfig) (*Session, error) {
	conn, err := socket.DialWebSocket(ctx, cfg.WebSocket)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, conn, cfg)
}

// Connect performs the handshake over transport and starts the session.
// The transport is closed if the handshake fails.
func Connect(ctx context.Context, transport io.ReadWriteCloser, cfg SessionConfig) (*Session, error) {
	cfg.applyDefaults()
	log := cfg.Log.With().Str("component", "session").Logger()

	fs := socket.NewFrameSocket(cfg.Log, cfg.Header)
	if err := fs.Open(transport); err != nil {
		_ = transport.Close()
		return nil, err
	}

	h, err := noise.NewInitiator(noise.InitiatorConfig{
		Static:      cfg.Static,
		Random:      cfg.Random,
		Prologue:    cfg.Header,
		TrustAnchor: cfg.TrustAnchor,
		Now:         cfg.Now,
		Log:         cfg.Log,
	})
	if err != nil {
		_ = fs.Close()
		return nil, err
	}

	hsCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()
	write, read, err := h.Run(hsCtx, fs, cfg.Payload)
	metrics.RecordHandshake(err == nil)
	if err != nil {
		_ = fs.Close()
		log.Warn().Err(err).Str("stage", h.Stage().String()).Msg("Handshake failed")
		return nil, fmt.Errorf("network: handshake: %w", err)
	}

	cert := h.ServerCertificate()
	if cfg.ServerKeys != nil && cert != nil {
		if err := cfg.ServerKeys.RecordServerKey(cert.Leaf.Key, cert.Leaf.Serial, cfg.Now()); err != nil {
			log.Warn().Err(err).Msg("Failed to record server key")
		}
	}

	s := &Session{
		log:       log,
		ns:        socket.NewNoiseSocket(fs, write, read),
		cert:      cert,
		sendQueue: make(chan *outbound, cfg.SendQueueSize),
		inbound:   make(chan *binary.Node, cfg.SendQueueSize),
		closed:    make(chan struct{}),
		done:      make(chan struct{}),
	}

	// Whichever loop fails first ends the session so the other one sees
	// s.closed and exits.
	var g errgroup.Group
	g.Go(func() error { return s.endOnError(s.readLoop()) })
	g.Go(func() error { return s.endOnError(s.writeLoop()) })
	go func() {
		s.shutdown(g.Wait())
		s.drainSendQueue()
		close(s.inbound)
		close(s.done)
	}()

	if cert != nil {
		log.Info().Str("server_key", crypto.Fingerprint(cert.Leaf.Key)).Msg("Session established")
	}
	return s, nil
}

func (s *Session) readLoop() error {
	for {
		plaintext, err := s.ns.ReceiveFrame()
		if err != nil {
			return err
		}
		node, err := binary.UnmarshalFrame(plaintext)
		if err != nil {
			metrics.RecordDecodeFailure()
			return fmt.Errorf("decode frame: %w", err)
		}
		select {
		case s.inbound <- node:
		case <-s.closed:
			return nil
		}
	}
}

func (s *Session) writeLoop() error {
	for {
		select {
		case out := <-s.sendQueue:
			metrics.AddSendQueueDepth(-1)
			err := s.ns.SendFrame(out.payload)
			out.result <- err
			if err != nil && !errors.Is(err, socket.ErrFrameTooLarge) {
				return err
			}
		case <-s.closed:
			return nil
		}
	}
}

func (s *Session) endOnError(err error) error {
	if err != nil {
		s.shutdown(err)
	}
	return err
}

// shutdown records cause as the terminal error and closes the socket.
// Only the first call has any effect.
func (s *Session) shutdown(cause error) {
	s.closeOnce.Do(func() {
		err := ErrSessionClosed
		if cause != nil {
			err = fmt.Errorf("%w: %w", ErrSessionClosed, cause)
			s.log.Error().Err(cause).Msg("Session failed")
		}
		s.errLock.Lock()
		s.err = err
		s.errLock.Unlock()
		close(s.closed)

		closeErr := s.ns.Close()
		s.errLock.Lock()
		s.closeErr = closeErr
		s.errLock.Unlock()
	})
}

func (s *Session) drainSendQueue() {
	for {
		select {
		case out := <-s.sendQueue:
			metrics.AddSendQueueDepth(-1)
			out.result <- s.Err()
		default:
			return
		}
	}
}

// SendNode encodes node on the calling goroutine and waits until the writer
// has sent it. It blocks while the send queue is full. If ctx ends after the
// node was queued the node may still be sent.
func (s *Session) SendNode(ctx context.Context, node *binary.Node) error {
	if node == nil {
		return ErrNilNode
	}
	payload, err := binary.Marshal(*node)
	if err != nil {
		return err
	}
	if len(payload)+noise.TagSize >= socket.FrameMaxSize {
		return fmt.Errorf("%w: %d byte node", socket.ErrFrameTooLarge, len(payload))
	}
	select {
	case <-s.closed:
		return s.Err()
	default:
	}

	out := &outbound{payload: payload, result: make(chan error, 1)}
	metrics.AddSendQueueDepth(1)
	select {
	case s.sendQueue <- out:
	case <-s.closed:
		metrics.AddSendQueueDepth(-1)
		return s.Err()
	case <-ctx.Done():
		metrics.AddSendQueueDepth(-1)
		return ctx.Err()
	}

	select {
	case err := <-out.result:
		if err != nil && !errors.Is(err, ErrSessionClosed) && !errors.Is(err, socket.ErrFrameTooLarge) {
			err = fmt.Errorf("%w: %w", ErrSessionClosed, err)
		}
		return err
	case <-s.done:
		select {
		case err := <-out.result:
			return err
		default:
			// Queued after the writer and the drain had both finished.
			metrics.AddSendQueueDepth(-1)
			return s.Err()
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReceiveNode returns the next node in arrival order. Once the session has
// ended and every buffered node was delivered it returns the terminal error.
func (s *Session) ReceiveNode(ctx context.Context) (*binary.Node, error) {
	select {
	case node, ok := <-s.inbound:
		if !ok {
			return nil, s.Err()
		}
		return node, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Nodes iterates over received nodes. The last pair carries the error that
// ended the iteration.
func (s *Session) Nodes(ctx context.Context) iter.Seq2[*binary.Node, error] {
	return func(yield func(*binary.Node, error) bool) {
		for {
			node, err := s.ReceiveNode(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(node, nil) {
				return
			}
		}
	}
}

// ServerCertificate returns the certificate details verified during the
// handshake.
func (s *Session) ServerCertificate() *noise.ServerCertificate {
	return s.cert
}

// Done is closed once both loops have exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns nil while the session is running and the terminal error
// afterwards. The error always matches ErrSessionClosed.
func (s *Session) Err() error {
	s.errLock.Lock()
	defer s.errLock.Unlock()
	return s.err
}

// Close ends the session and waits for its loops to exit. It returns the
// terminal error if the session had already failed.
func (s *Session) Close() error {
	s.shutdown(nil)
	<-s.done

	s.errLock.Lock()
	defer s.errLock.Unlock()
	var err error
	if s.err != ErrSessionClosed {
		err = s.err
	}
	return multierr.Append(err, s.closeErr)
}
