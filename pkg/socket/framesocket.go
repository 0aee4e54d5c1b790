package socket

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ZentaChain/wasocket/pkg/metrics"
)

// FrameSocket sends and receives length prefixed frames over a byte stream.
// A socket is opened once and never reused after Close.
type FrameSocket struct {
	log zerolog.Logger

	// header is written ahead of the first outbound frame (client role).
	header []byte
	// expectHeader makes the socket read and check a header before the first
	// inbound frame (server role).
	expectHeader    bool
	peerDictVersion byte

	stateLock sync.Mutex
	conn      io.ReadWriteCloser
	opened    bool
	closed    bool
	closeErr  error

	writeLock sync.Mutex
	readLock  sync.Mutex
}

// NewFrameSocket creates a client socket that sends header with its first frame.
func NewFrameSocket(log zerolog.Logger, header []byte) *FrameSocket {
	return &FrameSocket{
		log:    log.With().Str("component", "framesocket").Logger(),
		header: append([]byte{}, header...),
	}
}

// NewServerFrameSocket creates a socket that reads and validates the client's
// connection header before the first frame.
func NewServerFrameSocket(log zerolog.Logger) *FrameSocket {
	return &FrameSocket{
		log:          log.With().Str("component", "framesocket").Str("role", "server").Logger(),
		expectHeader: true,
	}
}

// Open attaches the transport. It can only succeed once.
func (fs *FrameSocket) Open(transport io.ReadWriteCloser) error {
	fs.stateLock.Lock()
	defer fs.stateLock.Unlock()
	if fs.opened || fs.closed {
		return ErrSocketAlreadyOpen
	}
	fs.opened = true
	fs.conn = transport
	return nil
}

// IsOpen reports whether the socket is open and not yet closed.
func (fs *FrameSocket) IsOpen() bool {
	fs.stateLock.Lock()
	defer fs.stateLock.Unlock()
	return fs.opened && !fs.closed
}

// PeerDictVersion returns the dictionary version announced by the client.
// It is only set in the server role after the first ReceiveFrame.
func (fs *FrameSocket) PeerDictVersion() byte {
	fs.stateLock.Lock()
	defer fs.stateLock.Unlock()
	return fs.peerDictVersion
}

func (fs *FrameSocket) transport() (io.ReadWriteCloser, error) {
	fs.stateLock.Lock()
	defer fs.stateLock.Unlock()
	if !fs.opened || fs.closed {
		return nil, ErrSocketClosed
	}
	return fs.conn, nil
}

// Close releases the transport. Blocked calls return ErrSocketClosed.
func (fs *FrameSocket) Close() error {
	fs.stateLock.Lock()
	if fs.closed || !fs.opened {
		fs.closed = true
		fs.stateLock.Unlock()
		return nil
	}
	fs.closed = true
	conn := fs.conn
	fs.stateLock.Unlock()

	fs.closeErr = conn.Close()
	fs.log.Debug().Err(fs.closeErr).Msg("frame socket closed")
	return fs.closeErr
}

// fail closes the socket after a transport error and returns the error
// wrapped in ErrSocketClosed.
func (fs *FrameSocket) fail(op string, err error) error {
	_ = fs.Close()
	if errors.Is(err, ErrSocketClosed) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrSocketClosed, op, err)
}

// SendFrame writes one frame. The header, length prefix and payload go out
// in a single write.
func (fs *FrameSocket) SendFrame(payload []byte) error {
	if len(payload) >= FrameMaxSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, len(payload), FrameMaxSize-1)
	}
	conn, err := fs.transport()
	if err != nil {
		return err
	}

	fs.writeLock.Lock()
	defer fs.writeLock.Unlock()

	headerLength := len(fs.header)
	buf := make([]byte, headerLength+FrameLengthSize+len(payload))
	copy(buf, fs.header)
	buf[headerLength] = byte(len(payload) >> 16)
	buf[headerLength+1] = byte(len(payload) >> 8)
	buf[headerLength+2] = byte(len(payload))
	copy(buf[headerLength+FrameLengthSize:], payload)

	if _, err = conn.Write(buf); err != nil {
		return fs.fail("write frame", err)
	}
	if headerLength > 0 {
		fs.header = nil
	}
	metrics.RecordFrame(metrics.Sent, len(payload))
	fs.log.Trace().Int("length", len(payload)).Msg("sent frame")
	return nil
}

// ReceiveFrame blocks until a whole frame has arrived. A short read or EOF
// closes the socket.
func (fs *FrameSocket) ReceiveFrame() ([]byte, error) {
	conn, err := fs.transport()
	if err != nil {
		return nil, err
	}

	fs.readLock.Lock()
	defer fs.readLock.Unlock()

	if fs.expectHeader {
		if err = fs.readConnHeader(conn); err != nil {
			return nil, err
		}
		fs.expectHeader = false
	}

	var lengthBuf [FrameLengthSize]byte
	if _, err = io.ReadFull(conn, lengthBuf[:]); err != nil {
		return nil, fs.fail("read frame length", err)
	}
	length := int(lengthBuf[0])<<16 | int(lengthBuf[1])<<8 | int(lengthBuf[2])
	payload := make([]byte, length)
	if _, err = io.ReadFull(conn, payload); err != nil {
		return nil, fs.fail("read frame payload", err)
	}
	metrics.RecordFrame(metrics.Received, length)
	fs.log.Trace().Int("length", length).Msg("received frame")
	return payload, nil
}

func (fs *FrameSocket) readConnHeader(conn io.Reader) error {
	header := make([]byte, len(WAConnHeader))
	if _, err := io.ReadFull(conn, header); err != nil {
		return fs.fail("read connection header", err)
	}
	if !bytes.Equal(header[:3], WAConnHeader[:3]) {
		_ = fs.Close()
		return fmt.Errorf("%w: % x", ErrInvalidConnHeader, header)
	}
	if header[3] != WADictVersion {
		_ = fs.Close()
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, header[3])
	}
	fs.stateLock.Lock()
	fs.peerDictVersion = header[3]
	fs.stateLock.Unlock()
	return nil
}
