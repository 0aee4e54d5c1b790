package socket

import (
	"fmt"
	"sync"

	"github.com/ZentaChain/wasocket/pkg/noise"
)

// NoiseSocket encrypts frames with the transport keys from the handshake.
// Each direction's counter only advances with frames actually sent or
// received, so the order of nonces matches the order on the wire.
type NoiseSocket struct {
	fs *FrameSocket

	writeLock   sync.Mutex
	writeCipher *noise.CipherState
	readLock    sync.Mutex
	readCipher  *noise.CipherState

	closeOnce sync.Once
	closeErr  error
}

// NewNoiseSocket takes ownership of fs and both cipher states.
func NewNoiseSocket(fs *FrameSocket, write, read *noise.CipherState) *NoiseSocket {
	return &NoiseSocket{fs: fs, writeCipher: write, readCipher: read}
}

// SendFrame encrypts plaintext and sends it as one frame.
func (ns *NoiseSocket) SendFrame(plaintext []byte) error {
	ns.writeLock.Lock()
	defer ns.writeLock.Unlock()
	if !ns.fs.IsOpen() {
		return ErrSocketClosed
	}
	if len(plaintext)+noise.TagSize >= FrameMaxSize {
		return fmt.Errorf("%w: %d bytes after encryption", ErrFrameTooLarge, len(plaintext)+noise.TagSize)
	}
	ciphertext, err := ns.writeCipher.Encrypt(nil, plaintext)
	if err != nil {
		return err
	}
	return ns.fs.SendFrame(ciphertext)
}

// ReceiveFrame reads and decrypts one frame.
func (ns *NoiseSocket) ReceiveFrame() ([]byte, error) {
	ns.readLock.Lock()
	defer ns.readLock.Unlock()
	ciphertext, err := ns.fs.ReceiveFrame()
	if err != nil {
		return nil, err
	}
	return ns.readCipher.Decrypt(nil, ciphertext)
}

// IsOpen reports whether the underlying frame socket is open.
func (ns *NoiseSocket) IsOpen() bool {
	return ns.fs.IsOpen()
}

// Close closes the frame socket and wipes both transport keys.
func (ns *NoiseSocket) Close() error {
	ns.closeOnce.Do(func() {
		ns.closeErr = ns.fs.Close()
		// Blocked calls return once the transport is gone.
		ns.writeLock.Lock()
		ns.writeCipher.Zero()
		ns.writeLock.Unlock()
		ns.readLock.Lock()
		ns.readCipher.Zero()
		ns.readLock.Unlock()
	})
	return ns.closeErr
}
