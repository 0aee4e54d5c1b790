package noise

import (
	"errors"
	"fmt"
)

var (
	ErrUnexpectedStage      = errors.New("noise: operation not valid in current handshake stage")
	ErrMalformedMessage     = errors.New("noise: malformed handshake message")
	ErrInvalidKeyLength     = errors.New("noise: invalid key length")
	ErrDecryptFailed        = errors.New("noise: decryption failed")
	ErrUntrustedCertificate = errors.New("noise: untrusted server certificate")
	ErrCipherWiped          = errors.New("noise: cipher state has been wiped")
)

// HandshakeError records the stage at which a handshake failed.
type HandshakeError struct {
	Stage Stage
	Err   error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("noise: handshake failed in stage %s: %v", e.Stage, e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}
