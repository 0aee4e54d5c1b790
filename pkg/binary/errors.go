package binary

import "errors"

// Errors returned by the decoder. All of them mean the byte stream can no
// longer be trusted and the connection that produced it must be dropped.
var (
	ErrInvalidNode   = errors.New("binary: invalid node")
	ErrTruncated     = errors.New("binary: unexpected end of data")
	ErrInvalidType   = errors.New("binary: unsupported value type")
	ErrInvalidToken  = errors.New("binary: invalid token")
	ErrInvalidMarker = errors.New("binary: invalid marker byte")
	ErrTooDeep       = errors.New("binary: node nesting too deep")
	ErrLeftoverBytes = errors.New("binary: leftover bytes after decoding")
	ErrInvalidPacked = errors.New("binary: invalid packed value")
)
