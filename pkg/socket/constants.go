// Package socket implements the framed transport: a length prefixed frame
// stream over any byte transport, the WebSocket adapter used to reach the
// service, and the encrypted layer installed once the handshake completes.
package socket

import (
	"errors"

	"github.com/ZentaChain/wasocket/pkg/token"
)

const (
	// URL is the WebSocket endpoint of the service.
	URL = "wss://web.whatsapp.com/ws/chat"
	// Origin is sent as the Origin header when dialing URL.
	Origin = "https://web.whatsapp.com"
)

const (
	WAMagicValue  = 6
	WADictVersion = token.DictVersion
)

// WAConnHeader is sent once by the client, ahead of its first frame.
var WAConnHeader = []byte{'W', 'A', WAMagicValue, WADictVersion}

const (
	FrameMaxSize    = 2 << 23
	FrameLengthSize = 3
)

var (
	ErrFrameTooLarge      = errors.New("socket: frame too large")
	ErrSocketClosed       = errors.New("socket: frame socket is closed")
	ErrSocketAlreadyOpen  = errors.New("socket: frame socket is already open")
	ErrInvalidConnHeader  = errors.New("socket: invalid connection header")
	ErrUnsupportedVersion = errors.New("socket: unsupported dictionary version")
)
