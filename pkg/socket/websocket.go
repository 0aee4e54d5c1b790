package socket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketConfig controls how DialWebSocket reaches the service.
type WebSocketConfig struct {
	URL    string
	Origin string
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
	Header http.Header
}

// WebSocketConn exposes a WebSocket as a byte stream. Each Write is sent as
// one binary message; reads run across message boundaries, so a frame may
// be split over several messages.
type WebSocketConn struct {
	ws *websocket.Conn

	readLock sync.Mutex
	reader   io.Reader

	writeLock sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewWebSocketConn wraps an established WebSocket connection.
func NewWebSocketConn(ws *websocket.Conn) *WebSocketConn {
	return &WebSocketConn{ws: ws}
}

// DialWebSocket opens a WebSocket with the fixed Origin header.
func DialWebSocket(ctx context.Context, cfg WebSocketConfig) (*WebSocketConn, error) {
	url := cfg.URL
	if url == "" {
		url = URL
	}
	origin := cfg.Origin
	if origin == "" {
		origin = Origin
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	header := http.Header{}
	for k, v := range cfg.Header {
		header[k] = append([]string{}, v...)
	}
	header.Set("Origin", origin)

	ws, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("socket: dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("socket: dial %s: %w", url, err)
	}
	return NewWebSocketConn(ws), nil
}

func (c *WebSocketConn) Read(p []byte) (int, error) {
	c.readLock.Lock()
	defer c.readLock.Unlock()
	for {
		if c.reader == nil {
			msgType, r, err := c.ws.NextReader()
			if err != nil {
				var closeErr *websocket.CloseError
				if errors.As(err, &closeErr) {
					return 0, io.EOF
				}
				return 0, err
			}
			if msgType != websocket.BinaryMessage {
				continue
			}
			c.reader = r
		}
		n, err := c.reader.Read(p)
		if errors.Is(err, io.EOF) {
			c.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *WebSocketConn) Write(p []byte) (int, error) {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a close message and closes the underlying connection.
func (c *WebSocketConn) Close() error {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
