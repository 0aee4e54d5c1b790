package socket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEchoServer accepts one WebSocket, records the Origin header and echoes
// every binary message back split in two.
func newEchoServer(t *testing.T) (string, <-chan string) {
	t.Helper()
	origins := make(chan string, 1)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origins <- r.Header.Get("Origin")
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			msgType, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			half := len(data) / 2
			_ = ws.WriteMessage(msgType, data[:half])
			_ = ws.WriteMessage(websocket.TextMessage, []byte("ignored"))
			_ = ws.WriteMessage(msgType, data[half:])
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http"), origins
}

func TestWebSocketFrames(t *testing.T) {
	url, origins := newEchoServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := DialWebSocket(ctx, WebSocketConfig{URL: url})
	require.NoError(t, err)
	assert.Equal(t, Origin, <-origins)

	fs := NewFrameSocket(zerolog.Nop(), nil)
	require.NoError(t, fs.Open(conn))
	defer fs.Close()

	for _, payload := range []string{"first frame", "second frame"} {
		require.NoError(t, fs.SendFrame([]byte(payload)))
		got, err := fs.ReceiveFrame()
		require.NoError(t, err)
		assert.Equal(t, payload, string(got))
	}

	require.NoError(t, fs.Close())
	_, err = fs.ReceiveFrame()
	assert.ErrorIs(t, err, ErrSocketClosed)
}

func TestDialWebSocketFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := DialWebSocket(context.Background(), WebSocketConfig{
		URL:    "ws" + strings.TrimPrefix(srv.URL, "http"),
		Origin: "https://example.invalid",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
