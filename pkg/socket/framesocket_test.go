package socket

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConn reads from a fixed buffer and records every write.
type recordingConn struct {
	mu     sync.Mutex
	r      io.Reader
	writes [][]byte
	closed bool
}

func (c *recordingConn) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *recordingConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte{}, p...))
	return len(p), nil
}

func (c *recordingConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func newPipeSockets(t *testing.T) (client, server *FrameSocket) {
	t.Helper()
	a, b := net.Pipe()
	client = NewFrameSocket(zerolog.Nop(), WAConnHeader)
	server = NewServerFrameSocket(zerolog.Nop())
	require.NoError(t, client.Open(a))
	require.NoError(t, server.Open(b))
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

func TestConnHeader(t *testing.T) {
	assert.Equal(t, []byte{'W', 'A', 6, 3}, WAConnHeader)
}

func TestFrameRoundTrip(t *testing.T) {
	client, server := newPipeSockets(t)

	payloads := [][]byte{[]byte("hello"), {}, bytes.Repeat([]byte{0xAB}, 70000)}
	go func() {
		for _, p := range payloads {
			if err := client.SendFrame(p); err != nil {
				return
			}
		}
	}()
	for _, want := range payloads {
		got, err := server.ReceiveFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, byte(WADictVersion), server.PeerDictVersion())

	go func() { _ = server.SendFrame([]byte("reply")) }()
	got, err := client.ReceiveFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("reply"), got)
}

func TestHeaderSentWithFirstFrameOnly(t *testing.T) {
	conn := &recordingConn{r: bytes.NewReader(nil)}
	fs := NewFrameSocket(zerolog.Nop(), WAConnHeader)
	require.NoError(t, fs.Open(conn))

	require.NoError(t, fs.SendFrame([]byte{0x01, 0x02}))
	require.NoError(t, fs.SendFrame([]byte{0x03}))

	require.Len(t, conn.writes, 2)
	assert.Equal(t, []byte{'W', 'A', 6, 3, 0, 0, 2, 0x01, 0x02}, conn.writes[0])
	assert.Equal(t, []byte{0, 0, 1, 0x03}, conn.writes[1])
}

func TestFrameTooLarge(t *testing.T) {
	conn := &recordingConn{r: bytes.NewReader(nil)}
	fs := NewFrameSocket(zerolog.Nop(), nil)
	require.NoError(t, fs.Open(conn))

	err := fs.SendFrame(make([]byte, FrameMaxSize))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Empty(t, conn.writes)
	assert.True(t, fs.IsOpen())

	require.NoError(t, fs.SendFrame(make([]byte, FrameMaxSize-1)))
	require.Len(t, conn.writes, 1)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF}, conn.writes[0][:3])
}

func TestReceivePartialFrame(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty stream", nil},
		{"partial length", []byte{0x00, 0x01}},
		{"partial payload", []byte{0x00, 0x00, 0x0A, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := &recordingConn{r: bytes.NewReader(tt.input)}
			fs := NewFrameSocket(zerolog.Nop(), nil)
			require.NoError(t, fs.Open(conn))

			_, err := fs.ReceiveFrame()
			assert.ErrorIs(t, err, ErrSocketClosed)
			assert.False(t, fs.IsOpen())
			assert.True(t, conn.closed)

			_, err = fs.ReceiveFrame()
			assert.ErrorIs(t, err, ErrSocketClosed)
		})
	}
}

func TestServerRejectsBadHeader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"wrong magic", []byte{'X', 'A', 6, 3, 0, 0, 0}, ErrInvalidConnHeader},
		{"wrong dict version", []byte{'W', 'A', 6, 2, 0, 0, 0}, ErrUnsupportedVersion},
		{"short header", []byte{'W', 'A'}, ErrSocketClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := NewServerFrameSocket(zerolog.Nop())
			require.NoError(t, fs.Open(&recordingConn{r: bytes.NewReader(tt.input)}))
			_, err := fs.ReceiveFrame()
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, fs.IsOpen())
		})
	}
}

func TestOpenTwice(t *testing.T) {
	fs := NewFrameSocket(zerolog.Nop(), nil)
	require.NoError(t, fs.Open(&recordingConn{r: bytes.NewReader(nil)}))
	assert.ErrorIs(t, fs.Open(&recordingConn{r: bytes.NewReader(nil)}), ErrSocketAlreadyOpen)

	require.NoError(t, fs.Close())
	require.NoError(t, fs.Close())
	assert.ErrorIs(t, fs.Open(&recordingConn{r: bytes.NewReader(nil)}), ErrSocketAlreadyOpen)
}

func TestSendBeforeOpen(t *testing.T) {
	fs := NewFrameSocket(zerolog.Nop(), nil)
	assert.ErrorIs(t, fs.SendFrame([]byte{1}), ErrSocketClosed)
	_, err := fs.ReceiveFrame()
	assert.ErrorIs(t, err, ErrSocketClosed)
	assert.False(t, fs.IsOpen())
}

func TestCloseUnblocksReceive(t *testing.T) {
	client, _ := newPipeSockets(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := client.ReceiveFrame()
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, client.Close())

	select {
	case err := <-errCh:
		assert.True(t, errors.Is(err, ErrSocketClosed), "got %v", err)
	case <-time.After(time.Second):
		t.Fatal("ReceiveFrame did not return after Close")
	}
	assert.ErrorIs(t, client.SendFrame([]byte{1}), ErrSocketClosed)
}
