package socket_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/wasocket/pkg/crypto"
	"github.com/ZentaChain/wasocket/pkg/noise"
	"github.com/ZentaChain/wasocket/pkg/noise/noisetest"
	"github.com/ZentaChain/wasocket/pkg/socket"
)

func connectedNoiseSockets(t *testing.T) (client, server *socket.NoiseSocket) {
	t.Helper()
	a, b := net.Pipe()
	clientFS := socket.NewFrameSocket(zerolog.Nop(), socket.WAConnHeader)
	serverFS := socket.NewServerFrameSocket(zerolog.Nop())
	require.NoError(t, clientFS.Open(a))
	require.NoError(t, serverFS.Open(b))

	responder, err := noisetest.NewResponder(socket.WAConnHeader, nil)
	require.NoError(t, err)
	results := make(chan *noisetest.Result, 1)
	go func() {
		res, err := responder.Handshake(serverFS)
		if err != nil {
			_ = serverFS.Close()
			results <- nil
			return
		}
		results <- res
	}()

	static, err := crypto.GenerateKeyPair(nil)
	require.NoError(t, err)
	h, err := noise.NewInitiator(noise.InitiatorConfig{
		Static:      static,
		Prologue:    socket.WAConnHeader,
		TrustAnchor: responder.TrustAnchor(),
		Log:         zerolog.Nop(),
	})
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	write, read, err := h.Run(ctx, clientFS, []byte("login"))
	require.NoError(t, err)

	res := <-results
	require.NotNil(t, res)
	client = socket.NewNoiseSocket(clientFS, write, read)
	server = socket.NewNoiseSocket(serverFS, res.Write, res.Read)
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})
	return client, server
}

func TestNoiseSocketExchange(t *testing.T) {
	client, server := connectedNoiseSockets(t)

	go func() {
		for _, msg := range []string{"one", "two", "three"} {
			_ = client.SendFrame([]byte(msg))
		}
	}()
	for _, want := range []string{"one", "two", "three"} {
		got, err := server.ReceiveFrame()
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}

	go func() { _ = server.SendFrame([]byte("pong")) }()
	got, err := client.ReceiveFrame()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(got))
}

func TestNoiseSocketClose(t *testing.T) {
	client, server := connectedNoiseSockets(t)
	require.NoError(t, client.Close())
	assert.False(t, client.IsOpen())
	assert.ErrorIs(t, client.SendFrame([]byte("late")), socket.ErrSocketClosed)

	_, err := server.ReceiveFrame()
	assert.ErrorIs(t, err, socket.ErrSocketClosed)
}

func TestNoiseSocketTooLarge(t *testing.T) {
	client, _ := connectedNoiseSockets(t)
	err := client.SendFrame(make([]byte, socket.FrameMaxSize-16))
	assert.ErrorIs(t, err, socket.ErrFrameTooLarge)
	assert.True(t, client.IsOpen())
}
