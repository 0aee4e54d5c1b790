// Command wa-relay is a local loopback server for wa-connect. It accepts
// WebSocket connections, completes the handshake with a throwaway
// certificate chain and answers iq requests with an empty result.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ZentaChain/wasocket/pkg/binary"
	"github.com/ZentaChain/wasocket/pkg/crypto"
	"github.com/ZentaChain/wasocket/pkg/logging"
	"github.com/ZentaChain/wasocket/pkg/noise/noisetest"
	"github.com/ZentaChain/wasocket/pkg/socket"
	"github.com/ZentaChain/wasocket/pkg/types"
)

var (
	addr = flag.String("addr", "127.0.0.1:8089", "Address to listen on")
	path = flag.String("path", "/ws/chat", "WebSocket path")
)

func main() {
	flag.Parse()
	log := logging.Configure(logging.ProfileRuntime)

	responder, err := noisetest.NewResponder(socket.WAConnHeader, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create responder")
	}
	printStatus(responder)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET(*path, func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("Upgrade failed")
			return
		}
		serve(socket.NewWebSocketConn(ws), responder, log.With().Str("remote", c.ClientIP()).Logger())
	})
	server := &http.Server{Addr: *addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", *addr).Str("path", *path).Msg("Relay listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Relay stopped")
	}
	log.Info().Msg("Shutting down gracefully")
}

func printStatus(responder *noisetest.Responder) {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("wa-relay loopback server")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("   URL: ws://%s%s\n", *addr, *path)
	fmt.Printf("   Server key: %s\n", crypto.Fingerprint(responder.Static.Pub[:]))
	fmt.Println()
	fmt.Println("Client config.toml:")
	fmt.Printf("   url = \"ws://%s%s\"\n", *addr, *path)
	fmt.Printf("   trust_anchor_key = \"%s\"\n", hex.EncodeToString(responder.TrustAnchor().PublicKey))
	fmt.Printf("   trust_anchor_issuer_serial = %d\n", noisetest.RootSerial)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
}

// serve runs one client connection until it closes.
func serve(conn *socket.WebSocketConn, responder *noisetest.Responder, log zerolog.Logger) {
	fs := socket.NewServerFrameSocket(log)
	if err := fs.Open(conn); err != nil {
		_ = conn.Close()
		log.Warn().Err(err).Msg("Failed to open frame socket")
		return
	}
	res, err := responder.Handshake(fs)
	if err != nil {
		_ = fs.Close()
		log.Warn().Err(err).Msg("Handshake failed")
		return
	}
	ns := socket.NewNoiseSocket(fs, res.Write, res.Read)
	defer ns.Close()
	log.Info().Str("client", crypto.Fingerprint(res.ClientStatic)).Msg("Client connected")

	for {
		plaintext, err := ns.ReceiveFrame()
		if err != nil {
			log.Info().Err(err).Msg("Client disconnected")
			return
		}
		node, err := binary.UnmarshalFrame(plaintext)
		if err != nil {
			log.Warn().Err(err).Msg("Dropping client after bad frame")
			return
		}
		log.Debug().Str("node", node.XMLString()).Msg("Received")

		reply := answer(node)
		if reply == nil {
			continue
		}
		payload, err := binary.Marshal(*reply)
		if err != nil {
			log.Error().Err(err).Msg("Failed to encode reply")
			return
		}
		if err := ns.SendFrame(payload); err != nil {
			log.Info().Err(err).Msg("Client disconnected")
			return
		}
	}
}

// answer returns the reply for an iq get or set, and nil for anything else.
func answer(node *binary.Node) *binary.Node {
	if node.Tag != "iq" {
		return nil
	}
	ag := node.AttrGetter()
	id := ag.String("id")
	iqType := ag.String("type")
	if !ag.OK() || (iqType != "get" && iqType != "set") {
		return nil
	}
	return &binary.Node{
		Tag: "iq",
		Attrs: binary.Attrs{
			{Key: "from", Value: types.ServerJID},
			{Key: "id", Value: id},
			{Key: "type", Value: "result"},
		},
	}
}
