// Command wa-connect opens an authenticated session, sends a ping and logs
// every node the server pushes until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ZentaChain/wasocket/pkg/api"
	"github.com/ZentaChain/wasocket/pkg/binary"
	"github.com/ZentaChain/wasocket/pkg/config"
	"github.com/ZentaChain/wasocket/pkg/crypto"
	"github.com/ZentaChain/wasocket/pkg/logging"
	"github.com/ZentaChain/wasocket/pkg/metrics"
	"github.com/ZentaChain/wasocket/pkg/network"
	"github.com/ZentaChain/wasocket/pkg/noise"
	"github.com/ZentaChain/wasocket/pkg/socket"
	"github.com/ZentaChain/wasocket/pkg/storage"
	"github.com/ZentaChain/wasocket/pkg/types"
)

var configPath = flag.String("config", "", "Path to config.toml (defaults are used when empty)")

func main() {
	flag.Parse()
	log := logging.Configure(logging.ProfileRuntime)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to load config")
		}
	}
	if os.Getenv("WASOCKET_LOG_LEVEL") == "" {
		if level, ok := logging.ParseLevel(cfg.LogLevel); ok {
			log = log.Level(level)
		}
	}
	if len(cfg.TrustAnchorKey) == 0 {
		log.Fatal().Msg("trust_anchor_key must be set")
	}

	ks, err := storage.OpenKeyStore(cfg.KeystorePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.KeystorePath).Msg("Failed to open key store")
	}
	defer ks.Close()

	identity, created, err := ks.LoadOrCreateIdentity(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load identity")
	}
	defer identity.Zero()
	log.Info().
		Str("identity", crypto.Fingerprint(identity.Pub[:])).
		Bool("created", created).
		Msg("Identity loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	sessions := &api.SessionHolder{}
	if cfg.MetricsAddr != "" {
		apiCfg := api.DefaultConfig()
		apiCfg.Addr = cfg.MetricsAddr
		server := api.NewServer(apiCfg, sessions, ks, log)
		go func() {
			if err := server.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Admin API stopped")
			}
		}()
	}

	sessionCfg := network.SessionConfig{
		Static: identity,
		TrustAnchor: &noise.TrustAnchor{
			PublicKey:    cfg.TrustAnchorKey,
			IssuerSerial: cfg.TrustAnchorIssuerSerial,
			Verifier:     noise.Ed25519Verifier,
		},
		SendQueueSize:    cfg.SendQueueSize,
		HandshakeTimeout: cfg.HandshakeTimeout,
		WebSocket: socket.WebSocketConfig{
			URL:    cfg.URL,
			Origin: cfg.Origin,
		},
		ServerKeys: ks,
		Log:        log,
	}
	reconnector := &network.Reconnector{
		Connect: func(ctx context.Context) (*network.Session, error) {
			return network.Dial(ctx, sessionCfg)
		},
		Initial: cfg.ReconnectInitial,
		Max:     cfg.ReconnectMax,
		Log:     log,
	}

	err = reconnector.Run(ctx, func(ctx context.Context, s *network.Session) error {
		sessions.Set(s)
		defer sessions.Set(nil)
		return runSession(ctx, s, log)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Client stopped")
	}
	log.Info().Msg("Shutting down")
}

var requestID atomic.Uint64

// runSession pings the server and logs inbound nodes. It returns nil when
// ctx is cancelled and the session error otherwise.
func runSession(ctx context.Context, s *network.Session, log zerolog.Logger) error {
	ping := &binary.Node{
		Tag: "iq",
		Attrs: binary.Attrs{
			{Key: "id", Value: strconv.FormatUint(requestID.Add(1), 10)},
			{Key: "to", Value: types.ServerJID},
			{Key: "type", Value: "get"},
			{Key: "xmlns", Value: "w:p"},
		},
		Content: []binary.Node{{Tag: "ping"}},
	}
	if err := s.SendNode(ctx, ping); err != nil {
		return err
	}
	log.Debug().Str("node", ping.XMLString()).Msg("Sent")

	for node, err := range s.Nodes(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		log.Info().Str("tag", node.Tag).Msg("Received node")
		log.Debug().Str("node", node.XMLString()).Msg("Received")
	}
	return nil
}
