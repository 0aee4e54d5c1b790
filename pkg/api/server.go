// Package api provides the local HTTP admin API of the client: health,
// Prometheus metrics, the current session and the server keys seen so far.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ZentaChain/wasocket/pkg/network"
	"github.com/ZentaChain/wasocket/pkg/storage"
)

// ServerKeyLister lists the server keys accepted by past handshakes.
// *storage.KeyStore implements it.
type ServerKeyLister interface {
	ServerKeys() ([]storage.ServerKey, error)
}

// SessionHolder tracks the session the reconnect loop is currently running.
type SessionHolder struct {
	mu      sync.RWMutex
	session *network.Session
}

// Set replaces the current session. nil means disconnected.
func (h *SessionHolder) Set(s *network.Session) {
	h.mu.Lock()
	h.session = s
	h.mu.Unlock()
}

// Current returns the running session or nil.
func (h *SessionHolder) Current() *network.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.session == nil || h.session.Err() != nil {
		return nil
	}
	return h.session
}

// Config holds server configuration
type Config struct {
	Addr         string
	RateLimit    int // Requests per minute
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	SendTimeout  time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:9090",
		RateLimit:    120,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		SendTimeout:  10 * time.Second,
	}
}

// Server is the admin HTTP server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	cfg        Config
	sessions   *SessionHolder
	keys       ServerKeyLister
	log        zerolog.Logger
	started    time.Time
}

// NewServer creates the server. keys may be nil.
func NewServer(cfg Config, sessions *SessionHolder, keys ServerKeyLister, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		router:   gin.New(),
		cfg:      cfg,
		sessions: sessions,
		keys:     keys,
		log:      log.With().Str("component", "api").Logger(),
		started:  time.Now(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(LoggingMiddleware(s.log))
	if s.cfg.RateLimit > 0 {
		s.router.Use(RateLimitMiddleware(NewRateLimiter(s.cfg.RateLimit)))
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/session", s.handleSession)
		v1.POST("/session/nodes", s.handleSendNode)
		v1.GET("/server-keys", s.handleServerKeys)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("Admin API listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
