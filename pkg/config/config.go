// Package config loads the client's TOML configuration file.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ZentaChain/wasocket/pkg/socket"
)

// Config holds the runtime settings. Wire constants are not configurable.
type Config struct {
	URL                     string
	Origin                  string
	KeystorePath            string
	SendQueueSize           int
	HandshakeTimeout        time.Duration
	TrustAnchorKey          []byte
	TrustAnchorIssuerSerial uint32
	LogLevel                string
	MetricsAddr             string
	ReconnectInitial        time.Duration
	ReconnectMax            time.Duration
}

// config.toml key mapping.
type fileConfig struct {
	URL                     string `toml:"url"`
	Origin                  string `toml:"origin"`
	KeystorePath            string `toml:"keystore_path"`
	SendQueueSize           int    `toml:"send_queue_size"`
	HandshakeTimeout        string `toml:"handshake_timeout"`
	TrustAnchorKey          string `toml:"trust_anchor_key"`
	TrustAnchorIssuerSerial uint32 `toml:"trust_anchor_issuer_serial"`
	LogLevel                string `toml:"log_level"`
	MetricsAddr             string `toml:"metrics_addr"`
	ReconnectInitial        string `toml:"reconnect_initial"`
	ReconnectMax            string `toml:"reconnect_max"`
}

func Default() Config {
	return Config{
		URL:              socket.URL,
		Origin:           socket.Origin,
		KeystorePath:     "wasocket.db",
		SendQueueSize:    32,
		HandshakeTimeout: 20 * time.Second,
		LogLevel:         "info",
		ReconnectInitial: time.Second,
		ReconnectMax:     30 * time.Second,
	}
}

// Load reads path and overlays the keys it defines on Default.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("url") {
		cfg.URL = strings.TrimSpace(raw.URL)
	}
	if meta.IsDefined("origin") {
		cfg.Origin = strings.TrimSpace(raw.Origin)
	}
	if meta.IsDefined("keystore_path") {
		cfg.KeystorePath = strings.TrimSpace(raw.KeystorePath)
	}
	if meta.IsDefined("send_queue_size") {
		cfg.SendQueueSize = raw.SendQueueSize
	}
	if meta.IsDefined("handshake_timeout") {
		if cfg.HandshakeTimeout, err = parseDuration("handshake_timeout", raw.HandshakeTimeout); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("trust_anchor_key") {
		key, err := hex.DecodeString(strings.TrimSpace(raw.TrustAnchorKey))
		if err != nil {
			return Config{}, fmt.Errorf("load config: trust_anchor_key: %w", err)
		}
		if len(key) != 32 {
			return Config{}, fmt.Errorf("load config: trust_anchor_key must be 32 bytes, got %d", len(key))
		}
		cfg.TrustAnchorKey = key
	}
	if meta.IsDefined("trust_anchor_issuer_serial") {
		cfg.TrustAnchorIssuerSerial = raw.TrustAnchorIssuerSerial
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("reconnect_initial") {
		if cfg.ReconnectInitial, err = parseDuration("reconnect_initial", raw.ReconnectInitial); err != nil {
			return Config{}, err
		}
	}
	if meta.IsDefined("reconnect_max") {
		if cfg.ReconnectMax, err = parseDuration("reconnect_max", raw.ReconnectMax); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("load config: url must not be empty")
	}
	if c.SendQueueSize < 1 {
		return fmt.Errorf("load config: send_queue_size must be positive, got %d", c.SendQueueSize)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("load config: handshake_timeout must be positive")
	}
	if c.ReconnectInitial <= 0 || c.ReconnectMax < c.ReconnectInitial {
		return fmt.Errorf("load config: reconnect_max (%s) must be at least reconnect_initial (%s)", c.ReconnectMax, c.ReconnectInitial)
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("load config: %s: %w", key, err)
	}
	return d, nil
}
