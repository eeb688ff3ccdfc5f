package client

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/martd/martd-go/pkg/connection"
	"github.com/martd/martd-go/pkg/log"
	"github.com/martd/martd-go/pkg/transport"
	"github.com/martd/martd-go/pkg/wire"
)

// DefaultBaseURL is the address of a martd server with default settings.
const DefaultBaseURL = "http://localhost:54321"

// Config configures a Client.
type Config struct {
	// BaseURL is the server address, e.g. http://localhost:54321.
	BaseURL string `yaml:"base_url"`

	// SubPath is the poll endpoint (default: /sub).
	SubPath string `yaml:"sub_path"`

	// PubPath is the publish endpoint (default: /pub).
	PubPath string `yaml:"pub_path"`

	// ClientID correlates the polls of this client. Generated when empty.
	ClientID string `yaml:"client_id"`

	// Backoff configures the delay before a failed poll is retried.
	// The default is a fixed one second delay.
	Backoff connection.BackoffConfig `yaml:"backoff"`

	// RequestTimeout bounds a single poll. Zero leaves polls open for as
	// long as the server holds them.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// UserAgent is sent with every request when set.
	UserAgent string `yaml:"user_agent"`

	// MarkAJAX sends X-Requested-With: XMLHttpRequest on polls.
	MarkAJAX bool `yaml:"mark_ajax"`

	// ConditionalFetch sends If-None-Match when exactly one channel is
	// polled. The per-channel query tokens are always sent.
	ConditionalFetch bool `yaml:"conditional_fetch"`

	// MaxBodySize caps a response body (default: transport.DefaultMaxBodySize).
	MaxBodySize int64 `yaml:"max_body_size"`

	// Transport issues poll requests. Defaults to an HTTP transport.
	Transport transport.Transport `yaml:"-"`

	// Logger is the optional logger for operational output.
	// If nil, logging is disabled.
	Logger *slog.Logger `yaml:"-"`

	// ProtocolLogger receives a trace of every exchange. Optional.
	ProtocolLogger log.Logger `yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		SubPath:  wire.DefaultSubPath,
		PubPath:  wire.DefaultPubPath,
		Backoff:  connection.DefaultBackoffConfig(),
		MarkAJAX: true,
	}
}

// ParseConfig parses YAML on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base_url: %v", ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base_url must be an http or https URL, got %q", ErrInvalidConfig, c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base_url has no host", ErrInvalidConfig)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout must not be negative", ErrInvalidConfig)
	}
	if c.ClientID != "" && strings.ContainsAny(c.ClientID, "&=#") {
		return fmt.Errorf("%w: client_id %q", ErrInvalidConfig, c.ClientID)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.SubPath == "" {
		c.SubPath = wire.DefaultSubPath
	}
	if c.PubPath == "" {
		c.PubPath = wire.DefaultPubPath
	}
	if c.Backoff.Initial <= 0 {
		c.Backoff.Initial = connection.InitialBackoff
	}
}

func (c *Config) httpConfig() transport.HTTPConfig {
	return transport.HTTPConfig{
		RequestTimeout: c.RequestTimeout,
		UserAgent:      c.UserAgent,
		MaxBodySize:    c.MaxBodySize,
	}
}
