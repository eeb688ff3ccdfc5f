// Package cli holds the setup shared by the martd commands: logging,
// protocol tracing and finding the server to talk to.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/martd/martd-go/pkg/client"
	"github.com/martd/martd-go/pkg/discovery"
	"github.com/martd/martd-go/pkg/log"
)

// ParseLevel parses a -log-level value.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s (use: debug, info, warn, error)", s)
	}
}

// NewLogger returns a text logger writing to w at level.
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// Trace is the protocol logger of a command.
type Trace struct {
	log.Logger
	file *log.FileLogger
}

// OpenTrace builds the protocol logger for a command. Events go to path
// when it is set, and to logger at debug level when debug is true.
func OpenTrace(path string, logger *slog.Logger, debug bool) (*Trace, error) {
	t := &Trace{}
	var sinks []log.Logger
	if path != "" {
		f, err := log.NewFileLogger(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create protocol logger: %w", err)
		}
		t.file = f
		sinks = append(sinks, f)
	}
	if debug && logger != nil {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}
	switch len(sinks) {
	case 0:
		t.Logger = log.NoopLogger{}
	case 1:
		t.Logger = sinks[0]
	default:
		t.Logger = log.NewMultiLogger(sinks...)
	}
	return t, nil
}

// Close closes the trace file, if any.
func (t *Trace) Close() error {
	if t.file == nil {
		return nil
	}
	return t.file.Close()
}

// ServerOptions selects the server a command talks to.
type ServerOptions struct {
	// ConfigFile is a YAML client config.
	ConfigFile string

	// Server overrides the configured base URL.
	Server string

	// Discover finds the server with mDNS. "any" takes the first one found,
	// anything else is an instance name.
	Discover string

	// DiscoverTimeout bounds the mDNS lookup.
	DiscoverTimeout time.Duration
}

// LoadConfig builds the client config from opts. newBrowser is only called
// when discovery is requested.
func LoadConfig(ctx context.Context, opts ServerOptions, newBrowser func() (discovery.Browser, error)) (client.Config, error) {
	cfg := client.DefaultConfig()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = client.LoadConfig(opts.ConfigFile); err != nil {
			return client.Config{}, err
		}
	}

	switch {
	case opts.Server != "":
		cfg.BaseURL = opts.Server
	case opts.Discover != "":
		b, err := newBrowser()
		if err != nil {
			return client.Config{}, err
		}
		defer b.Stop()

		timeout := opts.DiscoverTimeout
		if timeout <= 0 {
			timeout = discovery.BrowseTimeout
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		instance := opts.Discover
		if instance == "any" {
			instance = ""
		}
		base, sub, pub, err := discovery.Resolve(ctx, b, instance)
		if err != nil {
			return client.Config{}, err
		}
		cfg.BaseURL, cfg.SubPath, cfg.PubPath = base, sub, pub
	}

	return cfg, cfg.Validate()
}

// MDNSBrowser returns a browser for LoadConfig.
func MDNSBrowser() (discovery.Browser, error) {
	return discovery.NewMDNSBrowser(discovery.DefaultBrowserConfig())
}
