// Command martd-sub subscribes to channels of a martd server and prints
// every message it receives.
//
// Usage:
//
//	martd-sub [flags] <channel>...
//
// Flags:
//
//	-config string         YAML client config file
//	-server string         Server base URL (overrides config)
//	-discover string       Find the server with mDNS ("any" or an instance name)
//	-client-id string      Client identifier (default: generated)
//	-etag string           Cache token to start the channels from
//	-log-level string      Log level: debug, info, warn, error (default "info")
//	-protocol-log string   File path for protocol event logging (CBOR format)
//	-state string          File that keeps channel cache tokens across restarts
//	-interactive           Start an interactive shell
//
// Examples:
//
//	# Follow two channels on a local server
//	martd-sub news sport
//
//	# Replay news from token 42 on a discovered server
//	martd-sub -discover any -etag 42 news
//
//	# Resume where the last run stopped
//	martd-sub -state ~/.martd/cursors.json news
//
//	# Interactive mode with a protocol trace
//	martd-sub -interactive -protocol-log sub.mlog
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/martd/martd-go/cmd/martd-sub/interactive"
	"github.com/martd/martd-go/internal/cli"
	"github.com/martd/martd-go/pkg/client"
	"github.com/martd/martd-go/pkg/connection"
	"github.com/martd/martd-go/pkg/persistence"
	"github.com/martd/martd-go/pkg/wire"
)

// Config holds the command-line configuration.
type Config struct {
	ConfigFile  string
	Server      string
	Discover    string
	ClientID    string
	Etag        string
	LogLevel    string
	ProtocolLog string
	StateFile   string
	Interactive bool
}

var config Config

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "YAML client config file")
	flag.StringVar(&config.Server, "server", "", "Server base URL (overrides config)")
	flag.StringVar(&config.Discover, "discover", "", "Find the server with mDNS (\"any\" or an instance name)")
	flag.StringVar(&config.ClientID, "client-id", "", "Client identifier (default: generated)")
	flag.StringVar(&config.Etag, "etag", "", "Cache token to start the channels from")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.ProtocolLog, "protocol-log", "", "File path for protocol event logging (CBOR format)")
	flag.StringVar(&config.StateFile, "state", "", "File that keeps channel cache tokens across restarts")
	flag.BoolVar(&config.Interactive, "interactive", false, "Start an interactive shell")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	channels := flag.Args()
	if len(channels) == 0 && !config.Interactive {
		fmt.Fprintln(os.Stderr, "Usage: martd-sub [flags] <channel>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := buildConfig(ctx)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var store *persistence.CursorStore
	var saved *persistence.CursorState
	if config.StateFile != "" {
		store = persistence.NewCursorStore(config.StateFile)
		if saved, err = loadState(store, &cfg); err != nil {
			log.Fatalf("Failed to load state: %v", err)
		}
	}
	startToken := func(name string) string {
		if config.Etag != "" {
			return config.Etag
		}
		token, _ := saved.Token(name)
		return token
	}

	var shell *interactive.Shell
	var out, errOut io.Writer = os.Stdout, os.Stderr
	if config.Interactive {
		if shell, err = interactive.New(); err != nil {
			log.Fatalf("%v", err)
		}
		out, errOut = shell.Stdout(), shell.Stderr()
		log.SetOutput(errOut)
	}

	logger, err := cli.NewLogger(errOut, config.LogLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}
	trace, err := cli.OpenTrace(config.ProtocolLog, logger, config.LogLevel == "debug")
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer trace.Close()

	cfg.Logger = logger
	cfg.ProtocolLogger = trace
	c, err := client.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()
	if store != nil {
		defer func() {
			if err := store.Save(persistence.NewCursorState(c.ClientID(), cfg.BaseURL, c.Channels())); err != nil {
				log.Printf("Failed to save state: %v", err)
			}
		}()
	}

	log.Printf("martd subscriber %s -> %s", c.ClientID(), cfg.BaseURL)
	c.OnStateChange(func(old, next connection.State) {
		if next == connection.StateBackoff {
			log.Printf("Poll failed, retrying")
		}
	})

	if shell != nil {
		shell.Attach(c, config.Etag)
		for _, name := range channels {
			shell.Subscribe(name, startToken(name))
		}
		shell.Run(ctx, cancel)
		return
	}

	for _, name := range channels {
		var opts []client.SubscribeOption
		if token := startToken(name); token != "" {
			opts = append(opts, client.WithCacheToken(token))
		}
		if _, err := c.Subscribe(name, printer(out, name), opts...); err != nil {
			log.Printf("Failed to subscribe to %s: %v", name, err)
			return
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	log.Printf("Received signal: %v", sig)
	stats := c.Stats()
	log.Printf("Polls: %d, failures: %d, messages: %d", stats.Polls, stats.Failures, stats.Messages)
}

func buildConfig(ctx context.Context) (client.Config, error) {
	cfg, err := cli.LoadConfig(ctx, cli.ServerOptions{
		ConfigFile: config.ConfigFile,
		Server:     config.Server,
		Discover:   config.Discover,
	}, cli.MDNSBrowser)
	if err != nil {
		return client.Config{}, err
	}
	if config.ClientID != "" {
		cfg.ClientID = config.ClientID
	}
	return cfg, cfg.Validate()
}

// loadState reads saved cursors. Cursors of another server are ignored; a
// saved client id is reused unless one is configured.
func loadState(store *persistence.CursorStore, cfg *client.Config) (*persistence.CursorState, error) {
	saved, err := store.Load()
	if err != nil || saved == nil {
		return nil, err
	}
	if saved.Server != cfg.BaseURL {
		log.Printf("Ignoring state of %s in %s", saved.Server, store.Path())
		return nil, nil
	}
	if cfg.ClientID == "" {
		cfg.ClientID = saved.ClientID
	}
	return saved, nil
}

func printer(w io.Writer, channel string) func(wire.Message) error {
	return func(msg wire.Message) error {
		_, err := fmt.Fprintf(w, "%s: %s\n", channel, msg.Text())
		return err
	}
}
