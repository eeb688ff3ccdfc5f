// Command martd-pub publishes a message to a channel of a martd server and
// prints the message's cache token.
//
// Usage:
//
//	martd-pub [flags] <channel> [message]
//
// The message is read from stdin when it is not given as an argument.
//
// Flags:
//
//	-config string         YAML client config file
//	-server string         Server base URL (overrides config)
//	-discover string       Find the server with mDNS ("any" or an instance name)
//	-size uint             Messages the channel retains (server default when 0)
//	-life duration         How long the channel is kept (server default when 0)
//	-one2one               Create a point-to-point channel
//	-key string            Channel access key
//	-timeout duration      Request timeout (default 10s)
//	-log-level string      Log level: debug, info, warn, error (default "warn")
//	-protocol-log string   File path for protocol event logging (CBOR format)
//
// Examples:
//
//	martd-pub news "hello world"
//	date | martd-pub -server http://10.0.0.5:54321 clock
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/martd/martd-go/internal/cli"
	"github.com/martd/martd-go/pkg/client"
)

// Config holds the command-line configuration.
type Config struct {
	ConfigFile  string
	Server      string
	Discover    string
	Size        uint
	Life        time.Duration
	One2One     bool
	Key         string
	Timeout     time.Duration
	LogLevel    string
	ProtocolLog string
}

var config Config

func init() {
	flag.StringVar(&config.ConfigFile, "config", "", "YAML client config file")
	flag.StringVar(&config.Server, "server", "", "Server base URL (overrides config)")
	flag.StringVar(&config.Discover, "discover", "", "Find the server with mDNS (\"any\" or an instance name)")
	flag.UintVar(&config.Size, "size", 0, "Messages the channel retains (server default when 0)")
	flag.DurationVar(&config.Life, "life", 0, "How long the channel is kept (server default when 0)")
	flag.BoolVar(&config.One2One, "one2one", false, "Create a point-to-point channel")
	flag.StringVar(&config.Key, "key", "", "Channel access key")
	flag.DurationVar(&config.Timeout, "timeout", 10*time.Second, "Request timeout")
	flag.StringVar(&config.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	flag.StringVar(&config.ProtocolLog, "protocol-log", "", "File path for protocol event logging (CBOR format)")
}

func main() {
	flag.Parse()
	log.SetFlags(0)

	if flag.NArg() < 1 || flag.NArg() > 2 {
		fmt.Fprintln(os.Stderr, "Usage: martd-pub [flags] <channel> [message]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	body, err := messageBody(flag.Args()[1:], os.Stdin)
	if err != nil {
		log.Fatalf("Failed to read message: %v", err)
	}

	etag, err := run(context.Background(), flag.Arg(0), body)
	if err != nil {
		log.Fatalf("Publish failed: %v", err)
	}
	fmt.Println(etag)
}

func run(ctx context.Context, channel string, body []byte) (string, error) {
	logger, err := cli.NewLogger(os.Stderr, config.LogLevel)
	if err != nil {
		return "", err
	}

	cfg, err := cli.LoadConfig(ctx, cli.ServerOptions{
		ConfigFile: config.ConfigFile,
		Server:     config.Server,
		Discover:   config.Discover,
	}, cli.MDNSBrowser)
	if err != nil {
		return "", err
	}

	trace, err := cli.OpenTrace(config.ProtocolLog, logger, config.LogLevel == "debug")
	if err != nil {
		return "", err
	}
	defer trace.Close()

	cfg.Logger = logger
	cfg.ProtocolLogger = trace
	pub, err := client.NewPublisher(cfg)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	return pub.Publish(ctx, channel, body, client.PublishOptions{
		Size:    config.Size,
		Life:    config.Life,
		One2One: config.One2One,
		Key:     config.Key,
	})
}

// messageBody returns the message argument, or all of stdin without its
// trailing newline.
func messageBody(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) > 0 {
		return []byte(args[0]), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(string(data), "\r\n")), nil
}
