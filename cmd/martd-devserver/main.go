// Command martd-devserver runs an in-memory martd server for local
// development and demos.
//
// It serves the poll endpoint on /sub, the publish endpoint on /pub and a
// channel listing on /list. Nothing is persisted.
//
// Usage:
//
//	martd-devserver [flags]
//
// Flags:
//
//	-addr string           Listen address (default ":54321")
//	-hold-timeout duration Answer held polls with an empty response after this long (0: never)
//	-advertise string      Advertise the server with mDNS under this instance name
//	-log-level string      Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Serve on the default port
//	martd-devserver
//
//	# Serve on the LAN and let martd-sub -discover find it
//	martd-devserver -advertise office
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/martd/martd-go/internal/cli"
	"github.com/martd/martd-go/internal/testserver"
	"github.com/martd/martd-go/pkg/discovery"
)

var (
	addr        = flag.String("addr", fmt.Sprintf(":%d", discovery.DefaultPort), "Listen address")
	holdTimeout = flag.Duration("hold-timeout", 0, "Answer held polls with an empty response after this long (0: never)")
	advertise   = flag.String("advertise", "", "Advertise the server with mDNS under this instance name")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()
	log.SetFlags(log.Ltime | log.Lmicroseconds)

	logger, err := cli.NewLogger(os.Stderr, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to listen: %v\n", err)
		return 1
	}
	port := uint16(ln.Addr().(*net.TCPAddr).Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *advertise != "" {
		adv, err := discovery.NewMDNSAdvertiser(discovery.DefaultAdvertiserConfig(), logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if err := adv.Advertise(ctx, &discovery.ServerInfo{Instance: *advertise, Port: port}); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to advertise: %v\n", err)
			return 1
		}
		defer adv.Stop()
	}

	log.Printf("martd dev server on %s", ln.Addr())
	if err := serve(ctx, ln, newServer(logger)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: server failed: %v\n", err)
		return 1
	}
	log.Println("Goodbye!")
	return 0
}

func newServer(logger *slog.Logger) *testserver.Server {
	opts := []testserver.Option{testserver.WithLogger(logger)}
	if *holdTimeout > 0 {
		opts = append(opts, testserver.WithHoldTimeout(*holdTimeout))
	}
	return testserver.New(opts...)
}

// serve runs h on ln until ctx is done, then shuts down. Held polls are
// cut off after five seconds.
func serve(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
